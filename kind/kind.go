// Package kind enumerates the annotation kinds understood by autoreg and the
// shapes of program items they can be applied to.
package kind

import (
	"fmt"
	"strings"
)

// Kind is a supported annotation kind. The set is closed: adding a kind means
// adding a constant here and an entry to the catalog.
type Kind int

const (
	Invalid Kind = iota

	// Terminal kinds are consumed directly by emission.

	Derive
	RegisterType
	Reflect
	Name
	AddEvent
	InitResource
	InitState
	AddSystem
	AddObserver
	ConfigureSet

	// Shorthand kinds expand into terminal kinds.

	AutoComponent
	AutoResource
	AutoEvent
	AutoState
	AutoSystem

	numKinds
)

var kindNames = [...]string{
	Invalid:       "<invalid>",
	Derive:        "Derive",
	RegisterType:  "RegisterType",
	Reflect:       "Reflect",
	Name:          "Name",
	AddEvent:      "AddEvent",
	InitResource:  "InitResource",
	InitState:     "InitState",
	AddSystem:     "AddSystem",
	AddObserver:   "AddObserver",
	ConfigureSet:  "ConfigureSet",
	AutoComponent: "AutoComponent",
	AutoResource:  "AutoResource",
	AutoEvent:     "AutoEvent",
	AutoState:     "AutoState",
	AutoSystem:    "AutoSystem",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, numKinds)
	for k := Kind(1); k < numKinds; k++ {
		m[kindNames[k]] = k
	}
	return m
}()

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("?%d?", int(k))
}

// IsShorthand reports whether the kind is rewritten into other kinds rather
// than emitted directly.
func (k Kind) IsShorthand() bool {
	return k >= AutoComponent && k < numKinds
}

// IsValid reports whether k is one of the enumerated kinds.
func (k Kind) IsValid() bool {
	return k > Invalid && k < numKinds
}

// Lookup returns the kind with the given name.
func Lookup(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// All returns every valid kind, in declaration order.
func All() []Kind {
	res := make([]Kind, 0, numKinds-1)
	for k := Kind(1); k < numKinds; k++ {
		res = append(res, k)
	}
	return res
}

// Shape is the kind of program item an annotation is attached to.
type Shape int

const (
	// Type is a named, top-level type declaration.
	Type Shape = iota
	// Func is a top-level function.
	Func
	// Method is a function with a receiver.
	Method
)

func (s Shape) String() string {
	switch s {
	case Type:
		return "types"
	case Func:
		return "functions"
	case Method:
		return "methods"
	default:
		return fmt.Sprintf("?%d?", int(s))
	}
}

// Shapes is a set of item shapes.
type Shapes []Shape

// Contains reports whether s is in the set.
func (ss Shapes) Contains(s Shape) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func (ss Shapes) String() string {
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = s.String()
	}
	return strings.Join(names, " and ")
}
