package autoreg

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

//go:generate autoreg gen ./...

// Trait is a capability that generated code derives for a type. Deriving a
// trait records it in a process-wide table; reflection data for the trait can
// then be registered with a registry. For example:
//
//	// @AutoComponent(plugin: app.Plugin, derive, reflect)
//	type Position struct {
//	    X, Y float64
//	}
//
// Running the generator on the package derives Component for Position in an
// init function and, when the registry is built, registers its reflection
// data using MustDerived.
type Trait int

const (
	// Component marks types that are attached to entities.
	Component Trait = iota + 1

	// Resource marks types that have a single, global instance.
	Resource

	// Event marks types that are sent and observed as messages.
	Event

	// State marks types that drive a state machine.
	State
)

func (t Trait) String() string {
	switch t {
	case Component:
		return "component"
	case Resource:
		return "resource"
	case Event:
		return "event"
	case State:
		return "state"
	default:
		return fmt.Sprintf("?%d?", int(t))
	}
}

// TypeData is the reflection data registered for a type with a derived trait.
type TypeData struct {
	Type  reflect.Type
	Trait Trait
}

func (d TypeData) String() string {
	return fmt.Sprintf("%v(%v)", d.Trait, d.Type)
}

// TypeOf returns the reflect.Type for T. Generated code uses it to name
// types, including instantiations of generic types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

var derived = struct {
	mu     sync.RWMutex
	traits map[reflect.Type]map[Trait]struct{}
}{traits: map[reflect.Type]map[Trait]struct{}{}}

// Derive records the given traits for t. Deriving a trait that was already
// derived is a no-op.
func Derive(t reflect.Type, traits ...Trait) {
	derived.mu.Lock()
	defer derived.mu.Unlock()
	set := derived.traits[t]
	if set == nil {
		set = map[Trait]struct{}{}
		derived.traits[t] = set
	}
	for _, tr := range traits {
		set[tr] = struct{}{}
	}
}

// Derived returns the reflection data for the given type and trait, if the
// trait has been derived.
func Derived(t reflect.Type, tr Trait) (TypeData, bool) {
	derived.mu.RLock()
	defer derived.mu.RUnlock()
	if _, ok := derived.traits[t][tr]; !ok {
		return TypeData{}, false
	}
	return TypeData{Type: t, Trait: tr}, true
}

// MustDerived is like Derived except it panics if the trait has not been
// derived for t.
func MustDerived(t reflect.Type, tr Trait) TypeData {
	d, ok := Derived(t, tr)
	if !ok {
		panic(fmt.Sprintf("autoreg: %v has not been derived for %v", tr, t))
	}
	return d
}

// Traits returns the traits derived for t, in declaration order.
func Traits(t reflect.Type) []Trait {
	derived.mu.RLock()
	defer derived.mu.RUnlock()
	res := make([]Trait, 0, len(derived.traits[t]))
	for tr := range derived.traits[t] {
		res = append(res, tr)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}
