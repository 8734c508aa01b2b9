// Package schema declares the argument shapes of annotation kinds and parses
// raw annotations into typed values.
//
// A schema is not described by a table. Instead, each annotation kind has a
// concrete struct that embeds the mixins it needs:
//
//	type RegisterTypeArgs struct {
//		schema.Target
//		schema.GenericsMany
//	}
//
//	func (a *RegisterTypeArgs) Mixins() []schema.Mixin {
//		return []schema.Mixin{&a.Target, &a.GenericsMany}
//	}
//
// Each mixin claims a disjoint set of keys. Parse routes every argument of a
// raw annotation to the mixin that claims its key, then asks each mixin to
// check for missing required keys. Violations are aggregated, so a single
// call reports everything wrong with one annotation.
package schema

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/jhump/autoreg/parser"
)

// Args is the typed argument value of one annotation kind.
type Args interface {
	// Mixins returns pointers to the mixins that make up the value, in the
	// order their keys should be serialized.
	Mixins() []Mixin
}

// Validator is implemented by Args that need checks spanning more than one
// mixin. Validate is called after all mixins have been populated.
type Validator interface {
	Validate(raw parser.Annotation) error
}

// Key is one key claimed by a mixin.
type Key struct {
	Name string
	// Repeatable keys may appear more than once in one annotation.
	Repeatable bool
}

// Mixin is a reusable fragment of an annotation schema. The set of mixins is
// closed; they are all defined in this package.
type Mixin interface {
	// Keys returns the keys claimed by this mixin.
	Keys() []Key

	accept(key string, m parser.Meta) error
	finish(raw parser.Annotation) error
	encode(e *encoder)
}

// GenericsSource is implemented by all generics mixins and, through
// embedding, by any Args that include one.
type GenericsSource interface {
	GenericsEntries() []GenericsEntry
}

// TargetSource is implemented by the Target mixin and, through embedding, by
// any Args that include it.
type TargetSource interface {
	TargetRef() parser.Identifier
}

type owner struct {
	mixin Mixin
	key   Key
}

func keyOwners(mixins []Mixin) (map[string]owner, error) {
	owners := map[string]owner{}
	for _, m := range mixins {
		for _, k := range m.Keys() {
			if _, ok := owners[k.Name]; ok {
				return nil, errors.Newf("key %q is claimed by more than one mixin", k.Name)
			}
			owners[k.Name] = owner{mixin: m, key: k}
		}
	}
	return owners, nil
}

// Validate checks that the mixins of args claim disjoint key sets. A failure
// indicates a badly declared schema, not bad input.
func Validate(args Args) error {
	_, err := keyOwners(args.Mixins())
	return err
}

// KeyNames returns the sorted names of all keys accepted by args.
func KeyNames(args Args) []string {
	var names []string
	for _, m := range args.Mixins() {
		for _, k := range m.Keys() {
			names = append(names, k.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Parse populates args from the given raw annotation. The returned error, if
// not nil, combines every violation found; use Errors to enumerate them.
func Parse(raw parser.Annotation, args Args) error {
	mixins := args.Mixins()
	owners, err := keyOwners(mixins)
	if err != nil {
		return err
	}

	var errs error
	for _, m := range raw.Args {
		key, ok := parser.Key(m)
		if !ok {
			errs = multierr.Append(errs, newError(InvalidValue, "", m.Span(),
				"expecting a key, a flag, or key: value; got a positional value"))
			continue
		}
		o, ok := owners[key]
		if !ok {
			errs = multierr.Append(errs, unknownKey(key, m, owners))
			continue
		}
		errs = multierr.Append(errs, o.mixin.accept(key, m))
	}
	for _, m := range mixins {
		errs = multierr.Append(errs, m.finish(raw))
	}
	if errs != nil {
		return errs
	}
	if v, ok := args.(Validator); ok {
		return v.Validate(raw)
	}
	return nil
}

func unknownKey(key string, m parser.Meta, owners map[string]owner) *Error {
	span := m.Span()
	switch m := m.(type) {
	case *parser.NameValue:
		span = m.Name.Span
	case *parser.List:
		span = m.Name.Span
	}
	if len(owners) == 0 {
		return newError(UnknownKey, key, span, "unknown key %q: annotation takes no arguments", key)
	}
	names := make([]string, 0, len(owners))
	for n := range owners {
		names = append(names, n)
	}
	sort.Strings(names)
	return newError(UnknownKey, key, span, "unknown key %q: expecting one of %s", key, strings.Join(names, ", "))
}

type encoder struct {
	q     parser.Qualifier
	parts []string
}

func (e *encoder) add(s string) {
	e.parts = append(e.parts, s)
}

// Serialize renders args as annotation syntax that Parse accepts. References
// are printed through q, which may be nil.
func Serialize(kindName string, args Args, q parser.Qualifier) string {
	e := encoder{q: q}
	for _, m := range args.Mixins() {
		m.encode(&e)
	}
	return "@" + kindName + "(" + strings.Join(e.parts, ", ") + ")"
}

// Canonical renders args without the target reference and generics, which
// identify a registration separately. Two values that mean the same thing
// render identically.
func Canonical(args Args, q parser.Qualifier) string {
	e := encoder{q: q}
	for _, m := range args.Mixins() {
		switch m.(type) {
		case *Target, *GenericsNone, *GenericsOne, *GenericsMany:
			continue
		}
		m.encode(&e)
	}
	return strings.Join(e.parts, ", ")
}
