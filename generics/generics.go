// Package generics turns the "generics(...)" entries of one annotation into
// concrete instantiations of the annotated item's type parameters.
package generics

import (
	"fmt"
	"strings"

	"github.com/jhump/autoreg/parser"
	"github.com/jhump/autoreg/schema"
)

// Instantiation is one concrete resolution of an item's type parameters.
// Args is in declaration order. An empty instantiation is used for
// non-generic items.
type Instantiation struct {
	Args []parser.Type
	Span parser.Span
}

// IsEmpty reports whether the instantiation has no type arguments.
func (inst Instantiation) IsEmpty() bool {
	return len(inst.Args) == 0
}

// String renders the instantiation as a Go type argument list, such as
// "[uint32, bool]", or the empty string if it has no arguments.
func (inst Instantiation) String(q parser.Qualifier) string {
	if len(inst.Args) == 0 {
		return ""
	}
	parts := make([]string, len(inst.Args))
	for i, a := range inst.Args {
		parts[i] = parser.TypeString(a, q)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ArityError reports generics entries that do not match the item's type
// parameters, or each other.
type ArityError struct {
	Span parser.Span
	// Expected and Got are argument counts. They are equal when the problem
	// is with argument names rather than count.
	Expected, Got int
	Msg           string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%v: %s", e.Span, e.Msg)
}

// Pos returns the span of the offending entry.
func (e *ArityError) Pos() parser.Span {
	return e.Span
}

func arityError(span parser.Span, expected, got int, format string, args ...interface{}) *ArityError {
	return &ArityError{Span: span, Expected: expected, Got: got, Msg: fmt.Sprintf(format, args...)}
}

// Options control resolution.
type Options struct {
	// AllowDefault permits a generic item to be annotated without any
	// generics entries. One empty instantiation is produced. This is for
	// kinds whose output never names the item's type.
	AllowDefault bool
	// Span locates the annotation, for errors that are not about one entry.
	Span parser.Span
}

// Resolve validates entries against the declared type parameter names and
// returns one instantiation per entry, in source order.
func Resolve(declared []string, entries []schema.GenericsEntry, opts Options) ([]Instantiation, error) {
	if len(entries) == 0 {
		if len(declared) > 0 && !opts.AllowDefault {
			return nil, arityError(opts.Span, len(declared), 0,
				"item has type parameters [%s] but no generics(...) entry was given", strings.Join(declared, ", "))
		}
		return []Instantiation{{Span: opts.Span}}, nil
	}

	first := len(entries[0].Args)
	for _, e := range entries[1:] {
		if len(e.Args) != first {
			return nil, arityError(e.Span, first, len(e.Args),
				"generics entry has %d type arguments but the first entry has %d", len(e.Args), first)
		}
	}

	insts := make([]Instantiation, 0, len(entries))
	for _, e := range entries {
		inst, err := resolveEntry(declared, e)
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}
	return insts, nil
}

func resolveEntry(declared []string, e schema.GenericsEntry) (Instantiation, error) {
	if len(e.Args) != len(declared) {
		if len(declared) == 0 {
			return Instantiation{}, arityError(e.Span, 0, len(e.Args), "item has no type parameters")
		}
		return Instantiation{}, arityError(e.Span, len(declared), len(e.Args),
			"expecting %d type arguments for [%s], got %d", len(declared), strings.Join(declared, ", "), len(e.Args))
	}
	if len(e.Args) == 0 {
		return Instantiation{Span: e.Span}, nil
	}

	named := e.Args[0].Name != ""
	for _, a := range e.Args[1:] {
		if (a.Name != "") != named {
			return Instantiation{}, arityError(e.Span, len(declared), len(e.Args),
				"generics entry cannot mix positional and named type arguments")
		}
	}

	args := make([]parser.Type, len(declared))
	if !named {
		for i, a := range e.Args {
			args[i] = a.Type
		}
		return Instantiation{Args: args, Span: e.Span}, nil
	}

	index := make(map[string]int, len(declared))
	for i, name := range declared {
		index[name] = i
	}
	for _, a := range e.Args {
		i, ok := index[a.Name]
		if !ok {
			return Instantiation{}, arityError(a.Type.Span(), len(declared), len(e.Args),
				"unknown type parameter %q; expecting one of [%s]", a.Name, strings.Join(declared, ", "))
		}
		if args[i] != nil {
			return Instantiation{}, arityError(a.Type.Span(), len(declared), len(e.Args),
				"type parameter %q given more than once", a.Name)
		}
		args[i] = a.Type
	}
	// With counts equal and no duplicates, every parameter is bound.
	return Instantiation{Args: args, Span: e.Span}, nil
}
