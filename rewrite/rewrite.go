// Package rewrite expands shorthand annotations into the terminal annotations
// they stand for.
//
// A shorthand is rewritten exactly once. Rules may only produce terminal
// kinds, so rewriting never feeds back into itself; Validate enforces this
// for a whole rule table.
package rewrite

import (
	"fmt"
	"sort"

	"github.com/jhump/autoreg/emit"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/schema"
)

// Entry is one step of a rule: when When reports true for the shorthand's
// arguments, an annotation of kind Target with arguments Project(args) is
// produced.
type Entry struct {
	Target  kind.Kind
	When    func(schema.Args) bool
	Project func(schema.Args) schema.Args
}

// Produce builds a type-safe entry. S is the shorthand's argument type and
// T the target's. A nil when always holds.
func Produce[S, T schema.Args](target kind.Kind, when func(S) bool, project func(S) T) Entry {
	e := Entry{
		Target: target,
		Project: func(a schema.Args) schema.Args {
			return project(a.(S))
		},
	}
	if when == nil {
		e.When = func(schema.Args) bool { return true }
	} else {
		e.When = func(a schema.Args) bool {
			return when(a.(S))
		}
	}
	return e
}

// Rule maps a shorthand kind to an ordered list of entries. Order matters:
// later outputs may rely on the effects of earlier ones.
type Rule struct {
	Source  kind.Kind
	Entries []Entry
}

// Output is one annotation produced by a rule.
type Output struct {
	Kind kind.Kind
	Args schema.Args
}

// Expand applies the rule to the shorthand's parsed arguments. One output is
// produced per entry whose predicate holds, in entry order.
func (r Rule) Expand(args schema.Args) []Output {
	var out []Output
	for _, e := range r.Entries {
		if e.When(args) {
			out = append(out, Output{Kind: e.Target, Args: e.Project(args)})
		}
	}
	return out
}

// Targets returns the kinds the rule can produce, in entry order.
func (r Rule) Targets() []kind.Kind {
	res := make([]kind.Kind, len(r.Entries))
	for i, e := range r.Entries {
		res[i] = e.Target
	}
	return res
}

// CycleError indicates a rule table that could rewrite its own output. It is
// a defect in the table, never in user input.
type CycleError struct {
	Source kind.Kind
	Target kind.Kind
	Reason string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("rewrite rule for %v produces %v: %s", e.Source, e.Target, e.Reason)
}

// Validate checks that every rule produces only terminal kinds. isTerminal
// reports whether a kind is known and terminal.
func Validate(rules map[kind.Kind]Rule, isTerminal func(kind.Kind) bool) error {
	sources := make([]kind.Kind, 0, len(rules))
	for k := range rules {
		sources = append(sources, k)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	for _, src := range sources {
		r := rules[src]
		if r.Source != src {
			return &CycleError{Source: src, Target: r.Source, Reason: "rule is registered under the wrong source kind"}
		}
		for _, e := range r.Entries {
			switch {
			case e.Target == src:
				return &CycleError{Source: src, Target: e.Target, Reason: "rule references its own kind"}
			case !e.Target.IsValid():
				return &CycleError{Source: src, Target: e.Target, Reason: "target is not a known kind"}
			case !isTerminal(e.Target):
				return &CycleError{Source: src, Target: e.Target, Reason: "target is not a terminal kind"}
			case e.When == nil || e.Project == nil:
				return &CycleError{Source: src, Target: e.Target, Reason: "entry is missing its predicate or projection"}
			}
		}
	}
	return nil
}

// slot is one separable registration: a kind, a registry, one
// instantiation, and one facet of it.
type slot struct {
	k        kind.Kind
	registry string
	inst     string
	facet    string
}

func slots(u emit.Unit) []slot {
	base := slot{k: u.Kind, registry: u.RegistryID(), inst: u.Instantiation.String(nil)}
	if len(u.Facets) == 0 {
		return []slot{base}
	}
	res := make([]slot, len(u.Facets))
	for i, f := range u.Facets {
		res[i] = base
		res[i].facet = f
	}
	return res
}

// Suppress applies the precedence policy between rewritten units and units
// of annotations the user wrote directly on the same item: an authored unit
// wins over a rewritten unit of the same kind, registry, and instantiation.
// A rewritten unit with facets is dropped only if authored units cover every
// one of its facets; otherwise it is kept whole, so nothing the user did not
// write replaces it is lost. It returns the units to keep and those dropped.
func Suppress(units []emit.Unit, authored []emit.Unit) (kept, suppressed []emit.Unit) {
	covered := map[slot]struct{}{}
	for _, a := range authored {
		for _, sl := range slots(a) {
			covered[sl] = struct{}{}
		}
	}
	for _, u := range units {
		all := true
		for _, sl := range slots(u) {
			if _, ok := covered[sl]; !ok {
				all = false
				break
			}
		}
		if all {
			suppressed = append(suppressed, u)
		} else {
			kept = append(kept, u)
		}
	}
	return kept, suppressed
}
