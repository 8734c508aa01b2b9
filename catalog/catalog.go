// Package catalog is the dispatch table of annotation kinds. For each kind it
// records the item shapes the kind applies to, how to construct its argument
// schema, and either the emitter (for terminal kinds) or the rewrite rule
// (for shorthands).
//
// Adding a kind means adding a constant to package kind, an argument struct,
// and an entry here. Nothing else dispatches on kinds.
package catalog

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/jhump/autoreg/emit"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/rewrite"
	"github.com/jhump/autoreg/schema"
)

// Entry describes one annotation kind.
type Entry struct {
	Kind   kind.Kind
	Shapes kind.Shapes
	// New returns an empty argument value for the kind.
	New func() schema.Args
	// AllowDefaultGenerics lets the kind annotate a generic item without a
	// generics entry. See generics.Options.
	AllowDefaultGenerics bool
	// Emit is set for terminal kinds.
	Emit emit.Emitter
	// Rule is set for shorthand kinds.
	Rule *rewrite.Rule
	// Doc is a one-line description, shown by the CLI.
	Doc string
}

// IsTerminal reports whether the entry is emitted directly.
func (e *Entry) IsTerminal() bool {
	return e.Rule == nil
}

// Catalog maps kinds to entries.
type Catalog struct {
	entries map[kind.Kind]*Entry
}

// New returns a catalog with the given entries. It does not validate them;
// call Validate for that.
func New(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[kind.Kind]*Entry, len(entries))}
	for i := range entries {
		e := entries[i]
		c.entries[e.Kind] = &e
	}
	return c
}

// Lookup returns the entry for k.
func (c *Catalog) Lookup(k kind.Kind) (*Entry, bool) {
	e, ok := c.entries[k]
	return e, ok
}

// Kinds returns the kinds in the catalog, in declaration order.
func (c *Catalog) Kinds() []kind.Kind {
	var res []kind.Kind
	for _, k := range kind.All() {
		if _, ok := c.entries[k]; ok {
			res = append(res, k)
		}
	}
	return res
}

// IsTerminal reports whether k is in the catalog and is terminal.
func (c *Catalog) IsTerminal(k kind.Kind) bool {
	e, ok := c.entries[k]
	return ok && e.IsTerminal()
}

// Rules returns the rewrite rules of all shorthand kinds.
func (c *Catalog) Rules() map[kind.Kind]rewrite.Rule {
	rules := map[kind.Kind]rewrite.Rule{}
	for k, e := range c.entries {
		if e.Rule != nil {
			rules[k] = *e.Rule
		}
	}
	return rules
}

// Validate checks the catalog for configuration errors: kinds with neither
// or both of an emitter and a rule, shorthand flags that disagree with the
// kind's class, argument schemas whose mixins overlap, and rewrite rules that
// could rewrite their own output. A *rewrite.CycleError in the result means
// the rule table is unusable.
func (c *Catalog) Validate() error {
	var errs error
	for _, k := range c.Kinds() {
		e := c.entries[k]
		switch {
		case e.New == nil:
			errs = multierr.Append(errs, errors.Newf("%v: no argument schema", k))
			continue
		case e.Emit == nil && e.Rule == nil:
			errs = multierr.Append(errs, errors.Newf("%v: neither an emitter nor a rewrite rule", k))
		case e.Emit != nil && e.Rule != nil:
			errs = multierr.Append(errs, errors.Newf("%v: both an emitter and a rewrite rule", k))
		case k.IsShorthand() != (e.Rule != nil):
			errs = multierr.Append(errs, errors.Newf("%v: shorthand kinds need a rewrite rule and terminal kinds an emitter", k))
		}
		if len(e.Shapes) == 0 {
			errs = multierr.Append(errs, errors.Newf("%v: applies to no item shapes", k))
		}
		if err := schema.Validate(e.New()); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "%v", k))
		}
	}
	if err := rewrite.Validate(c.Rules(), c.IsTerminal); err != nil {
		return multierr.Append(err, errs)
	}
	return errs
}

var (
	typesOnly     = kind.Shapes{kind.Type}
	funcsOnly     = kind.Shapes{kind.Func}
	typesAndFuncs = kind.Shapes{kind.Type, kind.Func}
)

var defaultEntries = []Entry{
	{
		Kind:   kind.Derive,
		Shapes: typesOnly,
		New:    func() schema.Args { return &DeriveArgs{} },
		Emit:   emitDerive,
		Doc:    "derives traits for a type; runs directly in init",
	},
	{
		Kind:   kind.RegisterType,
		Shapes: typesOnly,
		New:    func() schema.Args { return &RegisterTypeArgs{} },
		Emit:   typeMethod("RegisterType"),
		Doc:    "registers a type with the registry",
	},
	{
		Kind:   kind.Reflect,
		Shapes: typesOnly,
		New:    func() schema.Args { return &ReflectArgs{} },
		Emit:   emitReflect,
		Doc:    "registers reflection data for derived traits",
	},
	{
		Kind:   kind.Name,
		Shapes: typesOnly,
		New:    func() schema.Args { return &NameArgs{} },
		Emit:   emitName,
		Doc:    "sets a type's display name",
	},
	{
		Kind:   kind.AddEvent,
		Shapes: typesOnly,
		New:    func() schema.Args { return &AddEventArgs{} },
		Emit:   typeMethod("AddEvent"),
		Doc:    "adds an event type",
	},
	{
		Kind:   kind.InitResource,
		Shapes: typesOnly,
		New:    func() schema.Args { return &InitResourceArgs{} },
		Emit:   typeMethod("InitResource"),
		Doc:    "initializes a resource from its zero value",
	},
	{
		Kind:   kind.InitState,
		Shapes: typesOnly,
		New:    func() schema.Args { return &InitStateArgs{} },
		Emit:   typeMethod("InitState"),
		Doc:    "initializes a state machine",
	},
	{
		Kind:   kind.AddSystem,
		Shapes: funcsOnly,
		New:    func() schema.Args { return &AddSystemArgs{} },
		Emit:   emitAddSystem,
		Doc:    "adds a system function to a schedule",
	},
	{
		Kind:   kind.AddObserver,
		Shapes: funcsOnly,
		New:    func() schema.Args { return &AddObserverArgs{} },
		Emit:   emitAddObserver,
		Doc:    "adds an observer function",
	},
	{
		Kind:                 kind.ConfigureSet,
		Shapes:               typesAndFuncs,
		New:                  func() schema.Args { return &ConfigureSetArgs{} },
		AllowDefaultGenerics: true,
		Emit:                 emitConfigureSet,
		Doc:                  "configures a system set in a schedule",
	},
	{
		Kind:   kind.AutoComponent,
		Shapes: typesOnly,
		New:    func() schema.Args { return &AutoComponentArgs{} },
		Rule:   &autoComponentRule,
		Doc:    "derive, register, reflect, and name a component",
	},
	{
		Kind:   kind.AutoResource,
		Shapes: typesOnly,
		New:    func() schema.Args { return &AutoResourceArgs{} },
		Rule:   &autoResourceRule,
		Doc:    "derive, register, reflect, and initialize a resource",
	},
	{
		Kind:   kind.AutoEvent,
		Shapes: typesOnly,
		New:    func() schema.Args { return &AutoEventArgs{} },
		Rule:   &autoEventRule,
		Doc:    "derive, register, reflect, and add an event",
	},
	{
		Kind:   kind.AutoState,
		Shapes: typesOnly,
		New:    func() schema.Args { return &AutoStateArgs{} },
		Rule:   &autoStateRule,
		Doc:    "derive, register, reflect, and initialize a state",
	},
	{
		Kind:   kind.AutoSystem,
		Shapes: funcsOnly,
		New:    func() schema.Args { return &AutoSystemArgs{} },
		Rule:   &autoSystemRule,
		Doc:    "add a system to a schedule, or as an observer",
	},
}

// Default returns the catalog of built-in kinds.
func Default() *Catalog {
	return New(defaultEntries...)
}
