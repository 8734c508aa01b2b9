package catalog

import (
	"github.com/jhump/autoreg"
	"github.com/jhump/autoreg/parser"
	"github.com/jhump/autoreg/schema"
)

// Traits is a flag per derivable trait.
type Traits struct {
	Component, Resource, Event, State schema.Flag
}

func (t *Traits) flags() schema.FlagSet {
	return schema.FlagSet{
		schema.BoolFlag("component", &t.Component),
		schema.BoolFlag("resource", &t.Resource),
		schema.BoolFlag("event", &t.Event),
		schema.BoolFlag("state", &t.State),
	}
}

// Enabled returns the enabled traits in declaration order.
func (t *Traits) Enabled() []autoreg.Trait {
	var res []autoreg.Trait
	for _, f := range []struct {
		flag  schema.Flag
		trait autoreg.Trait
	}{
		{t.Component, autoreg.Component},
		{t.Resource, autoreg.Resource},
		{t.Event, autoreg.Event},
		{t.State, autoreg.State},
	} {
		if f.flag.Enabled() {
			res = append(res, f.trait)
		}
	}
	return res
}

func (t *Traits) set(tr autoreg.Trait) {
	switch tr {
	case autoreg.Component:
		t.Component = schema.On()
	case autoreg.Resource:
		t.Resource = schema.On()
	case autoreg.Event:
		t.Event = schema.On()
	case autoreg.State:
		t.State = schema.On()
	}
}

func requireTrait(t *Traits, raw parser.Annotation) error {
	if len(t.Enabled()) == 0 {
		return schema.NewError(schema.MissingKey, "", raw.Span, "at least one of component, resource, event, or state is required")
	}
	return nil
}

// DeriveArgs are the arguments of @Derive. Deriving has no registry: it runs
// directly in init.
type DeriveArgs struct {
	schema.GenericsMany
	Traits
}

func (a *DeriveArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.GenericsMany, a.Traits.flags()}
}

func (a *DeriveArgs) Validate(raw parser.Annotation) error {
	return requireTrait(&a.Traits, raw)
}

// RegisterTypeArgs are the arguments of @RegisterType.
type RegisterTypeArgs struct {
	schema.Target
	schema.GenericsMany
}

func (a *RegisterTypeArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany}
}

// ReflectArgs are the arguments of @Reflect. Each named trait must also be
// derived for the type.
type ReflectArgs struct {
	schema.Target
	schema.GenericsMany
	Traits
}

func (a *ReflectArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany, a.Traits.flags()}
}

func (a *ReflectArgs) Validate(raw parser.Annotation) error {
	return requireTrait(&a.Traits, raw)
}

// NameArgs are the arguments of @Name. Without a name, the item's name is
// used.
type NameArgs struct {
	schema.Target
	schema.GenericsMany
	Name schema.String
}

func (a *NameArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany, schema.Fields{schema.StringField("name", false, &a.Name)}}
}

// AddEventArgs are the arguments of @AddEvent.
type AddEventArgs struct {
	schema.Target
	schema.GenericsMany
}

func (a *AddEventArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany}
}

// InitResourceArgs are the arguments of @InitResource.
type InitResourceArgs struct {
	schema.Target
	schema.GenericsMany
}

func (a *InitResourceArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany}
}

// InitStateArgs are the arguments of @InitState. States cannot be generic.
type InitStateArgs struct {
	schema.Target
	schema.GenericsNone
}

func (a *InitStateArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsNone}
}

// AddSystemArgs are the arguments of @AddSystem.
type AddSystemArgs struct {
	schema.Target
	schema.GenericsMany
	Schedule schema.Path
}

func (a *AddSystemArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany, schema.Fields{schema.PathField("schedule", true, &a.Schedule)}}
}

// AddObserverArgs are the arguments of @AddObserver.
type AddObserverArgs struct {
	schema.Target
	schema.GenericsOne
}

func (a *AddObserverArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsOne}
}

// ConfigureSetArgs are the arguments of @ConfigureSet. The registration is
// about the set, not the annotated item, so the same set configured from two
// items is configured once.
type ConfigureSetArgs struct {
	schema.Target
	schema.GenericsNone
	Schedule schema.Path
	Set      schema.Path
}

func (a *ConfigureSetArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsNone, schema.Fields{
		schema.PathField("schedule", true, &a.Schedule),
		schema.PathField("set", true, &a.Set),
	}}
}

// AutoComponentArgs are the arguments of @AutoComponent. The name flag may
// carry a string to use instead of the item's name.
type AutoComponentArgs struct {
	schema.Target
	schema.GenericsMany
	Derive, Register, Reflect, Name schema.Flag
}

func (a *AutoComponentArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany, schema.FlagSet{
		schema.BoolFlag("derive", &a.Derive),
		schema.BoolFlag("register", &a.Register),
		schema.BoolFlag("reflect", &a.Reflect),
		schema.StringFlag("name", &a.Name),
	}}
}

// AutoResourceArgs are the arguments of @AutoResource.
type AutoResourceArgs struct {
	schema.Target
	schema.GenericsMany
	Derive, Register, Reflect, Init schema.Flag
}

func (a *AutoResourceArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany, schema.FlagSet{
		schema.BoolFlag("derive", &a.Derive),
		schema.BoolFlag("register", &a.Register),
		schema.BoolFlag("reflect", &a.Reflect),
		schema.BoolFlag("init", &a.Init),
	}}
}

// AutoEventArgs are the arguments of @AutoEvent. The event is always added.
type AutoEventArgs struct {
	schema.Target
	schema.GenericsMany
	Derive, Register, Reflect schema.Flag
}

func (a *AutoEventArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany, schema.FlagSet{
		schema.BoolFlag("derive", &a.Derive),
		schema.BoolFlag("register", &a.Register),
		schema.BoolFlag("reflect", &a.Reflect),
	}}
}

// AutoStateArgs are the arguments of @AutoState.
type AutoStateArgs struct {
	schema.Target
	schema.GenericsNone
	Derive, Register, Reflect, Init schema.Flag
}

func (a *AutoStateArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsNone, schema.FlagSet{
		schema.BoolFlag("derive", &a.Derive),
		schema.BoolFlag("register", &a.Register),
		schema.BoolFlag("reflect", &a.Reflect),
		schema.BoolFlag("init", &a.Init),
	}}
}

// AutoSystemArgs are the arguments of @AutoSystem. A system is either added
// to a schedule or, with the observer flag, added as an observer.
type AutoSystemArgs struct {
	schema.Target
	schema.GenericsMany
	Schedule schema.Path
	Observer schema.Flag
}

func (a *AutoSystemArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany,
		schema.Fields{schema.PathField("schedule", false, &a.Schedule)},
		schema.FlagSet{schema.BoolFlag("observer", &a.Observer)},
	}
}

func (a *AutoSystemArgs) Validate(raw parser.Annotation) error {
	switch {
	case a.Observer.Enabled() && a.Schedule.Present:
		return schema.NewError(schema.ConflictingValue, "schedule", a.Schedule.Ref.Span, "observers are not added to a schedule")
	case a.Observer.Enabled() && len(a.Entries) > 1:
		return schema.NewError(schema.InvalidValue, "generics", a.Entries[1].Span, "observers accept at most one generics entry")
	case !a.Observer.Enabled() && !a.Schedule.Present:
		return schema.NewError(schema.MissingKey, "schedule", raw.Span, "missing required key \"schedule\"")
	}
	return nil
}
