package catalog

import (
	"github.com/jhump/autoreg"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/rewrite"
	"github.com/jhump/autoreg/schema"
)

func traitsOf(tr autoreg.Trait) Traits {
	var t Traits
	t.set(tr)
	return t
}

func nameArgs(target schema.Target, gen schema.GenericsMany, name schema.Flag) *NameArgs {
	a := &NameArgs{Target: target, GenericsMany: gen}
	if name.HasText {
		a.Name = schema.StringOf(name.Text)
	}
	return a
}

// typeRule is the common shape of the type shorthands: derive, register, and
// reflect, followed by one kind-specific entry. Derive comes before reflect
// because reflection data is looked up from the derived traits.
func typeRule[S schema.Args](
	source kind.Kind,
	trait autoreg.Trait,
	base func(S) (schema.Target, schema.GenericsMany),
	flags func(S) (derive, register, reflect schema.Flag),
	last rewrite.Entry,
) rewrite.Rule {
	return rewrite.Rule{
		Source: source,
		Entries: []rewrite.Entry{
			rewrite.Produce(kind.Derive,
				func(a S) bool {
					d, _, _ := flags(a)
					return d.Enabled()
				},
				func(a S) *DeriveArgs {
					_, gen := base(a)
					return &DeriveArgs{GenericsMany: gen, Traits: traitsOf(trait)}
				}),
			rewrite.Produce(kind.RegisterType,
				func(a S) bool {
					_, r, _ := flags(a)
					return r.Enabled()
				},
				func(a S) *RegisterTypeArgs {
					target, gen := base(a)
					return &RegisterTypeArgs{Target: target, GenericsMany: gen}
				}),
			rewrite.Produce(kind.Reflect,
				func(a S) bool {
					_, _, r := flags(a)
					return r.Enabled()
				},
				func(a S) *ReflectArgs {
					target, gen := base(a)
					return &ReflectArgs{Target: target, GenericsMany: gen, Traits: traitsOf(trait)}
				}),
			last,
		},
	}
}

var autoComponentRule = typeRule(kind.AutoComponent, autoreg.Component,
	func(a *AutoComponentArgs) (schema.Target, schema.GenericsMany) { return a.Target, a.GenericsMany },
	func(a *AutoComponentArgs) (schema.Flag, schema.Flag, schema.Flag) { return a.Derive, a.Register, a.Reflect },
	rewrite.Produce(kind.Name,
		func(a *AutoComponentArgs) bool { return a.Name.Enabled() },
		func(a *AutoComponentArgs) *NameArgs { return nameArgs(a.Target, a.GenericsMany, a.Name) }),
)

var autoResourceRule = typeRule(kind.AutoResource, autoreg.Resource,
	func(a *AutoResourceArgs) (schema.Target, schema.GenericsMany) { return a.Target, a.GenericsMany },
	func(a *AutoResourceArgs) (schema.Flag, schema.Flag, schema.Flag) { return a.Derive, a.Register, a.Reflect },
	rewrite.Produce(kind.InitResource,
		func(a *AutoResourceArgs) bool { return a.Init.Enabled() },
		func(a *AutoResourceArgs) *InitResourceArgs {
			return &InitResourceArgs{Target: a.Target, GenericsMany: a.GenericsMany}
		}),
)

var autoEventRule = typeRule(kind.AutoEvent, autoreg.Event,
	func(a *AutoEventArgs) (schema.Target, schema.GenericsMany) { return a.Target, a.GenericsMany },
	func(a *AutoEventArgs) (schema.Flag, schema.Flag, schema.Flag) { return a.Derive, a.Register, a.Reflect },
	rewrite.Produce(kind.AddEvent, nil,
		func(a *AutoEventArgs) *AddEventArgs {
			return &AddEventArgs{Target: a.Target, GenericsMany: a.GenericsMany}
		}),
)

var autoStateRule = typeRule(kind.AutoState, autoreg.State,
	func(a *AutoStateArgs) (schema.Target, schema.GenericsMany) { return a.Target, schema.GenericsMany{} },
	func(a *AutoStateArgs) (schema.Flag, schema.Flag, schema.Flag) { return a.Derive, a.Register, a.Reflect },
	rewrite.Produce(kind.InitState,
		func(a *AutoStateArgs) bool { return a.Init.Enabled() },
		func(a *AutoStateArgs) *InitStateArgs { return &InitStateArgs{Target: a.Target} }),
)

var autoSystemRule = rewrite.Rule{
	Source: kind.AutoSystem,
	Entries: []rewrite.Entry{
		rewrite.Produce(kind.AddSystem,
			func(a *AutoSystemArgs) bool { return !a.Observer.Enabled() },
			func(a *AutoSystemArgs) *AddSystemArgs {
				return &AddSystemArgs{Target: a.Target, GenericsMany: a.GenericsMany, Schedule: a.Schedule}
			}),
		rewrite.Produce(kind.AddObserver,
			func(a *AutoSystemArgs) bool { return a.Observer.Enabled() },
			func(a *AutoSystemArgs) *AddObserverArgs {
				res := &AddObserverArgs{Target: a.Target}
				if len(a.Entries) > 0 {
					entry := a.Entries[0]
					res.Entry = &entry
				}
				return res
			}),
	},
}
