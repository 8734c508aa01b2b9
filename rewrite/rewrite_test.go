package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/autoreg/emit"
	"github.com/jhump/autoreg/generics"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/parser"
	"github.com/jhump/autoreg/schema"
)

type shortArgs struct {
	schema.Target
	schema.GenericsMany
	Derive, Register schema.Flag
}

func (a *shortArgs) Mixins() []schema.Mixin {
	return []schema.Mixin{&a.Target, &a.GenericsMany,
		schema.FlagSet{schema.BoolFlag("derive", &a.Derive), schema.BoolFlag("register", &a.Register)}}
}

type deriveArgs struct {
	schema.GenericsMany
}

func (a *deriveArgs) Mixins() []schema.Mixin { return []schema.Mixin{&a.GenericsMany} }

type registerArgs struct {
	schema.Target
	schema.GenericsMany
}

func (a *registerArgs) Mixins() []schema.Mixin { return []schema.Mixin{&a.Target, &a.GenericsMany} }

func testRule() Rule {
	return Rule{
		Source: kind.AutoComponent,
		Entries: []Entry{
			Produce(kind.Derive, func(a *shortArgs) bool { return a.Derive.Enabled() },
				func(a *shortArgs) *deriveArgs { return &deriveArgs{GenericsMany: a.GenericsMany} }),
			Produce(kind.RegisterType, func(a *shortArgs) bool { return a.Register.Enabled() },
				func(a *shortArgs) *registerArgs {
					return &registerArgs{Target: a.Target, GenericsMany: a.GenericsMany}
				}),
			Produce(kind.AddEvent, nil,
				func(a *shortArgs) *registerArgs {
					return &registerArgs{Target: a.Target, GenericsMany: a.GenericsMany}
				}),
		},
	}
}

func isTerminal(k kind.Kind) bool { return k.IsValid() && !k.IsShorthand() }

func parse(t *testing.T, s string, args schema.Args) {
	t.Helper()
	raw, err := parser.ParseAnnotation(s)
	require.NoError(t, err)
	require.NoError(t, schema.Parse(raw, args))
}

func kinds(outs []Output) []kind.Kind {
	var res []kind.Kind
	for _, o := range outs {
		res = append(res, o.Kind)
	}
	return res
}

func TestExpand_OrderAndPredicates(t *testing.T) {
	rule := testRule()

	var args shortArgs
	parse(t, `@AutoComponent(plugin: app.Plugin, generics(uint32), register, derive)`, &args)
	outs := rule.Expand(&args)
	assert.Equal(t, []kind.Kind{kind.Derive, kind.RegisterType, kind.AddEvent}, kinds(outs))

	reg := outs[1].Args.(*registerArgs)
	assert.Equal(t, "app.Plugin", reg.TargetRef().String())
	require.Len(t, reg.GenericsEntries(), 1)
	assert.Equal(t, "generics(uint32)", reg.GenericsEntries()[0].String(nil))

	var none shortArgs
	parse(t, `@AutoComponent(plugin: app.Plugin, derive: false)`, &none)
	assert.Equal(t, []kind.Kind{kind.AddEvent}, kinds(rule.Expand(&none)))
}

func TestExpand_Idempotent(t *testing.T) {
	rules := map[kind.Kind]Rule{kind.AutoComponent: testRule()}
	require.NoError(t, Validate(rules, isTerminal))

	var args shortArgs
	parse(t, `@AutoComponent(plugin: app.Plugin, derive, register)`, &args)
	first := rules[kind.AutoComponent].Expand(&args)
	for _, o := range first {
		_, again := rules[o.Kind]
		assert.False(t, again, "%v would be rewritten again", o.Kind)
	}
}

func TestValidate(t *testing.T) {
	identity := func(a *shortArgs) *shortArgs { return a }
	testCases := []struct {
		name  string
		rule  Rule
		under kind.Kind
	}{
		{
			name:  "self reference",
			rule:  Rule{Source: kind.AutoComponent, Entries: []Entry{Produce(kind.AutoComponent, nil, identity)}},
			under: kind.AutoComponent,
		},
		{
			name:  "other shorthand",
			rule:  Rule{Source: kind.AutoComponent, Entries: []Entry{Produce(kind.AutoEvent, nil, identity)}},
			under: kind.AutoComponent,
		},
		{
			name:  "unknown kind",
			rule:  Rule{Source: kind.AutoComponent, Entries: []Entry{Produce(kind.Kind(999), nil, identity)}},
			under: kind.AutoComponent,
		},
		{
			name:  "wrong source",
			rule:  testRule(),
			under: kind.AutoEvent,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(map[kind.Kind]Rule{tc.under: tc.rule}, isTerminal)
			var cycleErr *CycleError
			require.ErrorAs(t, err, &cycleErr)
			assert.Equal(t, tc.under, cycleErr.Source)
		})
	}
}

func unit(t *testing.T, k kind.Kind, registry string, inst string, facets ...string) emit.Unit {
	t.Helper()
	u := emit.Unit{Kind: k, Facets: facets}
	if registry != "" {
		u.Registry = &emit.Ref{Pkg: "example.com/" + registry, Name: "Plugin"}
	}
	if inst != "" {
		typ, err := parser.ParseType(inst)
		require.NoError(t, err)
		u.Instantiation = generics.Instantiation{Args: []parser.Type{typ}}
	}
	return u
}

func unitKinds(units []emit.Unit) []kind.Kind {
	var res []kind.Kind
	for _, u := range units {
		res = append(res, u.Kind)
	}
	return res
}

func TestSuppress(t *testing.T) {
	units := []emit.Unit{
		unit(t, kind.Derive, "", "", "component"),
		unit(t, kind.RegisterType, "app", ""),
		unit(t, kind.AddEvent, "app", ""),
	}

	kept, suppressed := Suppress(units, []emit.Unit{unit(t, kind.RegisterType, "app", "")})
	assert.Equal(t, []kind.Kind{kind.Derive, kind.AddEvent}, unitKinds(kept))
	assert.Equal(t, []kind.Kind{kind.RegisterType}, unitKinds(suppressed))

	kept, suppressed = Suppress(units, []emit.Unit{unit(t, kind.RegisterType, "other", "")})
	assert.Equal(t, []kind.Kind{kind.Derive, kind.RegisterType, kind.AddEvent}, unitKinds(kept))
	assert.Empty(t, suppressed)
}

func TestSuppress_PerInstantiation(t *testing.T) {
	units := []emit.Unit{
		unit(t, kind.RegisterType, "app", "uint32"),
		unit(t, kind.RegisterType, "app", "bool"),
	}
	kept, suppressed := Suppress(units, []emit.Unit{unit(t, kind.RegisterType, "app", "uint32")})
	require.Len(t, kept, 1)
	assert.Equal(t, "[bool]", kept[0].Instantiation.String(nil))
	require.Len(t, suppressed, 1)
	assert.Equal(t, "[uint32]", suppressed[0].Instantiation.String(nil))
}

func TestSuppress_Facets(t *testing.T) {
	units := []emit.Unit{
		unit(t, kind.Derive, "", "", "component"),
		unit(t, kind.Reflect, "app", "", "component"),
	}

	// another trait leaves the rewritten derive in place
	kept, suppressed := Suppress(units, []emit.Unit{unit(t, kind.Derive, "", "", "resource")})
	assert.Equal(t, []kind.Kind{kind.Derive, kind.Reflect}, unitKinds(kept))
	assert.Empty(t, suppressed)

	// a derive covering every trait replaces it
	kept, suppressed = Suppress(units, []emit.Unit{unit(t, kind.Derive, "", "", "resource", "component")})
	assert.Equal(t, []kind.Kind{kind.Reflect}, unitKinds(kept))
	assert.Equal(t, []kind.Kind{kind.Derive}, unitKinds(suppressed))

	// partial coverage keeps the whole unit
	kept, _ = Suppress([]emit.Unit{unit(t, kind.Derive, "", "", "component", "event")},
		[]emit.Unit{unit(t, kind.Derive, "", "", "component")})
	assert.Len(t, kept, 1)
}
