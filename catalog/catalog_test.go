package catalog

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/autoreg/emit"
	"github.com/jhump/autoreg/generics"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/parser"
	"github.com/jhump/autoreg/rewrite"
	"github.com/jhump/autoreg/schema"
)

func parse(t *testing.T, k kind.Kind, s string) schema.Args {
	t.Helper()
	e, ok := Default().Lookup(k)
	require.True(t, ok)
	raw, err := parser.ParseAnnotation(s)
	require.NoError(t, err)
	args := e.New()
	require.NoError(t, schema.Parse(raw, args))
	return args
}

func TestDefault_Validate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, kind.All(), c.Kinds())
	for _, k := range c.Kinds() {
		e, _ := c.Lookup(k)
		assert.Equal(t, !k.IsShorthand(), e.IsTerminal(), "%v", k)
		assert.NotEmpty(t, e.Doc, "%v", k)
	}
}

func TestValidate_Cycle(t *testing.T) {
	bad := rewrite.Rule{
		Source: kind.AutoEvent,
		Entries: []rewrite.Entry{
			rewrite.Produce(kind.AutoComponent, nil, func(a *AutoEventArgs) *AutoComponentArgs {
				return &AutoComponentArgs{Target: a.Target}
			}),
		},
	}
	entries := append([]Entry(nil), defaultEntries...)
	for i := range entries {
		if entries[i].Kind == kind.AutoEvent {
			entries[i].Rule = &bad
		}
	}
	err := New(entries...).Validate()
	var cycleErr *rewrite.CycleError
	require.True(t, errors.As(err, &cycleErr), "%v", err)
	assert.Equal(t, kind.AutoEvent, cycleErr.Source)
	assert.Equal(t, kind.AutoComponent, cycleErr.Target)
}

func TestValidate_Misconfigured(t *testing.T) {
	err := New(
		Entry{Kind: kind.Derive, Shapes: typesOnly, New: func() schema.Args { return &DeriveArgs{} }},
		Entry{Kind: kind.AutoSystem, New: func() schema.Args { return &AutoSystemArgs{} }, Emit: emitAddObserver},
	).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Derive: neither an emitter nor a rewrite rule")
	assert.Contains(t, err.Error(), "AutoSystem: shorthand kinds need a rewrite rule")
	assert.Contains(t, err.Error(), "AutoSystem: applies to no item shapes")
}

func outputKinds(outs []rewrite.Output) []kind.Kind {
	var res []kind.Kind
	for _, o := range outs {
		res = append(res, o.Kind)
	}
	return res
}

func TestRules(t *testing.T) {
	testCases := []struct {
		k     kind.Kind
		input string
		want  []kind.Kind
	}{
		{
			k:     kind.AutoComponent,
			input: `@AutoComponent(plugin: app.Plugin, derive, register, reflect, name)`,
			want:  []kind.Kind{kind.Derive, kind.RegisterType, kind.Reflect, kind.Name},
		},
		{
			k:     kind.AutoComponent,
			input: `@AutoComponent(plugin: app.Plugin, register, derive)`,
			want:  []kind.Kind{kind.Derive, kind.RegisterType},
		},
		{
			k:     kind.AutoResource,
			input: `@AutoResource(plugin: app.Plugin, init, reflect: false)`,
			want:  []kind.Kind{kind.InitResource},
		},
		{
			k:     kind.AutoEvent,
			input: `@AutoEvent(plugin: app.Plugin)`,
			want:  []kind.Kind{kind.AddEvent},
		},
		{
			k:     kind.AutoState,
			input: `@AutoState(plugin: app.Plugin, derive, reflect, init)`,
			want:  []kind.Kind{kind.Derive, kind.Reflect, kind.InitState},
		},
		{
			k:     kind.AutoSystem,
			input: `@AutoSystem(plugin: app.Plugin, schedule: app.Update)`,
			want:  []kind.Kind{kind.AddSystem},
		},
		{
			k:     kind.AutoSystem,
			input: `@AutoSystem(plugin: app.Plugin, observer, generics(app.Hit))`,
			want:  []kind.Kind{kind.AddObserver},
		},
	}
	c := Default()
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			e, _ := c.Lookup(tc.k)
			outs := e.Rule.Expand(parse(t, tc.k, tc.input))
			assert.Equal(t, tc.want, outputKinds(outs))

			// every output is terminal and survives a round trip through its
			// own schema, so feeding it back in changes nothing
			for _, o := range outs {
				te, ok := c.Lookup(o.Kind)
				require.True(t, ok)
				require.True(t, te.IsTerminal())
				require.NoError(t, schema.Validate(o.Args))
				text := schema.Serialize(o.Kind.String(), o.Args, nil)
				again := parse(t, o.Kind, text)
				assert.Equal(t, text, schema.Serialize(o.Kind.String(), again, nil))
			}
		})
	}
}

func TestRules_CarryTargetAndGenerics(t *testing.T) {
	e, _ := Default().Lookup(kind.AutoComponent)
	outs := e.Rule.Expand(parse(t, kind.AutoComponent,
		`@AutoComponent(plugin: app.Plugin, generics(uint32), generics(bool), derive, register, reflect, name: "Box")`))
	require.Len(t, outs, 4)

	assert.Equal(t, "@Derive(generics(uint32), generics(bool), component)", schema.Serialize("Derive", outs[0].Args, nil))
	assert.Equal(t, "@RegisterType(plugin: app.Plugin, generics(uint32), generics(bool))", schema.Serialize("RegisterType", outs[1].Args, nil))
	assert.Equal(t, "@Reflect(plugin: app.Plugin, generics(uint32), generics(bool), component)", schema.Serialize("Reflect", outs[2].Args, nil))
	assert.Equal(t, `@Name(plugin: app.Plugin, generics(uint32), generics(bool), name: "Box")`, schema.Serialize("Name", outs[3].Args, nil))
}

func TestSchemaErrors(t *testing.T) {
	testCases := []struct {
		k     kind.Kind
		input string
		code  schema.ErrorCode
	}{
		{kind.Derive, `@Derive`, schema.MissingKey},
		{kind.Reflect, `@Reflect(plugin: app.Plugin)`, schema.MissingKey},
		{kind.InitState, `@InitState(plugin: app.Plugin, generics(int))`, schema.UnknownKey},
		{kind.AddObserver, `@AddObserver(plugin: app.Plugin, generics(int), generics(bool))`, schema.DuplicateKey},
		{kind.ConfigureSet, `@ConfigureSet(plugin: app.Plugin, schedule: app.Update)`, schema.MissingKey},
		{kind.AutoSystem, `@AutoSystem(plugin: app.Plugin)`, schema.MissingKey},
		{kind.AutoSystem, `@AutoSystem(plugin: app.Plugin, observer, schedule: app.Update)`, schema.ConflictingValue},
		{kind.AutoComponent, `@AutoComponent(plugin: app.Plugin, init)`, schema.UnknownKey},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			e, _ := Default().Lookup(tc.k)
			raw, err := parser.ParseAnnotation(tc.input)
			require.NoError(t, err)
			err = schema.Parse(raw, e.New())
			var schemaErr *schema.Error
			require.True(t, errors.As(err, &schemaErr), "%v", err)
			assert.Equal(t, tc.code, schemaErr.Code)
		})
	}
}

func TestSchemaErrors_EveryMissingField(t *testing.T) {
	args := &ConfigureSetArgs{}
	raw, err := parser.ParseAnnotation(`@ConfigureSet(plugin: app.Plugin)`)
	require.NoError(t, err)
	errs := schema.Errors(schema.Parse(raw, args))
	require.Len(t, errs, 2)
	assert.Equal(t, []string{"schedule", "set"}, []string{errs[0].Key, errs[1].Key})
	for _, e := range errs {
		assert.Equal(t, schema.MissingKey, e.Code)
	}
}

var subject = emit.Subject{
	Name:    "Wrapper",
	PkgPath: "example.com/game",
	Shape:   kind.Type,
	Imports: map[string]string{"app": "example.com/app"},
}

func emitText(t *testing.T, s emit.Subject, declared []string, k kind.Kind, input string) []string {
	t.Helper()
	args := parse(t, k, input)
	e, _ := Default().Lookup(k)
	var entries []schema.GenericsEntry
	if gs, ok := args.(schema.GenericsSource); ok {
		entries = gs.GenericsEntries()
	}
	insts, err := generics.Resolve(declared, entries, generics.Options{AllowDefault: e.AllowDefaultGenerics})
	require.NoError(t, err)
	frag := emit.Emit(s, k, parser.Span{}, args, insts, e.Emit)
	require.NoError(t, frag.Err)
	var res []string
	for _, u := range frag.Units {
		for _, st := range u.Stmts {
			res = append(res, emit.Text(st))
		}
	}
	return res
}

func TestEmitters(t *testing.T) {
	fn := subject
	fn.Name = "Move"
	fn.Shape = kind.Func

	assert.Equal(t,
		[]string{"autoreg.Derive(autoreg.TypeOf[game.Wrapper[uint32]](), autoreg.Component, autoreg.Event)"},
		emitText(t, subject, []string{"T"}, kind.Derive, `@Derive(generics(uint32), component, event)`))
	assert.Equal(t,
		[]string{
			"b.RegisterTypeData(autoreg.TypeOf[game.Wrapper](), autoreg.MustDerived(autoreg.TypeOf[game.Wrapper](), autoreg.Resource))",
		},
		emitText(t, subject, nil, kind.Reflect, `@Reflect(plugin: app.Plugin, resource)`))
	assert.Equal(t,
		[]string{`b.SetName(autoreg.TypeOf[game.Wrapper[bool]](), "Wrapper[bool]")`},
		emitText(t, subject, []string{"T"}, kind.Name, `@Name(plugin: app.Plugin, generics(bool))`))
	assert.Equal(t,
		[]string{`b.SetName(autoreg.TypeOf[game.Wrapper](), "Box")`},
		emitText(t, subject, nil, kind.Name, `@Name(plugin: app.Plugin, name: "Box")`))
	assert.Equal(t,
		[]string{"b.InitState(autoreg.TypeOf[game.Wrapper]())"},
		emitText(t, subject, nil, kind.InitState, `@InitState(plugin: app.Plugin)`))
	assert.Equal(t,
		[]string{"b.AddSystem(app.Update, game.Move[app.Player])"},
		emitText(t, fn, []string{"T"}, kind.AddSystem, `@AddSystem(plugin: app.Plugin, schedule: app.Update, generics(app.Player))`))
	assert.Equal(t,
		[]string{"b.AddObserver(game.Move)"},
		emitText(t, fn, nil, kind.AddObserver, `@AddObserver(plugin: app.Plugin)`))
	assert.Equal(t,
		[]string{"b.ConfigureSet(app.Update, app.Physics)"},
		emitText(t, fn, []string{"T"}, kind.ConfigureSet, `@ConfigureSet(plugin: app.Plugin, schedule: app.Update, set: app.Physics)`))
}

func TestConfigureSet_SharedSetCollides(t *testing.T) {
	e, _ := Default().Lookup(kind.ConfigureSet)
	input := `@ConfigureSet(plugin: app.Plugin, schedule: app.Update, set: app.Physics)`
	one := subject
	two := subject
	two.Name = "Other"

	var keys []string
	for _, s := range []emit.Subject{one, two} {
		args := parse(t, kind.ConfigureSet, input)
		insts, err := generics.Resolve(nil, nil, generics.Options{AllowDefault: true})
		require.NoError(t, err)
		frag := emit.Emit(s, kind.ConfigureSet, parser.Span{}, args, insts, e.Emit)
		require.Len(t, frag.Units, 1)
		keys = append(keys, frag.Units[0].Key.String())
	}
	assert.Equal(t, keys[0], keys[1])
}
