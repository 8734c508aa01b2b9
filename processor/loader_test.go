package processor

import (
	"bytes"
	"context"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/autoreg/catalog"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/parser"
	"github.com/jhump/autoreg/rewrite"
	"github.com/jhump/autoreg/schema"
)

const gameSource = `package game

import (
	"example.com/app"
	ext "example.com/lib/external"
	yaml "gopkg.in/yaml.v3"
	"example.com/mod/v2"
	_ "embed"
)

// Position is where an entity is.
//
// @AutoComponent(plugin: app.Plugin, derive, register)
// @Deprecated
type Position struct{ X, Y float64 }

// Plain has no annotations.
type Plain struct{}

/*
@RegisterType(plugin: app.Plugin, generics(int, bool))
*/
type Wrapper[T any, U comparable] struct{}

// @AddSystem(plugin: app.Plugin, schedule: app.Update)
func Move() {}

// Observe is called on hits.
// @AddObserver(plugin: app.Plugin)
func (w *Wrapper[T, U]) Observe() {}

// @RegisterType(plugin: app.Plugin,
type Broken struct{}

var (
	// @RegisterType(plugin: app.Plugin)
	ignored int
)
`

func parseFile(t *testing.T, src string) (*token.FileSet, *ast.File) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := goparser.ParseFile(fset, "game.go", src, goparser.ParseComments)
	require.NoError(t, err)
	return fset, f
}

func TestItemsFromFile(t *testing.T) {
	fset, f := parseFile(t, gameSource)
	items, errs := ItemsFromFile(fset, f, "example.com/game")

	require.Len(t, items, 4)
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	assert.Equal(t, []string{"Position", "Wrapper", "Move", "Wrapper.Observe"}, names)

	pos := items[0]
	assert.Equal(t, kind.Type, pos.Shape)
	assert.Empty(t, pos.TypeParams)
	require.Len(t, pos.Annotations, 2)
	assert.Equal(t, "AutoComponent", pos.Annotations[0].Type.Name)
	assert.Equal(t, map[string]string{
		"app":  "example.com/app",
		"ext":  "example.com/lib/external",
		"yaml": "gopkg.in/yaml.v3",
		"mod":  "example.com/mod/v2",
	}, pos.Imports)
	assert.Equal(t, 15, pos.Pos.Line)

	// annotation positions point into the file
	start := pos.Annotations[0].Span.Start
	assert.Equal(t, "game.go", start.Filename)
	assert.Equal(t, 13, start.Line)
	assert.Equal(t, 4, start.Column)
	assert.Equal(t, 14, pos.Annotations[1].Span.Start.Line)

	assert.Equal(t, []string{"T", "U"}, items[1].TypeParams)
	assert.Equal(t, 21, items[1].Annotations[0].Span.Start.Line)
	assert.Equal(t, 1, items[1].Annotations[0].Span.Start.Column)

	assert.Equal(t, kind.Func, items[2].Shape)
	assert.Equal(t, kind.Method, items[3].Shape)
	assert.Equal(t, []string{"T", "U"}, items[3].TypeParams)

	require.Len(t, errs, 1)
	var perr *parser.ParseError
	require.True(t, errors.As(errs[0], &perr))
	assert.Equal(t, 32, perr.Pos().Line)
}

func TestItemsFromFile_ThroughPipeline(t *testing.T) {
	fset, f := parseFile(t, gameSource)
	items, _ := ItemsFromFile(fset, f, "example.com/game")
	c := NewContext(&Package{Path: "example.com/game", Name: "game", Items: items}, Options{})
	results, err := c.ProcessAll(context.Background(), items)
	require.NoError(t, err)

	// @Deprecated passes through
	require.Len(t, results[0].Item.Annotations, 1)
	assert.Equal(t, "Deprecated", results[0].Item.Annotations[0].Type.Name)
	for _, r := range results[:3] {
		assert.Empty(t, r.Diagnostics, r.Item.Name)
	}
	// observers only apply to functions
	var shapeErr *ItemShapeError
	require.Len(t, results[3].Diagnostics, 1)
	require.True(t, errors.As(results[3].Diagnostics[0], &shapeErr))
	assert.Equal(t, kind.Method, shapeErr.Shape)
	assert.Equal(t, 29, shapeErr.Span.Start.Line)

	file, err := c.Finish()
	require.NoError(t, err)
	assert.Contains(t, file.Text(), "b.RegisterType(autoreg.TypeOf[game.Wrapper[int, bool]]())")
	assert.Contains(t, file.Text(), "b.AddSystem(app.Update, game.Move)")
}

type memOutput struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func (m *memOutput) create(pkg *Package, name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = map[string]*bytes.Buffer{}
	}
	var buf bytes.Buffer
	m.files[pkg.Path+"/"+name] = &buf
	return nopCloser{&buf}, nil
}

func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestConfig_Execute(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go command")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}
	dir := writeModule(t, map[string]string{
		"go.mod": "module example.com/game\n\ngo 1.22\n",
		"app/app.go": `package app

type Plugin struct{}
`,
		"game.go": `package game

import "example.com/game/app"

var _ app.Plugin

// @AutoComponent(plugin: app.Plugin, derive, register)
type Position struct{}

// @AddSystem(plugin: app.Plugin, schedule: app.Update)
type NotAFunc struct{}
`,
	})

	var out memOutput
	cfg := Config{
		Patterns:      []string{"./..."},
		Load:          LoadConfig{Dir: dir},
		Processors:    []Processor{(&Generator{Manifest: true}).Process},
		OutputFactory: out.create,
	}
	err := cfg.Execute(context.Background())

	var diags *DiagnosticsError
	require.True(t, errors.As(err, &diags), "%v", err)
	require.Len(t, diags.Errors, 1)
	assert.Contains(t, diags.Errors[0].Error(), "@AddSystem applies to functions, not types")

	require.Len(t, out.files, 2)
	src := out.files["example.com/game/game_autoreg.go"].String()
	assert.Contains(t, src, "package game")
	assert.Contains(t, src, "func init()")
	assert.Contains(t, src, "autoreg.Derive(")
	assert.Contains(t, src, "app.Plugin.Defer(")
	assert.Contains(t, src, "//autoreg:error NotAFunc: @AddSystem:")

	manifest := out.files["example.com/game/game_autoreg.yaml"].String()
	assert.Contains(t, manifest, "package: example.com/game")
	assert.Contains(t, manifest, "registry: example.com/game/app.Plugin")
	assert.Contains(t, manifest, "kind: RegisterType")
	assert.Contains(t, manifest, "item: NotAFunc")
}

func TestConfig_ExecuteRejectsCycles(t *testing.T) {
	bad := rewrite.Rule{
		Source: kind.AutoEvent,
		Entries: []rewrite.Entry{
			rewrite.Produce(kind.AutoEvent, nil, func(a *catalog.AutoEventArgs) *catalog.AutoEventArgs { return a }),
		},
	}
	cat := catalog.Default()
	entry, _ := cat.Lookup(kind.AutoEvent)
	entries := []catalog.Entry{*entry}
	entries[0].Rule = &bad
	for _, k := range cat.Kinds() {
		if k != kind.AutoEvent {
			e, _ := cat.Lookup(k)
			entries = append(entries, *e)
		}
	}

	var out memOutput
	cfg := Config{
		Patterns:      []string{"./..."},
		Catalog:       catalog.New(entries...),
		OutputFactory: out.create,
	}
	err := cfg.Execute(context.Background())
	var cycleErr *rewrite.CycleError
	require.True(t, errors.As(err, &cycleErr), "%v", err)
	assert.Equal(t, kind.AutoEvent, cycleErr.Target)
	assert.Empty(t, out.files)
}

func TestManifestOf(t *testing.T) {
	c := newContext()
	_, err := c.Process(newItem(t, "Wrapper", kind.Type, []string{"T"}, `
@AutoResource(plugin: app.Plugin, generics(uint32), derive, init)
@Name(plugin: app.Plugin, generics(uint32), bogus)
`))
	require.NoError(t, err)
	file, err := c.Finish()
	require.NoError(t, err)

	m := ManifestOf(file)
	assert.Equal(t, "example.com/game", m.Package)
	require.Len(t, m.Immediate, 1)
	assert.Equal(t, "Derive", m.Immediate[0].Kind)
	assert.Equal(t, "[uint32]", m.Immediate[0].Instantiation)
	require.Len(t, m.Registries, 1)
	assert.Equal(t, "example.com/app.Plugin", m.Registries[0].Registry)
	require.Len(t, m.Registries[0].Units, 1)
	assert.Equal(t, []string{"b.InitResource(autoreg.TypeOf[game.Wrapper[uint32]]())"}, m.Registries[0].Units[0].Statements)
	require.Len(t, m.Failures, 1)
	assert.Equal(t, "Name", m.Failures[0].Kind)

	var schemaErr *schema.Error
	require.True(t, errors.As(file.Failures[0].Err, &schemaErr))

	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, m))
	assert.Contains(t, buf.String(), "registry: example.com/app.Plugin")
	assert.Contains(t, buf.String(), "b.InitResource(autoreg.TypeOf[game.Wrapper[uint32]]())")
}
