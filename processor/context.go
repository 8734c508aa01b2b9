package processor

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jhump/autoreg/catalog"
	"github.com/jhump/autoreg/dedup"
	"github.com/jhump/autoreg/emit"
	"github.com/jhump/autoreg/generics"
	"github.com/jhump/autoreg/internal/logger"
	"github.com/jhump/autoreg/kind"
	"github.com/jhump/autoreg/parser"
	"github.com/jhump/autoreg/rewrite"
	"github.com/jhump/autoreg/schema"
)

// ErrFinished is returned when a Context is used after Finish.
var ErrFinished = errors.New("processing context already finished")

// DefaultNamespaces are the qualifiers recognized when none are configured:
// "autoreg" and unqualified annotations.
var DefaultNamespaces = []string{"autoreg", ""}

// Package is one loaded Go package.
type Package struct {
	Path string
	Name string
	// Dir is the directory holding the package's sources.
	Dir   string
	Items []Item
	// Errors are problems found while extracting items, such as annotation
	// syntax errors. They do not stop the other items.
	Errors []error
}

// Options configure a Context.
type Options struct {
	// Catalog defaults to catalog.Default().
	Catalog *catalog.Catalog
	// Namespaces default to DefaultNamespaces.
	Namespaces []string
	// Concurrency bounds the items ProcessAll works on at once. It defaults
	// to GOMAXPROCS.
	Concurrency int
	// OutputSuffix is appended to the package name to name the output file.
	// It defaults to "_autoreg.go".
	OutputSuffix string
	// Logger defaults to the global logger.
	Logger *zap.SugaredLogger
}

// Result is the outcome of processing one item.
type Result struct {
	// Item is the input item with every matched annotation removed.
	Item        Item
	Occurrences []Occurrence
	// Fragments are the item's outputs, in annotation order. Shorthand
	// outputs take the shorthand's place.
	Fragments []emit.Fragment
	// Suppressed are rewritten units dropped because an annotation written
	// on the item makes the same registration: same kind, registry, and
	// instantiation, covering the same traits.
	Suppressed []emit.Unit
	// Duplicates are keys of units that were already registered, by this
	// item or another.
	Duplicates  []dedup.Key
	Diagnostics []error
}

type failure struct {
	order int
	frag  emit.Fragment
}

// Context accumulates the output of one package. It is created when the
// package's processing begins, shared by every item in it, and consumed once
// by Finish. It is safe for concurrent use.
type Context struct {
	Package *Package

	catalog     *catalog.Catalog
	matcher     *Matcher
	concurrency int
	suffix      string
	log         *zap.SugaredLogger

	units *dedup.Set[emit.Unit]

	mu       sync.Mutex
	failures []failure
	results  []Result

	next     atomic.Int64
	finished atomic.Bool
}

// NewContext returns a context for pkg.
func NewContext(pkg *Package, opts Options) *Context {
	c := &Context{
		Package:     pkg,
		catalog:     opts.Catalog,
		concurrency: opts.Concurrency,
		suffix:      opts.OutputSuffix,
		log:         opts.Logger,
		units:       dedup.NewSet[emit.Unit](),
	}
	if c.catalog == nil {
		c.catalog = catalog.Default()
	}
	namespaces := opts.Namespaces
	if len(namespaces) == 0 {
		namespaces = DefaultNamespaces
	}
	c.matcher = NewMatcher(c.catalog, namespaces...)
	if c.concurrency <= 0 {
		c.concurrency = runtime.GOMAXPROCS(0)
	}
	if c.suffix == "" {
		c.suffix = "_autoreg.go"
	}
	if c.log == nil {
		c.log = logger.Logger
	}
	c.log = c.log.With("package", pkg.Path)
	return c
}

// OutputName is the name of the file Finish produces.
func (c *Context) OutputName() string {
	return c.Package.Name + c.suffix
}

// Results returns the results of all items processed so far, in the order
// they were submitted.
func (c *Context) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]Result, len(c.results))
	copy(res, c.results)
	return res
}

// Diagnostics returns the package's extraction errors followed by the
// diagnostics of every processed item.
func (c *Context) Diagnostics() []error {
	errs := append([]error(nil), c.Package.Errors...)
	for _, r := range c.Results() {
		errs = append(errs, r.Diagnostics...)
	}
	return errs
}

// reserve returns the first of n consecutive item indexes.
func (c *Context) reserve(n int) int {
	return int(c.next.Add(int64(n))) - n
}

// Process runs one item through the pipeline.
func (c *Context) Process(item Item) (Result, error) {
	if c.finished.Load() {
		return Result{}, ErrFinished
	}
	res := c.process(item, c.reserve(1))
	c.record(res)
	return res, nil
}

// ProcessAll runs items through the pipeline concurrently. The results, and
// the eventual output, are the same as processing the items one at a time
// in the given order.
func (c *Context) ProcessAll(ctx context.Context, items []Item) ([]Result, error) {
	if c.finished.Load() {
		return nil, ErrFinished
	}
	base := c.reserve(len(items))
	results := make([]Result, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.process(item, base+i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, r := range results {
		c.record(r)
	}
	return results, nil
}

func (c *Context) record(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// Finish assembles the package's output file. It may be called once.
func (c *Context) Finish() (*emit.File, error) {
	if !c.finished.CompareAndSwap(false, true) {
		return nil, ErrFinished
	}
	file := emit.NewFile(c.OutputName(), c.Package.Path, c.Package.Name)
	for _, u := range c.units.Entries() {
		file.Add(u)
	}

	c.mu.Lock()
	failures := c.failures
	c.mu.Unlock()
	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].order < failures[j].order
	})
	for _, f := range failures {
		file.AddFailure(f.frag)
	}
	return file, nil
}

// stamp orders the outputs of the item at index. Items are assumed to
// produce fewer than a million units each.
func stamp(index, seq int) int {
	return index<<20 | seq
}

func (c *Context) process(item Item, index int) Result {
	occs := c.matcher.Match(item)
	res := Result{Item: item, Occurrences: occs}
	res.Item.Annotations = strip(item.Annotations, occs)
	subject := item.Subject()

	seq := 0
	fail := func(i int, k kind.Kind, err error) {
		occs[i].State = Failed
		frag := emit.Failure(subject, k, occs[i].Annotation.Span, err)
		res.Fragments = append(res.Fragments, frag)
		res.Diagnostics = append(res.Diagnostics, err)
		c.addFailure(stamp(index, seq), frag)
		seq++
	}

	// Classify every occurrence and emit the authored terminals before any
	// shorthand, since an authored unit anywhere on the item suppresses the
	// rewritten units it covers.
	outputs := make([][]rewrite.Output, len(occs))
	frags := make([][]emit.Fragment, len(occs))
	errs := make([]error, len(occs))
	var authored []emit.Unit
	for i := range occs {
		o := &occs[i]
		args, entry, err := c.classify(item, o)
		if err != nil {
			errs[i] = err
			continue
		}
		o.State = Classified
		if entry.IsTerminal() {
			frag := c.emit(item, subject, rewrite.Output{Kind: o.Kind, Args: args}, o.Annotation.Span)
			frags[i] = []emit.Fragment{frag}
			authored = append(authored, frag.Units...)
			continue
		}
		outputs[i] = entry.Rule.Expand(args)
		o.State = Expanded
	}

	for i := range occs {
		if errs[i] != nil {
			fail(i, occs[i].Kind, errs[i])
			continue
		}
		for _, out := range outputs[i] {
			frag := c.emit(item, subject, out, occs[i].Annotation.Span)
			if !frag.Failed() {
				var suppressed []emit.Unit
				frag.Units, suppressed = rewrite.Suppress(frag.Units, authored)
				for _, u := range suppressed {
					c.log.Debugw("rewritten registration suppressed by an authored one",
						"item", item.ID(), "shorthand", occs[i].Kind, "kind", u.Kind,
						"instantiation", u.Instantiation.String(nil))
				}
				res.Suppressed = append(res.Suppressed, suppressed...)
				if len(frag.Units) == 0 {
					continue
				}
			}
			frags[i] = append(frags[i], frag)
		}

		ok := true
		for _, frag := range frags[i] {
			if frag.Failed() {
				ok = false
				fail(i, frag.Kind, frag.Err)
				continue
			}
			res.Fragments = append(res.Fragments, frag)
			for _, u := range frag.Units {
				if c.register(u, stamp(index, seq)) == dedup.AlreadyPresent {
					res.Duplicates = append(res.Duplicates, u.Key)
					c.log.Debugw("registration already present",
						"item", item.ID(), "kind", u.Kind, "key", u.Key.Short())
				}
				seq++
			}
		}
		if ok {
			occs[i].State = Emitted
		}
	}
	return res
}

// classify checks the occurrence's kind and shape and parses its
// arguments.
func (c *Context) classify(item Item, o *Occurrence) (schema.Args, *catalog.Entry, error) {
	if o.Kind == kind.Invalid {
		return nil, nil, &UnknownKindError{Span: o.Annotation.Span, Name: o.Annotation.Type}
	}
	entry, _ := c.catalog.Lookup(o.Kind)
	if err := checkShape(entry, item, o.Annotation.Span); err != nil {
		return nil, nil, err
	}
	args := entry.New()
	if err := schema.Parse(o.Annotation, args); err != nil {
		return nil, nil, err
	}
	return args, entry, nil
}

func checkShape(entry *catalog.Entry, item Item, span parser.Span) error {
	if entry.Shapes.Contains(item.Shape) {
		return nil
	}
	return &ItemShapeError{Span: span, Kind: entry.Kind, Shape: item.Shape, Allowed: entry.Shapes}
}

// emit resolves the output's instantiations and emits it.
func (c *Context) emit(item Item, subject emit.Subject, out rewrite.Output, span parser.Span) emit.Fragment {
	entry, ok := c.catalog.Lookup(out.Kind)
	if !ok || !entry.IsTerminal() {
		// Catalog validation rules this out.
		return emit.Failure(subject, out.Kind, span, errors.AssertionFailedf("%v is not a terminal kind", out.Kind))
	}
	if err := checkShape(entry, item, span); err != nil {
		return emit.Failure(subject, out.Kind, span, err)
	}
	var entries []schema.GenericsEntry
	if gs, ok := out.Args.(schema.GenericsSource); ok {
		entries = gs.GenericsEntries()
	}
	insts, err := generics.Resolve(item.TypeParams, entries, generics.Options{
		AllowDefault: entry.AllowDefaultGenerics,
		Span:         span,
	})
	if err != nil {
		return emit.Failure(subject, out.Kind, span, err)
	}
	return emit.Emit(subject, out.Kind, span, out.Args, insts, entry.Emit)
}

func (c *Context) register(u emit.Unit, order int) dedup.Outcome {
	registry := ""
	if u.Registry != nil {
		registry = u.Registry.ID()
	}
	return c.units.Table(registry).Register(u.Key, order, func() emit.Unit { return u })
}

func (c *Context) addFailure(order int, frag emit.Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, failure{order: order, frag: frag})
}
