package processor

import (
	"context"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jhump/autoreg/catalog"
	"github.com/jhump/autoreg/internal/logger"
	"github.com/jhump/autoreg/parser"
)

// ErrorWithPosition is an error that has source position information associated
// with it. The position indicates the location in a source file where the error
// was encountered.
type ErrorWithPosition struct {
	err error
	pos token.Position
}

// Error implements the error interface. It includes position information in the
// returned message.
func (e *ErrorWithPosition) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.pos.Filename, e.pos.Line, e.pos.Column, e.err.Error())
}

// Unwrap returns the underlying error.
func (e *ErrorWithPosition) Unwrap() error {
	return e.err
}

// Pos returns the location in source where the underlying error was
// encountered.
func (e *ErrorWithPosition) Pos() token.Position {
	return e.pos
}

// NewErrorWithPosition returns the given error, but associates it with the
// given source code location.
func NewErrorWithPosition(pos token.Position, err error) *ErrorWithPosition {
	return &ErrorWithPosition{err: err, pos: pos}
}

// positioned is implemented by the pipeline's user-input errors.
type positioned interface {
	Pos() parser.Span
}

// Located returns err with the source position of the item it concerns
// unless every error combined in err carries a position of its own.
func Located(item Item, err error) error {
	for _, e := range multierr.Errors(err) {
		var p positioned
		if !errors.As(e, &p) || !p.Pos().IsValid() {
			return NewErrorWithPosition(item.Pos, err)
		}
	}
	return err
}

// OutputFactory is a function that creates a writer for an output file of
// the given package. Output factories typically use os.OpenFile to create
// files but this function allows the behavior to be customized.
type OutputFactory func(pkg *Package, name string) (io.WriteCloser, error)

// Processor is a function that acts on a processed package. Processors run
// after every item of the package has gone through the pipeline, so
// ctx.Results is complete. At most one processor may call ctx.Finish.
type Processor func(ctx *Context, output OutputFactory) error

// DefaultOutputFactory returns the OutputFactory used when none is
// configured. If rootDir is blank, outputs are written next to the
// package's sources. Otherwise they are written to <rootDir>/<import path>.
//
// After computing the destination path, os.OpenFile is used to open the file
// for writing (creating the file if necessary, truncating it if it already
// exists).
func DefaultOutputFactory(rootDir string) OutputFactory {
	return func(pkg *Package, name string) (io.WriteCloser, error) {
		dest, err := determineOutputDir(rootDir, pkg)
		if err != nil {
			return nil, err
		}
		return os.OpenFile(filepath.Join(dest, name), os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0666)
	}
}

func determineOutputDir(root string, pkg *Package) (string, error) {
	if root == "" {
		if pkg.Dir == "" {
			return "", errors.Newf("could not determine output directory for package %q", pkg.Path)
		}
		return pkg.Dir, nil
	}
	out := filepath.Join(root, filepath.FromSlash(pkg.Path))
	if err := os.MkdirAll(out, os.ModePerm); err != nil {
		return "", errors.Wrapf(err, "could not create output directory %s", out)
	}
	return out, nil
}

// DiagnosticsError is returned by Config.Execute when user input had
// errors. The outputs were still written, with the errors recorded in them.
type DiagnosticsError struct {
	Errors []error
}

func (e *DiagnosticsError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", e.Errors[0], len(e.Errors)-1)
}

// Config represents the configuration for running one or more Processors.
// Callers should configure all of the exported fields and then call the
// Execute method to actually invoke the processors.
type Config struct {
	Patterns []string
	Load     LoadConfig
	// Catalog defaults to catalog.Default().
	Catalog      *catalog.Catalog
	Namespaces   []string
	Concurrency  int
	OutputSuffix string
	// Processors run in order for each package. If empty, the registered
	// processors run, followed by a Generator.
	Processors    []Processor
	OutputFactory OutputFactory
	Logger        *zap.SugaredLogger
}

// Execute validates the catalog, loads the configured packages, runs every
// item of each through the pipeline, and invokes the processors. Errors in
// the catalog, in loading, or in processors stop the run. Errors in
// annotations do not: they are collected into a *DiagnosticsError returned
// after all packages are done.
func (cfg *Config) Execute(ctx context.Context) error {
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	if err := cat.Validate(); err != nil {
		return errors.Wrap(err, "invalid annotation catalog")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Logger
	}
	procs := cfg.Processors
	if len(procs) == 0 {
		procs = append(AllRegisteredProcessors(), (&Generator{}).Process)
	}
	output := cfg.OutputFactory
	if output == nil {
		output = DefaultOutputFactory("")
	}

	pkgs, err := Load(cfg.Load, cfg.Patterns...)
	if err != nil {
		return err
	}

	var diags []error
	for _, pkg := range pkgs {
		pctx := NewContext(pkg, Options{
			Catalog:      cat,
			Namespaces:   cfg.Namespaces,
			Concurrency:  cfg.Concurrency,
			OutputSuffix: cfg.OutputSuffix,
			Logger:       log,
		})
		results, err := pctx.ProcessAll(ctx, pkg.Items)
		if err != nil {
			return err
		}
		log.Debugw("processed package", "package", pkg.Path, "items", len(results))

		for _, proc := range procs {
			if err := proc(pctx, output); err != nil {
				return errors.Wrapf(err, "processing %s", pkg.Path)
			}
		}
		diags = append(diags, pkg.Errors...)
		for _, r := range results {
			for _, d := range r.Diagnostics {
				diags = append(diags, Located(r.Item, d))
			}
		}
	}
	if len(diags) > 0 {
		return &DiagnosticsError{Errors: diags}
	}
	return nil
}
