package processor

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
)

// Generator is the processor that writes each package's generated file. It
// consumes the package's Context.
type Generator struct {
	// Manifest also writes a YAML summary of the file next to it.
	Manifest bool
}

// Process finishes ctx and writes its output. Packages with no output get no
// file.
func (g *Generator) Process(ctx *Context, output OutputFactory) (err error) {
	file, err := ctx.Finish()
	if err != nil {
		return err
	}
	if file.IsEmpty() {
		return nil
	}

	w, err := output(ctx.Package, file.Name)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", file.Name)
	}
	defer func() {
		err = multierr.Append(err, w.Close())
	}()
	if err := file.Write(w); err != nil {
		return errors.Wrapf(err, "failed to write %s", file.Name)
	}

	if !g.Manifest {
		return nil
	}
	name := strings.TrimSuffix(file.Name, ".go") + ".yaml"
	mw, err := output(ctx.Package, name)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", name)
	}
	defer func() {
		err = multierr.Append(err, mw.Close())
	}()
	return WriteManifest(mw, ManifestOf(file))
}
