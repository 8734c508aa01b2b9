package main

import (
	"fmt"
	"io"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jhump/autoreg/internal/logger"
	"github.com/jhump/autoreg/processor"
)

type genOptions struct {
	dir    string
	outDir string
	stdout bool
}

func newGenCmd(a *app) *cobra.Command {
	var opts genOptions
	cmd := &cobra.Command{
		Use:   "gen [packages]",
		Short: "Generate registration code",
		Long: `Generate a registration file for each of the given packages (default ./...).

Each package with autoreg annotations gets a file named after it, such as
game_autoreg.go. Annotation errors do not stop generation: they are written
into the generated file as comments, printed, and make the command fail.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGen(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.dir, "dir", "C", "", "directory in which to resolve packages")
	flags.StringVar(&opts.outDir, "out-dir", "", "root directory for outputs, organized by import path (default is next to the sources)")
	flags.BoolVar(&opts.stdout, "stdout", false, "write generated files to standard output instead")
	flags.Bool("tests", false, "also process test files")
	flags.Int("concurrency", 0, "number of items processed at once (default is GOMAXPROCS)")
	flags.Bool("manifest", false, "also write a YAML manifest next to each generated file")
	flags.StringSlice("namespace", nil, "annotation namespaces to recognize (default is autoreg and unqualified)")
	_ = a.v.BindPFlag("include_tests", flags.Lookup("tests"))
	_ = a.v.BindPFlag("concurrency", flags.Lookup("concurrency"))
	_ = a.v.BindPFlag("manifest", flags.Lookup("manifest"))
	_ = a.v.BindPFlag("namespaces", flags.Lookup("namespace"))
	return cmd
}

func (a *app) runGen(cmd *cobra.Command, patterns []string, opts genOptions) error {
	cfg, err := a.load()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	output := processor.DefaultOutputFactory(opts.outDir)
	if opts.stdout {
		output = writerOutput(cmd.OutOrStdout())
	}

	pcfg := processor.Config{
		Patterns:     patterns,
		Load:         processor.LoadConfig{Dir: opts.dir, Tests: cfg.IncludeTests},
		Namespaces:   cfg.Namespaces,
		Concurrency:  cfg.Concurrency,
		OutputSuffix: cfg.OutputSuffix,
		Processors: append(processor.AllRegisteredProcessors(),
			(&processor.Generator{Manifest: cfg.Manifest}).Process),
		OutputFactory: output,
		Logger:        logger.Logger,
	}
	logger.Logger.Debugw("generating", "patterns", patterns, "namespaces", cfg.Namespaces,
		"concurrency", cfg.Concurrency, "processors", processor.RegisteredProcessorNames())

	err = pcfg.Execute(cmd.Context())
	var diags *processor.DiagnosticsError
	if errors.As(err, &diags) {
		red := color.New(color.FgRed)
		for _, d := range diags.Errors {
			red.Fprintln(cmd.ErrOrStderr(), d)
		}
		return errors.Newf("%d annotation error(s)", len(diags.Errors))
	}
	return err
}

// writerOutput returns an OutputFactory that writes every output to w, each
// preceded by a comment naming it.
func writerOutput(w io.Writer) processor.OutputFactory {
	return func(pkg *processor.Package, name string) (io.WriteCloser, error) {
		if _, err := fmt.Fprintf(w, "// %s\n", path.Join(pkg.Path, name)); err != nil {
			return nil, err
		}
		return nopCloser{w}, nil
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
