// Command autoreg generates registration code for annotated Go packages.
//
// Usage:
//
//	autoreg gen [flags] [packages]
//	autoreg kinds
//	autoreg version
//
// Settings are read from autoreg.yaml in the working directory (or the file
// named by --config), from AUTOREG_* environment variables, and from flags,
// in increasing order of precedence.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jhump/autoreg/internal/config"
	"github.com/jhump/autoreg/internal/logger"
)

var (
	// Version information, set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the state shared by the commands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "autoreg",
		Short: "Generate registration code from annotations",
		Long: `autoreg reads @-annotations from the doc comments of Go types and functions
and generates the code that registers them with their plugins.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default is ./autoreg.yaml)")
	flags.Bool("log-json", false, "log in JSON format")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	_ = a.v.BindPFlag("log.json", flags.Lookup("log-json"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(newGenCmd(a))
	rootCmd.AddCommand(newKindsCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// load reads the configuration and initializes the global logger from it.
func (a *app) load() (*config.Config, error) {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}
