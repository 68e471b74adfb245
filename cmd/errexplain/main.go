// errexplain - explain Go faults in plain language
//
// The CLI explains panic dumps captured from other processes, manages the
// errexplain configuration and runs a demo server wired with the HTTP
// middleware.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/armorclaw/errexplain/pkg/ai"
	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/logger"
)

// Build information, set via -ldflags
var (
	version   = logger.Version
	gitCommit = "unknown"
	buildTime = "unknown"
)

// app carries the process environment the commands run against
type app struct {
	configPath string
	envFile    string

	getenv   func(string) string
	stdinTTY func() bool
	factory  ai.Factory
}

func newApp() *app {
	return &app{
		getenv:   os.Getenv,
		stdinTTY: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "errexplain",
		Short: "Explain Go errors, panics and fatal shutdowns",
		Long: `errexplain turns runtime faults into readable explanations, optionally
enriched by an AI backend, and renders them as terminal text, JSON or HTML.

Configuration is read from the file named by --config or ERREXPLAIN_CONFIG,
then .env, then ERREXPLAIN_* environment variables, then command flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file (TOML or YAML)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Path to .env file (default: ./.env)")

	root.AddCommand(
		newExplainCmd(a),
		newConfigCmd(a),
		newInitCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) source(ov config.Overrides) config.Source {
	return config.Source{
		Path:      a.configPath,
		DotEnv:    a.envFile,
		Getenv:    a.getenv,
		Overrides: ov,
	}
}

func (a *app) resolve(ov config.Overrides) (*config.Config, error) {
	return config.Resolve(a.source(ov))
}

// logger builds the CLI logger. Records go to stderr unless the
// configuration names another output.
func (a *app) logger(cfg *config.Config, stderr io.Writer) *logger.Logger {
	lc := logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		Component: "cli",
	}
	if lc.Output == "" || lc.Output == "stderr" {
		lc.Writer = stderr
	}
	l, err := logger.New(lc)
	if err != nil {
		return logger.Global()
	}
	return l
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "errexplain %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", gitCommit)
			fmt.Fprintf(out, "  built:  %s\n", buildTime)
			fmt.Fprintf(out, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
