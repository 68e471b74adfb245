package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/armorclaw/errexplain/internal/panicparse"
	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/explain"
	"github.com/armorclaw/errexplain/pkg/render"
)

type explainFlags struct {
	format   string
	backend  string
	model    string
	language string
	verbose  bool
}

func newExplainCmd(a *app) *cobra.Command {
	f := &explainFlags{}
	cmd := &cobra.Command{
		Use:   "explain [file]",
		Short: "Explain a Go panic dump read from a file or stdin",
		Long: `Reads the crash output of a Go program, starting at its "panic:" or
"fatal error:" line, and renders an explanation of the panicking goroutine.

Examples:
  go run ./cmd/app 2>&1 | errexplain explain
  errexplain explain crash.log --format json
  errexplain explain crash.log --backend anthropic --model claude-3-5-haiku-latest`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, a, f, args)
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: auto, text, html, json")
	cmd.Flags().StringVarP(&f.backend, "backend", "b", "", "AI backend: none, local, api, openai, anthropic, google, gemini")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model passed to the AI backend")
	cmd.Flags().StringVarP(&f.language, "language", "l", "", "Language code for the explanation")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Append diagnostics to the output")
	return cmd
}

// overrides keeps only the flags the user actually set
func (f *explainFlags) overrides(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	flags := cmd.Flags()
	if flags.Changed("format") {
		ov.Format = config.String(f.format)
	}
	if flags.Changed("backend") {
		ov.Backend = config.String(f.backend)
	}
	if flags.Changed("model") {
		ov.Model = config.String(f.model)
	}
	if flags.Changed("language") {
		ov.Language = config.String(f.language)
	}
	if flags.Changed("verbose") {
		ov.Verbose = config.Bool(f.verbose)
	}
	return ov
}

func runExplain(cmd *cobra.Command, a *app, f *explainFlags, args []string) error {
	cfg, err := a.resolve(f.overrides(cmd))
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open dump: %w", err)
		}
		defer file.Close()
		in = file
	}

	dump, err := panicparse.Parse(in)
	if err != nil {
		return err
	}

	log := a.logger(cfg, cmd.ErrOrStderr())
	opts := []explain.Option{explain.WithLogger(log)}
	if a.factory != nil {
		opts = append(opts, explain.WithBackendFactory(a.factory))
	}

	ev := dump.Event()
	exp := explain.NewBuilder(opts...).Explain(cmd.Context(), ev, cfg)

	ctx := render.WithContext(cmd.Context(), render.Context{
		Stdout: cmd.OutOrStdout(),
		Getenv: a.getenv,
	})
	_, err = render.New(nil, render.WithLogger(log)).Render(ctx, render.Input{
		Explanation: &exp,
		Config:      cfg,
		Kind:        ev.Kind,
		Shutdown:    dump.Fatal,
	})
	return err
}
