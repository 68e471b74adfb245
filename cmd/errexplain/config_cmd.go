package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/armorclaw/errexplain/pkg/config"
	"github.com/armorclaw/errexplain/pkg/i18n"
)

func newConfigCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Resolves the configuration exactly as the library would and prints it.
The API key is masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.resolve(config.Overrides{})
			if err != nil {
				return err
			}
			masked := cfg.Masked()
			switch output {
			case "toml":
				return toml.NewEncoder(cmd.OutOrStdout()).Encode(masked)
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(masked); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown output %q (want toml or yaml)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "toml", "Output syntax: toml or yaml")
	return cmd
}

type initFlags struct {
	path        string
	backend     string
	model       string
	apiKey      string
	language    string
	format      string
	force       bool
	interactive bool
}

func newInitCmd(a *app) *cobra.Command {
	f := &initFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file",
		Long: `Writes an errexplain configuration file. When stdin is a terminal an
interactive form asks for the backend, model, language and format;
otherwise the values come from flags.

Examples:
  errexplain init
  errexplain init --path ./errexplain.yaml --backend openai --model gpt-4o-mini --no-input`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a, f)
		},
	}
	cmd.Flags().StringVarP(&f.path, "path", "p", "errexplain.toml", "Output path; .yaml or .yml writes YAML")
	cmd.Flags().StringVar(&f.backend, "backend", config.BackendNone, "AI backend")
	cmd.Flags().StringVar(&f.model, "model", "", "Model passed to the AI backend")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key for hosted backends")
	cmd.Flags().StringVar(&f.language, "language", "en", "Language code for explanations")
	cmd.Flags().StringVar(&f.format, "format", config.FormatAuto, "Output format")
	cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&f.interactive, "interactive", true, "Ask with a form when stdin is a terminal")
	cmd.Flags().Bool("no-input", false, "Never prompt; same as --interactive=false")
	return cmd
}

func runInit(cmd *cobra.Command, a *app, f *initFlags) error {
	if noInput, _ := cmd.Flags().GetBool("no-input"); noInput {
		f.interactive = false
	}
	if _, err := os.Stat(f.path); err == nil && !f.force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", f.path)
	}

	cfg := config.DefaultConfig()
	cfg.Backend = f.backend
	cfg.Model = f.model
	cfg.APIKey = f.apiKey
	cfg.Language = f.language
	cfg.Format = f.format

	if f.interactive && a.stdinTTY() {
		if err := initForm(cfg).Run(); err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}
	}

	if err := config.Save(cfg, f.path); err != nil {
		return err
	}

	abs, err := filepath.Abs(f.path)
	if err != nil {
		abs = f.path
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration written to: %s\n", abs)
	fmt.Fprintf(out, "  Use it with: export %s=%s\n", config.EnvConfigFile, abs)
	return nil
}

// initForm edits cfg in place
func initForm(cfg *config.Config) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("AI backend").
				Description("none keeps explanations local and offline").
				Options(huh.NewOptions(config.Backends()...)...).
				Value(&cfg.Backend),
			huh.NewInput().
				Title("Model").
				Placeholder("leave empty for the backend default").
				Value(&cfg.Model),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.APIKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Options(huh.NewOptions(i18n.Default().Locales()...)...).
				Value(&cfg.Language),
			huh.NewSelect[string]().
				Title("Output format").
				Options(huh.NewOptions(config.Formats()...)...).
				Value(&cfg.Format),
			huh.NewConfirm().
				Title("Redact secrets and personal data from AI prompts?").
				Value(&cfg.Sanitize.Enabled),
		),
	)
}
