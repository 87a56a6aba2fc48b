// Command vcschema converts, checks and serves Verifiable Credential
// templates.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/credkit/vcschema/config"
	"github.com/credkit/vcschema/i18n"
	"github.com/credkit/vcschema/internal/render"
	"github.com/credkit/vcschema/normalize"
)

// app is the state shared by every subcommand once flags and config are read.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	logger  *slog.Logger
	printer *render.Printer

	configPath string
	theme      string
	lang       string
	logLevel   string
	color      string
	offline    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "vcschema",
		Short: "Build and check JSON Schemas for Verifiable Credentials",
		Long: `vcschema converts credential templates between the editor form and JSON
Schema, generates example credentials and checks them with JSON-LD
normalization (URDNA2015).

Configuration is read from vcschema.yaml (current or parent directories),
~/.config/vcschema/config.yaml, .env and VCSCHEMA_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (skips the config search)")
	pf.StringVar(&a.theme, "theme", "", "output theme: light or dark")
	pf.StringVar(&a.lang, "lang", "", "message language: en or ja")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.color, "color", "auto", "colour output: auto, always, never")
	pf.BoolVar(&a.offline, "offline", false, "resolve only the bundled JSON-LD contexts")

	root.AddCommand(
		a.exportCmd(),
		a.importCmd(),
		a.exampleCmd(),
		a.normalizeCmd(),
		a.validateCmd(),
		a.watchCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads the config, applies flag overrides and builds the logger and
// the printer. The theme is resolved here and handed to the printer; nothing
// else reads it.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	bootstrap := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	loader := config.NewLoader(bootstrap)
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = loader.LoadFile(a.configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("theme") {
		cfg.UI.Theme = a.theme
	}
	if flags.Changed("lang") {
		cfg.UI.Lang = a.lang
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("offline") {
		cfg.Normalize.Offline = a.offline
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	i18n.SetLanguage(cfg.UI.Lang)

	theme, err := render.ThemeByName(cfg.UI.Theme)
	if err != nil {
		return err
	}
	var color bool
	switch a.color {
	case "always":
		color = true
	case "never":
	case "auto":
		color = os.Getenv("NO_COLOR") == "" && render.IsTerminal(a.stderr)
	default:
		return fmt.Errorf("--color must be auto, always or never")
	}
	a.printer = render.New(a.stderr, theme, color)
	a.cfg = cfg
	return nil
}

// newChecker builds the normalization validator for the configured mode.
func (a *app) newChecker() (*normalize.Validator, error) {
	loader, err := normalize.NewLoader(normalize.LoaderOptions{Offline: a.cfg.Normalize.Offline})
	if err != nil {
		return nil, err
	}
	return normalize.NewValidator(
		normalize.WithLoader(loader),
		normalize.WithLogger(a.logger),
	)
}
