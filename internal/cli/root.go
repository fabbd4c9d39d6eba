// Package cli implements the sheetcheck command line tool.
//
// The commands share one engine built from the environment configuration
// (ENGINE_* variables, optionally from a .env file) with flag overrides.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetcheck/internal/config"
	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/core/validators"
	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
)

// ErrValidationFailed is returned when a checked workbook has errors, so
// the process exits non-zero.
var ErrValidationFailed = errors.New("validation found errors")

// app holds what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	engine *core.Engine
	rules  []core.BusinessRule
	log    *slog.Logger
}

// rootFlags are the persistent flags.
type rootFlags struct {
	rules    string
	schema   string
	logLevel string
	maxBytes int64
}

// NewRootCmd creates the root sheetcheck command with all subcommands.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "sheetcheck",
		Short:         "Validate and repair client, worker and task workbooks",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.rules, "rules", "", "YAML or JSON business rules file (default: ENGINE_RULES_FILE)")
	pf.StringVar(&flags.schema, "schema", "", "JSON Schema for AttributesJSON (default: ENGINE_ATTRIBUTES_SCHEMA)")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.Int64Var(&flags.maxBytes, "max-bytes", sheets.DefaultMaxBytes, "largest input file in bytes, negative for no limit")

	root.AddCommand(newValidateCmd(flags))
	root.AddCommand(newFixCmd(flags))
	root.AddCommand(newValidatorsCmd(flags))
	return root
}

// setup loads configuration and builds the engine. A .env file in the
// working directory is read if present but never overrides the environment.
func (f *rootFlags) setup(cmd *cobra.Command) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f.rules != "" {
		cfg.Engine.RulesFile = f.rules
	}
	if f.schema != "" {
		cfg.Engine.AttributesSchema = f.schema
	}

	log := logging.New(cmd.ErrOrStderr(), f.logLevel, cfg.Logging.Format)

	schema, err := cfg.LoadAttributesSchema()
	if err != nil {
		return nil, err
	}
	reg, err := validators.NewRegistry(validators.Options{AttributesSchema: string(schema)})
	if err != nil {
		return nil, err
	}
	rules, err := cfg.LoadRules()
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		engine: core.NewEngine(reg, core.WithLogger(log)),
		rules:  rules,
		log:    log,
	}, nil
}

func (f *rootFlags) sheetOptions() sheets.Options {
	return sheets.Options{MaxBytes: f.maxBytes}
}

// printError writes the user-facing form of err.
func printError(w io.Writer, err error) {
	msg := core.MapError(err)
	fmt.Fprintf(w, "%s %s (%s)\n", errorStyle.Render("error:"), msg.Message, msg.Code)
	if msg.Action != "" {
		fmt.Fprintf(w, "  %s\n", msg.Action)
	}
	fmt.Fprintf(w, "  %s\n", dimStyle.Render(err.Error()))
}

// Execute runs the root command and returns the process exit code.
func Execute(version string) int {
	root := NewRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		if !errors.Is(err, ErrValidationFailed) {
			printError(os.Stderr, err)
		}
		return 1
	}
	return 0
}
