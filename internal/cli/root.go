// Package cli implements the docquery command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/config"
	logpkg "github.com/kailas-cloud/docquery/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Env        string
	ConfigPath string
	Format     string // "json" | "text"
	LogLevel   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the docquery CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "docquery",
		Short: "Build and run content search queries",
		Long: `docquery compiles fluent predicates into search expressions and runs
them against the content API, or against a local fixture-backed mock.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Env, "env", config.GetEnv(), "environment (local|dev|prod|test)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug|info|warn|error)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewServeMockCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// loadConfig reads --config when given, config/<env>.yaml otherwise.
func (o *RootOptions) loadConfig() (config.Config, error) {
	if o.ConfigPath != "" {
		return config.LoadFile(o.ConfigPath)
	}
	return config.Load(o.Env)
}

func (o *RootOptions) newLogger(cfg config.Config) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if o.LogLevel != "" {
		level = o.LogLevel
	}
	return logpkg.NewLogger(o.Env, level)
}
