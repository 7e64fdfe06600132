package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/forge/internal/adapters/logging"
	"github.com/felixgeelhaar/forge/internal/app"
	"github.com/felixgeelhaar/forge/internal/domain/config"
	"github.com/felixgeelhaar/forge/internal/ports"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Plugin host for the Forge maintenance app",
	Long: `Forge hosts the feature modules of a multi-tenant maintenance app.

Modules register tabs, sidebar panels, navigation and routed content. The
host loads them in dependency order and shows each operator only what
their tenant, roles and permissions allow.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: forge.yaml or forge.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var list *config.ErrorList
	if errors.As(err, &list) {
		return list.Format()
	}

	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})
}

// loadConfig reads --config, or discovers a config file in the working
// directory.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.Discover(".")
}

// commandContext returns the command context, or Background outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// startHost builds the host from the configuration and loads its plugins.
// Load failures are logged and left visible in plugin state; they do not
// fail the command. Callers must Shutdown the returned host.
func startHost(cmd *cobra.Command) (*app.Host, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	host, err := app.NewHost(cfg, app.WithHostLogger(logger))
	if err != nil {
		return nil, err
	}

	ctx := commandContext(cmd)
	report, err := host.LoadAll(ctx)
	if err != nil {
		for _, f := range report.Failed {
			logger.Warn(ctx, "plugin failed to load", ports.F("plugin", f.PluginID), ports.Err(f.Err))
		}
	}
	return host, nil
}

// stopHost shuts the host down, logging rather than returning failures so
// the command's own result stands.
func stopHost(cmd *cobra.Command, host *app.Host) {
	ctx := commandContext(cmd)
	if err := host.Shutdown(ctx); err != nil {
		host.Logger().Error(ctx, "shutdown failed", ports.Err(err))
	}
}
