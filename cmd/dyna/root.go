package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/felixgeelhaar/dyna/internal/config"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	registryPath string
	logLevel     string
	logJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "dyna",
	Short: "Keep host plugins up to date",
	Long: `dyna keeps the plugins of a host application up to date.

Plugins opt in with a "dyna" block naming their repository. dyna reads the
repository's dyna.json manifest on a schedule, downloads newer artifacts,
hands them to the host and restarts the host when a plugin asks for it.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "host plugin directory (overrides registry.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")

	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies flags that were set
// explicitly on the command line, then the command's own overrides.
func loadConfig(flags *pflag.FlagSet, overrides ...func(*config.Config)) (config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	applyOverrides(&cfg, flags)
	for _, fn := range overrides {
		fn(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, flags *pflag.FlagSet) {
	if flags.Changed("registry") {
		cfg.Registry.Path = registryPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = logJSON
	}
	if verbose && !flags.Changed("log-level") {
		cfg.Log.Level = "debug"
	}
}

// quietLogs raises the default log level so one-shot commands only print
// their result.
func quietLogs(flags *pflag.FlagSet) func(*config.Config) {
	return func(cfg *config.Config) {
		if !verbose && !flags.Changed("log-level") && cfg.Log.File == "" {
			cfg.Log.Level = "warn"
		}
	}
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var list *config.ErrorList
	if errors.As(err, &list) && len(list.Errors()) > 1 {
		return list.Format()
	}

	var userErr *config.UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" && userErr.Code != config.ErrCodeValidationFailed {
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
