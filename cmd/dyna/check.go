package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/dyna/internal/domain/plugin"
	"github.com/felixgeelhaar/dyna/internal/validation"
)

// errUpdateAvailable makes check exit non-zero with --exit-code.
var errUpdateAvailable = errors.New("update available")

var checkCmd = &cobra.Command{
	Use:   "check <author> <id>",
	Short: "Check whether a plugin has an update",
	Long: `Check whether a newer version of a plugin is published.

A plugin is reported as up to date when it is current, in developer mode,
not tracked, or when its manifest could not be fetched.

Examples:
  dyna check amycatgirl theme
  dyna check amycatgirl theme --exit-code   # exit 1 when an update exists`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

var checkExitCode bool

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkExitCode, "exit-code", false, "exit with status 1 when an update is available")
}

func runCheck(cmd *cobra.Command, args []string) error {
	author, id := args[0], args[1]
	if err := validation.ValidateIdentifier(author); err != nil {
		return fmt.Errorf("author: %w", err)
	}
	if err := validation.ValidateIdentifier(id); err != nil {
		return fmt.Errorf("id: %w", err)
	}

	cfg, err := loadConfig(cmd.Flags(), quietLogs(cmd.Flags()))
	if err != nil {
		return err
	}
	d, err := newDaemon(cfg, daemonOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer func() { _ = d.shutdown(ctx) }()

	available := d.service.CheckUpdatesForPlugin(ctx, author, id)
	key := plugin.Key(author, id)
	out := cmd.OutOrStdout()

	switch {
	case available:
		_, _ = fmt.Fprintf(out, "An update is available for %s\n", key)
		if checkExitCode {
			return errUpdateAvailable
		}
	case !tracked(d.service.Plugins(), author, id):
		_, _ = fmt.Fprintf(out, "%s does not use dyna\n", key)
	default:
		_, _ = fmt.Fprintf(out, "%s is up to date\n", key)
	}
	return nil
}

func tracked(records []plugin.Record, author, id string) bool {
	for _, r := range records {
		if r.Author == author && r.ID == id {
			return true
		}
	}
	return false
}
