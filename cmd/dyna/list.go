package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/dyna/internal/tui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugins that use dyna",
	Long: `List the host plugins that opted into updates.

Entries with a malformed "dyna" block are reported on stderr and skipped.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listJSON bool

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
}

func runList(cmd *cobra.Command, _ []string) error {
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

	scan := d.service.Rebuild(ctx)
	for _, skipped := range scan.Skipped {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", skipped.Key, skipped.Err)
	}

	records := d.service.Plugins()
	out := cmd.OutOrStdout()
	if listJSON {
		return writeJSON(out, records)
	}
	_, err = fmt.Fprintln(out, tui.RenderPlugins(records))
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
