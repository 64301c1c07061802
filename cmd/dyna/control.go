package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/dyna/internal/adapters/ipc"
	"github.com/felixgeelhaar/dyna/internal/tui/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the running daemon",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run an update cycle in the running daemon now",
	Long: `Ask the running daemon to check every plugin now instead of waiting
for the next interval. The command waits for the cycle to finish.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var (
	statusJSON    bool
	updateTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(stopCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	updateCmd.Flags().DurationVar(&updateTimeout, "timeout", 10*time.Minute, "maximum time to wait for the cycle")
}

func controlClient(cmd *cobra.Command, timeout time.Duration) (*ipc.Client, error) {
	cfg, err := loadConfig(cmd.Flags(), quietLogs(cmd.Flags()))
	if err != nil {
		return nil, err
	}
	return ipc.NewClient(ipc.ClientConfig{SocketPath: cfg.Control.Socket, Timeout: timeout}), nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	client, err := controlClient(cmd, 5*time.Second)
	if err != nil {
		return err
	}
	status, err := client.Status()
	if err != nil {
		return err
	}
	if statusJSON {
		return writeJSON(cmd.OutOrStdout(), status)
	}
	printStatus(cmd.OutOrStdout(), status)
	return nil
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	// The connection must outlive the cycle.
	client, err := controlClient(cmd, updateTimeout+5*time.Second)
	if err != nil {
		return err
	}
	resp, err := client.Update(updateTimeout)
	if err != nil {
		return err
	}
	printUpdate(cmd.OutOrStdout(), resp)
	if resp.Error != "" {
		return fmt.Errorf("update cycle: %s", resp.Error)
	}
	return nil
}

func runStop(cmd *cobra.Command, _ []string) error {
	client, err := controlClient(cmd, 35*time.Second)
	if err != nil {
		return err
	}
	pid := client.PID()
	resp, err := client.Stop(30 * time.Second)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("stopping daemon: %s", resp.Message)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stopping dyna daemon (PID %d)\n", pid)
	return nil
}

func printStatus(w io.Writer, s *ipc.StatusResponse) {
	styles := ui.DefaultStyles()

	_, _ = fmt.Fprintln(w, styles.Title.Render(fmt.Sprintf("dyna daemon (PID %d, version %s)", s.PID, s.Version)))
	_, _ = fmt.Fprintf(w, "  State:       %s\n", s.Scheduler.State)
	_, _ = fmt.Fprintf(w, "  Plugins:     %d\n", s.Plugins)
	_, _ = fmt.Fprintf(w, "  Cycles:      %d (%d failed)\n", s.Scheduler.CycleCount, s.Scheduler.ErrorCount)
	_, _ = fmt.Fprintf(w, "  Last cycle:  %s\n", formatTime(s.Scheduler.LastCycleAt))
	_, _ = fmt.Fprintf(w, "  Next cycle:  %s\n", formatTime(s.Scheduler.NextCycleAt))
	if s.Scheduler.LastError != "" {
		_, _ = fmt.Fprintf(w, "  Last error:  %s\n", styles.Error.Render(s.Scheduler.LastError))
	}
	if s.Debug {
		_, _ = fmt.Fprintln(w, styles.Warning.Render("  Debug tools are installed"))
	}
}

func printUpdate(w io.Writer, r *ipc.UpdateResponse) {
	_, _ = fmt.Fprintf(w, "Checked %d plugin(s): %d loaded, %d up to date, %d skipped, %d failed in %s\n",
		r.Checked, r.Loaded, r.UpToDate, r.DevSkipped, r.Failed, r.Duration)
	if r.Restarted {
		_, _ = fmt.Fprintln(w, "The host was restarted.")
	}
	if r.Aborted {
		_, _ = fmt.Fprintln(w, "The cycle was interrupted by shutdown.")
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
