package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE:  runStatusCmd,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh media libraries and regenerate the playlist",
	Long: `Ask the server to run the library sync now: refresh the configured
media servers, regenerate the local playlist, and schedule the Plex
playlist import. The sync runs in the background on the server.`,
	RunE: runSyncCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("status check failed: %w", err)
	}

	if jsonOutput {
		printJSON(status)
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Server:     %s (%s)\n", serverURL, status.Status)
	fmt.Fprintf(w, "Version:    %s\n", status.Version)
	fmt.Fprintf(w, "Queue:      %d pending, %d in history\n", status.Pending, status.History)
	if status.EventLog != "" {
		fmt.Fprintf(w, "Event log:  %s\n", status.EventLog)
	}
	return nil
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	resp, err := client.Sync()
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if jsonOutput {
		printJSON(resp)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Library sync %s\n", resp.Status)
	return nil
}
