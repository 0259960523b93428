package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show download history",
	RunE:  runQueueCmd,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.Flags().BoolP("all", "a", false, "Include finished items (complete, failed, error, cancelled)")
	queueCmd.Flags().StringP("status", "s", "", "Filter by status (pending, downloading, complete, failed, error, cancelled)")
}

// activeStatuses are the statuses shown without --all.
var activeStatuses = map[string]bool{"pending": true, "downloading": true}

func runQueueCmd(cmd *cobra.Command, args []string) error {
	showAll, _ := cmd.Flags().GetBool("all")
	statusFilter, _ := cmd.Flags().GetString("status")

	client := NewClient(serverURL)
	history, err := client.Downloads()
	if err != nil {
		return fmt.Errorf("queue fetch failed: %w", err)
	}

	items := filterItems(history.History, showAll, statusFilter)

	if jsonOutput {
		printJSON(HistoryResponse{History: items})
		return nil
	}

	printQueue(cmd.OutOrStdout(), items, showAll || statusFilter != "")
	return nil
}

// filterItems keeps items matching status, or active items unless all is set.
func filterItems(items []DownloadItem, all bool, status string) []DownloadItem {
	filtered := make([]DownloadItem, 0, len(items))
	for _, item := range items {
		s := strings.ToLower(item.Status)
		switch {
		case status != "":
			if s != strings.ToLower(status) {
				continue
			}
		case !all && !activeStatuses[s]:
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

func printQueue(w io.Writer, items []DownloadItem, all bool) {
	if len(items) == 0 {
		if all {
			fmt.Fprintln(w, "No downloads")
		} else {
			fmt.Fprintln(w, "No active downloads")
		}
		return
	}

	fmt.Fprintf(w, "Downloads (%d):\n\n", len(items))
	fmt.Fprintf(w, "  %-3s %-12s %-9s %-40s %s\n", "#", "STATUS", "TYPE", "ITEM", "URL")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 90))

	for i, item := range items {
		fmt.Fprintf(w, "  %-3d %-12s %-9s %-40s %s\n", i+1, item.Status, item.Type, truncate(describe(item), 40), item.URL)
	}
}
