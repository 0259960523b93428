package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent events",
	RunE:  runEventsCmd,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	eventsCmd.Flags().String("url", "", "Only show events for this download url")
	eventsCmd.Flags().Duration("since", 0, "Only show events from this far back, oldest first (e.g. 2h)")
}

func runEventsCmd(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	itemURL, _ := cmd.Flags().GetString("url")
	window, _ := cmd.Flags().GetDuration("since")

	var since time.Time
	if window > 0 {
		since = time.Now().Add(-window)
	}

	client := NewClient(serverURL)
	events, err := client.Events(limit, itemURL, since)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	if jsonOutput {
		printJSON(events)
		return nil
	}

	w := cmd.OutOrStdout()
	if len(events.Items) == 0 {
		fmt.Fprintln(w, "No events")
		return nil
	}

	fmt.Fprintf(w, "Recent Events (%d):\n\n", events.Total)
	fmt.Fprintf(w, "  %-12s %-26s %s\n", "TIME", "TYPE", "ENTITY")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 70))

	for _, e := range events.Items {
		t, _ := time.Parse(time.RFC3339, e.OccurredAt)
		ago := formatTimeAgo(t.Unix())
		entity := e.EntityType
		if e.EntityKey != "" {
			entity += "/" + e.EntityKey
		}
		fmt.Fprintf(w, "  %-12s %-26s %s\n", ago, e.EventType, entity)
	}

	return nil
}
