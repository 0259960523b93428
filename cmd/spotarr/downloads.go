package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Queue a download",
	Long: `Queue a Spotify url for download.

Examples:
  spotarr add https://open.spotify.com/track/...
  spotarr add -t album -a "Artist" -n "Album" https://open.spotify.com/album/...
  spotarr add -t playlist -n "My Mix" https://open.spotify.com/playlist/...`,
	Args: cobra.ExactArgs(1),
	RunE: runAddCmd,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <url>",
	Short: "Cancel a pending download",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancelCmd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(cancelCmd)
	addCmd.Flags().StringP("type", "t", "track", "Item type (track, album, artist, playlist)")
	addCmd.Flags().StringP("name", "n", "", "Item name, used in output paths and playlist file names")
	addCmd.Flags().StringP("artist", "a", "", "Artist name, used in output paths")
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	itemType, _ := cmd.Flags().GetString("type")
	name, _ := cmd.Flags().GetString("name")
	artist, _ := cmd.Flags().GetString("artist")

	client := NewClient(serverURL)
	item, err := client.Add(AddRequest{
		URL:    args[0],
		Type:   strings.ToLower(itemType),
		Name:   name,
		Artist: artist,
	})
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	if jsonOutput {
		printJSON(item)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Queued %s %s (%s)\n", item.Type, describe(*item), item.Status)
	return nil
}

func runCancelCmd(cmd *cobra.Command, args []string) error {
	client := NewClient(serverURL)
	item, err := client.Cancel(args[0])
	if err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}

	if jsonOutput {
		printJSON(item)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", describe(*item))
	return nil
}

// describe returns the most readable label for an item.
func describe(item DownloadItem) string {
	switch {
	case item.Name != "" && item.Artist != "":
		return fmt.Sprintf("%s - %s", item.Artist, item.Name)
	case item.Name != "":
		return item.Name
	case item.Artist != "":
		return item.Artist
	default:
		return item.URL
	}
}
