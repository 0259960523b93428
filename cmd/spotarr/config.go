package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/spotarr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the server.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Long: `Write the default configuration file.

Without a path the file is written to $XDG_CONFIG_HOME/spotarr/config.toml.
Secrets are referenced as environment variables (PLEX_TOKEN, JELLYFIN_API_KEY).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInitCmd,
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	configCmd.AddCommand(configTestCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}

	if err := config.WriteDefault(path, force); err != nil {
		if errors.Is(err, config.ErrExists) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	path := "config.toml"
	if len(args) > 0 {
		path = args[0]
	} else if discovered, err := config.Discover(); err == nil {
		path = discovered
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(w, configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(w, cfg)
	fmt.Fprintln(w, "\nConfiguration valid!")
	return nil
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		groups := e.BySection()
		for _, section := range e.Sections() {
			fmt.Fprintf(w, "  [%s]\n", section)
			for _, msg := range groups[section] {
				fmt.Fprintf(w, "    - %s\n", msg)
			}
		}
		fmt.Fprintln(w)
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Server:     %s:%d (log: %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.LogLevel)
	fmt.Fprintf(w, "  Database:   %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "  Tool:       %s %s\n", cfg.Downloads.Tool, strings.Join(cfg.Downloads.ExtraArgs, " "))
	fmt.Fprintf(w, "  Tracks:     %s\n", cfg.Downloads.Output.Track)

	if cfg.Sync.ShouldGenerateM3U() {
		fmt.Fprintf(w, "  Playlist:   %s/%s.m3u (%s)\n", cfg.Sync.M3UDir, cfg.Sync.M3UName, cfg.Sync.SortOrder)
	}

	// Integrations
	integrations := []string{}
	if p := cfg.MediaServers.Plex; p != nil && (p.Scan || p.ImportPlaylist) {
		integrations = append(integrations, "plex")
	}
	if j := cfg.MediaServers.Jellyfin; j != nil && j.Scan {
		integrations = append(integrations, "jellyfin")
	}
	if len(integrations) > 0 {
		fmt.Fprintf(w, "  Integrations: %s\n", strings.Join(integrations, ", "))
	}
}
