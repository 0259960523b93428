package download

import (
	"context"

	"github.com/vmunix/spotarr/internal/spotdl"
)

//go:generate mockgen -destination=mocks/mock_download.go -package=mocks github.com/vmunix/spotarr/internal/download ToolRunner,Notifier

// ToolRunner executes the external download tool, streaming merged output to sink.
type ToolRunner interface {
	Run(ctx context.Context, cmd spotdl.Command, sink spotdl.LineFunc) (exitCode int, err error)
}

// ToolConfig describes how the download tool is invoked.
type ToolConfig struct {
	Binary    string   // e.g. "spotdl"
	LogLevel  string   // passed with --log-level for playlist downloads
	ExtraArgs []string // appended before the url
}

// BuildCommand returns the tool invocation for item, run from dir with output ".".
// Playlist items also ask the tool to write an m3u named after the playlist.
func BuildCommand(cfg ToolConfig, item Item, dir string) spotdl.Command {
	binary := cfg.Binary
	if binary == "" {
		binary = "spotdl"
	}

	args := []string{"--output", "."}
	if item.Type == TypePlaylist {
		args = append(args, "--m3u", PlaylistFileName(item.Name))
		if cfg.LogLevel != "" {
			args = append(args, "--log-level", cfg.LogLevel)
		}
		args = append(args, "--print-errors")
	}
	args = append(args, cfg.ExtraArgs...)
	args = append(args, item.URL)

	return spotdl.Command{Path: binary, Args: args, Dir: dir}
}
