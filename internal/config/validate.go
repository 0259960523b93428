// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validSortOrders = map[string]bool{
	"name_asc": true, "name_desc": true, "date_asc": true, "date_desc": true, "": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[strings.ToLower(c.Server.LogLevel)] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Downloads validation
	if c.Downloads.Output.Track == "" {
		errs = append(errs, "downloads.output.track: required (used for unknown item types)")
	}
	if c.Downloads.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("downloads.timeout: must not be negative, got %s", c.Downloads.Timeout))
	}

	// Sync validation
	if !validSortOrders[c.Sync.SortOrder] {
		errs = append(errs, fmt.Sprintf("sync.sort_order: must be one of name_asc, name_desc, date_asc, date_desc; got %q", c.Sync.SortOrder))
	}
	if c.Sync.ShouldGenerateM3U() && c.Sync.M3UDir == "" {
		errs = append(errs, "sync.m3u_dir: required when generate_m3u is enabled")
	}

	// Plex validation
	if p := c.MediaServers.Plex; p != nil && (p.Scan || p.ImportPlaylist) {
		if p.URL == "" {
			errs = append(errs, "mediaservers.plex.url: required when scan or import_playlist is enabled")
		}
		if p.Token == "" {
			errs = append(errs, "mediaservers.plex.token: required when scan or import_playlist is enabled")
		}
		if p.Scan && p.Library == "" && p.SectionID == "" {
			errs = append(errs, "mediaservers.plex.library: library or section_id required when scan is enabled")
		}
		if p.ImportPlaylist && p.SectionID == "" {
			errs = append(errs, "mediaservers.plex.section_id: required when import_playlist is enabled")
		}
		if (p.LocalPath == "") != (p.RemotePath == "") {
			errs = append(errs, "mediaservers.plex: local_path and remote_path must be set together")
		}
	}

	// Jellyfin validation
	if j := c.MediaServers.Jellyfin; j != nil && j.Scan {
		if j.URL == "" {
			errs = append(errs, "mediaservers.jellyfin.url: required when scan is enabled")
		}
		if j.APIKey == "" {
			errs = append(errs, "mediaservers.jellyfin.api_key: required when scan is enabled")
		}
	}

	return errs
}
