// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     DatabaseConfig     `toml:"database"`
	Downloads    DownloadsConfig    `toml:"downloads"`
	Sync         SyncConfig         `toml:"sync"`
	MediaServers MediaServersConfig `toml:"mediaservers"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type DownloadsConfig struct {
	Tool                 string        `toml:"tool"`
	LogLevel             string        `toml:"log_level"`  // Passed to the tool for playlist downloads
	ExtraArgs            []string      `toml:"extra_args"` // Appended before the url
	Timeout              time.Duration `toml:"timeout"`    // 0 = no deadline
	M3UDir               string        `toml:"m3u_dir"`    // Destination for playlist m3u files
	NormalizePermissions *bool         `toml:"normalize_permissions"`
	Output               OutputConfig  `toml:"output"`
}

// ShouldNormalizePermissions returns whether created directories are chmod'ed 0777.
// Defaults to true when not set.
func (c DownloadsConfig) ShouldNormalizePermissions() bool {
	if c.NormalizePermissions == nil {
		return true
	}
	return *c.NormalizePermissions
}

// OutputConfig holds per-type destination templates over {url} {type} {name} {artist}.
type OutputConfig struct {
	Track    string `toml:"track"`
	Album    string `toml:"album"`
	Artist   string `toml:"artist"`
	Playlist string `toml:"playlist"`
}

type SyncConfig struct {
	GenerateM3U *bool         `toml:"generate_m3u"`
	SourceDir   string        `toml:"source_dir"`
	M3UDir      string        `toml:"m3u_dir"`
	M3UName     string        `toml:"m3u_name"`
	SortOrder   string        `toml:"sort_order"`
	Formats     []string      `toml:"formats"`
	ImportDelay time.Duration `toml:"import_delay"`
}

// ShouldGenerateM3U returns whether the sync pipeline writes the local playlist.
// Defaults to true when not set.
func (c SyncConfig) ShouldGenerateM3U() bool {
	if c.GenerateM3U == nil {
		return true
	}
	return *c.GenerateM3U
}

type MediaServersConfig struct {
	Plex     *PlexConfig     `toml:"plex"`
	Jellyfin *JellyfinConfig `toml:"jellyfin"`
}

type PlexConfig struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	Library        string `toml:"library"`    // Music section title
	SectionID      string `toml:"section_id"` // Required for playlist import
	Scan           bool   `toml:"scan"`
	ImportPlaylist bool   `toml:"import_playlist"`
	LocalPath      string `toml:"local_path"`  // Path prefix on this machine
	RemotePath     string `toml:"remote_path"` // Same location as Plex sees it
}

type JellyfinConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
	Scan   bool   `toml:"scan"`
}

// Load reads, parses and validates the configuration file.
// Unresolved environment variables and validation failures are returned
// together as a *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file, applying
// defaults but skipping validation and missing variable checks.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return nil, nil, fmt.Errorf("parsing config: %s", perr.ErrorWithPosition())
		}
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, missing, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8686
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/spotarr.db"
	}
	if c.Downloads.Tool == "" {
		c.Downloads.Tool = "spotdl"
	}
	if c.Downloads.LogLevel == "" {
		c.Downloads.LogLevel = "INFO"
	}
	if c.Sync.M3UName == "" {
		c.Sync.M3UName = "Spotarr"
	}
	if c.Sync.SortOrder == "" {
		c.Sync.SortOrder = "date_desc"
	}
	if c.Sync.ImportDelay == 0 {
		c.Sync.ImportDelay = 30 * time.Second
	}
	if c.Sync.M3UDir == "" {
		c.Sync.M3UDir = c.Downloads.M3UDir
	}
	if c.Sync.SourceDir == "" {
		c.Sync.SourceDir = c.Downloads.Output.Track
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([-?])([^}]*))?\}`)

// substituteEnvVars replaces variable references with environment values.
// Unresolved references are left unchanged and reported in missing.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		name, op, arg := parts[1], parts[2], parts[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case "-":
			if !ok || value == "" {
				return arg
			}
			return value
		case "?":
			if !ok || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, strings.TrimSpace(arg)))
				return match
			}
			return value
		}

		if !ok {
			missing = append(missing, name)
			return match // Leave unchanged if not found
		}
		return value
	})
	return result, missing
}
