// internal/config/error.go
package config

import (
	"fmt"
	"strings"
)

// sectionOrder is the order sections appear in the config file.
var sectionOrder = []string{
	"server",
	"database",
	"downloads",
	"sync",
	"mediaservers.plex",
	"mediaservers.jellyfin",
}

// ConfigError aggregates every problem found in one config file.
// Validation messages have the form "section.key: problem".
type ConfigError struct {
	Path    string   // Config file path
	Missing []string // Unresolved environment variables
	Errors  []string // Validation errors
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	var b strings.Builder
	if e.Path != "" {
		fmt.Fprintf(&b, "%s: ", e.Path)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "missing environment variables: %s", strings.Join(e.Missing, ", "))
		if len(e.Errors) > 0 {
			b.WriteString("\n")
		}
	}
	if len(e.Errors) > 0 {
		b.WriteString("validation failed:")
		for _, section := range e.Sections() {
			fmt.Fprintf(&b, "\n  [%s]", section)
			for _, msg := range e.BySection()[section] {
				fmt.Fprintf(&b, "\n    - %s", msg)
			}
		}
	}
	return b.String()
}

// HasErrors returns true if there are any errors.
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}

// BySection groups validation messages by the config section they refer to.
// Messages keep their relative order.
func (e *ConfigError) BySection() map[string][]string {
	groups := make(map[string][]string)
	for _, msg := range e.Errors {
		s := messageSection(msg)
		groups[s] = append(groups[s], msg)
	}
	return groups
}

// Sections returns the sections that have validation errors, in file order.
// Sections not known to the file layout sort last.
func (e *ConfigError) Sections() []string {
	groups := e.BySection()
	out := make([]string, 0, len(groups))
	for _, s := range sectionOrder {
		if _, ok := groups[s]; ok {
			out = append(out, s)
			delete(groups, s)
		}
	}
	for _, msg := range e.Errors {
		s := messageSection(msg)
		if _, ok := groups[s]; ok {
			out = append(out, s)
			delete(groups, s)
		}
	}
	return out
}

// messageSection returns "server" for "server.port: ...", and the two-level
// table name for media servers ("mediaservers.plex").
func messageSection(msg string) string {
	key, _, _ := strings.Cut(msg, ":")
	parts := strings.SplitN(strings.TrimSpace(key), ".", 3)
	if parts[0] == "mediaservers" && len(parts) > 1 {
		return parts[0] + "." + parts[1]
	}
	return parts[0]
}
