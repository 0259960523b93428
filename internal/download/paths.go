package download

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// placeholderPattern matches {field} placeholders.
var placeholderPattern = regexp.MustCompile(`\{(\w*)\}`)

// templateFields returns the values a template may reference.
func templateFields(item Item) map[string]string {
	return map[string]string{
		"url":    SanitizeSegment(item.URL),
		"type":   SanitizeSegment(string(item.Type)),
		"name":   SanitizeSegment(item.Name),
		"artist": SanitizeSegment(item.Artist),
	}
}

// Resolve substitutes item fields into template. It fails closed: an unknown
// placeholder or unbalanced brace returns the template unchanged with ok=false.
func Resolve(template string, item Item) (path string, ok bool) {
	fields := templateFields(item)

	// Anything left after removing well-formed placeholders must be brace-free.
	if strings.ContainsAny(placeholderPattern.ReplaceAllString(template, ""), "{}") {
		return template, false
	}

	ok = true
	resolved := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		val, found := fields[name]
		if !found {
			ok = false
			return match
		}
		return val
	})
	if !ok {
		return template, false
	}
	return filepath.Clean(resolved), true
}

// Resolver maps item types to output directory templates.
type Resolver struct {
	templates        map[Type]string
	normalizePerms   bool
	dirMode, chmodTo os.FileMode
}

// NewResolver creates a resolver. templates must contain a TypeTrack entry, which
// is used for unknown types and for types without their own template.
func NewResolver(templates map[Type]string, normalizePerms bool) *Resolver {
	copied := make(map[Type]string, len(templates))
	for t, tmpl := range templates {
		if tmpl != "" {
			copied[t] = tmpl
		}
	}
	return &Resolver{
		templates:      copied,
		normalizePerms: normalizePerms,
		dirMode:        0o755,
		chmodTo:        0o777,
	}
}

// Template returns the destination template for t, falling back to the track template.
func (r *Resolver) Template(t Type) string {
	if tmpl, ok := r.templates[t]; ok {
		return tmpl
	}
	return r.templates[TypeTrack]
}

// Resolve returns the output directory for item and whether templating succeeded.
func (r *Resolver) Resolve(item Item) (string, bool) {
	return Resolve(r.Template(item.Type), item)
}

// EnsureDir creates dir and its parents. Existing directories are not an error.
// Permissions are normalized afterwards when enabled; a chmod failure is
// returned as a warning, not an error.
func (r *Resolver) EnsureDir(dir string) (warning error, err error) {
	if dir == "" {
		return nil, fmt.Errorf("create output dir: empty path")
	}
	if err := os.MkdirAll(dir, r.dirMode); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	if r.normalizePerms {
		if err := os.Chmod(dir, r.chmodTo); err != nil {
			return fmt.Errorf("chmod %s: %w", dir, err), nil
		}
	}
	return nil, nil
}
