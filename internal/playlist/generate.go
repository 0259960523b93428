package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SortOrder controls the order of entries in a generated playlist.
type SortOrder string

const (
	SortNameAsc  SortOrder = "name_asc"
	SortNameDesc SortOrder = "name_desc"
	SortDateAsc  SortOrder = "date_asc"
	SortDateDesc SortOrder = "date_desc"
)

// DefaultFormats are the audio extensions included when none are configured.
var DefaultFormats = []string{".mp3", ".flac", ".m4a", ".opus", ".ogg", ".wav"}

// ParseSortOrder returns the order named by s. Unknown values mean newest first.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNameAsc, SortNameDesc, SortDateAsc:
		return o
	}
	return SortDateDesc
}

// Valid reports whether o is a known order.
func (o SortOrder) Valid() bool {
	switch o {
	case SortNameAsc, SortNameDesc, SortDateAsc, SortDateDesc:
		return true
	}
	return false
}

type track struct {
	path    string
	name    string
	modTime time.Time
}

// GenerateLocal writes an m3u to destFile listing the audio files directly in
// sourceFolder, one absolute path per line. Subdirectories are not scanned.
// Existing content of destFile is replaced. It returns the number of entries.
func GenerateLocal(sourceFolder, destFile string, order SortOrder, formats []string) (int, error) {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	allowed := make(map[string]bool, len(formats))
	for _, ext := range formats {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	absSource, err := filepath.Abs(sourceFolder)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceDir, err)
	}
	dirEntries, err := os.ReadDir(absSource)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceDir, err)
	}

	var tracks []track
	for _, e := range dirEntries {
		if e.IsDir() || !allowed[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed while scanning
		}
		tracks = append(tracks, track{
			path:    filepath.Join(absSource, e.Name()),
			name:    e.Name(),
			modTime: info.ModTime(),
		})
	}

	sortTracks(tracks, order)

	var b strings.Builder
	for _, t := range tracks {
		b.WriteString(t.path)
		b.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(destFile), 0755); err != nil {
		return 0, fmt.Errorf("create playlist dir: %w", err)
	}
	if err := writeFile(destFile, []byte(b.String())); err != nil {
		return 0, err
	}
	return len(tracks), nil
}

func sortTracks(tracks []track, order SortOrder) {
	var less func(a, b track) bool
	switch order {
	case SortNameAsc:
		less = func(a, b track) bool { return a.name < b.name }
	case SortNameDesc:
		less = func(a, b track) bool { return a.name > b.name }
	case SortDateAsc:
		less = func(a, b track) bool { return a.modTime.Before(b.modTime) }
	default:
		less = func(a, b track) bool { return a.modTime.After(b.modTime) }
	}
	sort.SliceStable(tracks, func(i, j int) bool { return less(tracks[i], tracks[j]) })
}
