// Package playlist publishes and generates m3u playlist files.
package playlist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Publisher relocates tool-written m3u files and rewrites their entries to
// absolute paths.
type Publisher struct {
	log *slog.Logger
}

// NewPublisher creates a publisher.
func NewPublisher(log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{log: log.With("component", "playlist")}
}

// Candidates returns the paths searched for name, in order: sourceDir, then the
// process working directory.
func Candidates(name, sourceDir string) []string {
	paths := []string{filepath.Join(sourceDir, name)}
	if wd, err := os.Getwd(); err == nil && filepath.Clean(wd) != filepath.Clean(sourceDir) {
		paths = append(paths, filepath.Join(wd, name))
	}
	return paths
}

// Publish moves the first existing candidate for name into destDir and rewrites
// each relative entry as an absolute path under sourceDir. It returns the final
// path of the playlist, or ErrNotFound if no candidate exists.
func (p *Publisher) Publish(name, sourceDir, destDir string) (string, error) {
	src := ""
	for _, candidate := range Candidates(name, sourceDir) {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			src = candidate
			break
		}
	}
	if src == "" {
		return "", fmt.Errorf("%s in %s: %w", name, sourceDir, ErrNotFound)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create playlist dir: %w", err)
	}

	dest := filepath.Join(destDir, name)
	if filepath.Clean(src) != filepath.Clean(dest) {
		if err := moveFile(src, dest); err != nil {
			return "", err
		}
		p.log.Debug("playlist moved", "from", src, "to", dest)
	}

	n, err := Absolutize(dest, sourceDir)
	if err != nil {
		return dest, err
	}
	p.log.Info("playlist rewritten", "path", dest, "entries", n)
	return dest, nil
}

// moveFile renames src to dst, replacing dst. Across filesystems it falls back
// to copy and remove.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move playlist: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("move playlist: open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("move playlist: create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("move playlist: copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("move playlist: close destination: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("move playlist: remove source: %w", err)
	}
	return nil
}

// Absolutize rewrites the m3u at path in place. Relative entries become
// absolute paths under baseDir, absolute entries are cleaned, and directive
// lines and blank lines are kept as-is. It returns the number of entries.
func Absolutize(path, baseDir string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read playlist: %w", err)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return 0, fmt.Errorf("resolve base dir: %w", err)
	}

	var buf bytes.Buffer
	entries := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		entry := strings.TrimSpace(line)
		switch {
		case entry == "", strings.HasPrefix(entry, "#"):
			buf.WriteString(line)
		case filepath.IsAbs(entry):
			buf.WriteString(filepath.Clean(entry))
			entries++
		default:
			buf.WriteString(filepath.Join(absBase, entry))
			entries++
		}
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan playlist: %w", err)
	}

	if err := writeFile(path, buf.Bytes()); err != nil {
		return 0, err
	}
	return entries, nil
}

// writeFile replaces path with data through a temp file in the same directory.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".m3u-*")
	if err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write playlist: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write playlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write playlist: %w", err)
	}
	return nil
}
