// Package readme rewrites the generated section of a markdown document.
//
// A document is split at its marker heading: everything before the marker is
// preserved, the marker and everything after it are owned by this package and
// regenerated on every update.
package readme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/scipunch/readmefeed/post"
)

var ErrUndecodable = errors.New("document is not valid UTF-8")

// Splice replaces the generated section of text with lines.
// Without a marker the whole text is kept and the section is appended.
func Splice(text, marker string, lines []string) string {
	kept := text
	if i := strings.LastIndex(text, marker); i >= 0 {
		kept = strings.ReplaceAll(text[:i], marker, "")
	}

	bullets := make([]string, 0, len(lines))
	for _, line := range lines {
		bullets = append(bullets, post.BulletLine(line))
	}

	return kept + marker + "\n" + strings.Join(bullets, "\n")
}

// Read loads the document at path
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document with %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("failed to decode '%s': %w", path, ErrUndecodable)
	}
	return string(data), nil
}

// WriteAtomic replaces the file at path through a temporary sibling and a
// rename, so readers see either the old or the new content.
func WriteAtomic(path, content string) error {
	dir := filepath.Dir(path)
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in '%s' with %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary file with %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temporary file with %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file with %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("failed to set mode on temporary file with %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace '%s' with %w", path, err)
	}
	return nil
}

// Update rewrites the generated section of the document at path and returns
// the new content
func Update(path, marker string, lines []string) (string, error) {
	text, err := Read(path)
	if err != nil {
		return "", err
	}
	updated := Splice(text, marker, lines)
	if err := WriteAtomic(path, updated); err != nil {
		return "", err
	}
	return updated, nil
}

// Resolve anchors a relative document path at baseDir
func Resolve(path, baseDir string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
