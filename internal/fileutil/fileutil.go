// Package fileutil holds small filesystem helpers for saving converted assets.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var nameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SafeName makes name usable as a single path element. Separators and other
// unsafe characters are replaced; an empty result becomes fallback.
func SafeName(name, fallback string) string {
	cleaned := strings.TrimSpace(nameReplacer.Replace(strings.TrimSpace(name)))
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// WriteAtomic writes path through a hidden temporary file in the same
// directory and renames it into place once write succeeds. The temporary file
// is removed on failure.
func WriteAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	partial, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(partial.Name())

	err = write(partial)
	if closeErr := partial.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(partial.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
