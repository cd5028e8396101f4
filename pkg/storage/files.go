package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Exists reports whether a regular file or directory is present at path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFile creates any missing parent directories and writes data atomically
// through a temporary file in the same directory.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	out, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := out.Name()

	_, err = out.Write(data)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Missing returns the items whose destination path does not exist yet, preserving order
func Missing[T any](items []T, destination func(T) string) []T {
	var out []T
	for _, item := range items {
		if !Exists(destination(item)) {
			out = append(out, item)
		}
	}
	return out
}
