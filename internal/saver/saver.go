// Package saver persists attachment bytes to disk, skipping files that
// are already present.
package saver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Save writes data to destDir under filename, creating the directory if
// needed. It returns the final path and whether a new file was written.
//
// Duplicate policy: a file with identical name and byte size is assumed
// to be the same attachment — the write is skipped and the existing path
// returned. A name collision with a different size is disambiguated by
// numeric suffixing so distinct files are never overwritten.
func Save(data []byte, filename, destDir string) (string, bool, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating directory %s: %w", destDir, err)
	}

	name := sanitize(filename)
	path := filepath.Join(destDir, name)

	info, err := os.Stat(path)
	switch {
	case err == nil && info.Size() == int64(len(data)):
		// Identical name and size: already saved.
		return path, false, nil
	case err == nil:
		// Same name, different size: find a suffixed variant.
		var write bool
		path, write, err = suffixedTarget(destDir, name, int64(len(data)))
		if err != nil {
			return "", false, err
		}
		if !write {
			return path, false, nil
		}
	case !os.IsNotExist(err):
		return "", false, fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", false, fmt.Errorf("writing %s: %w", path, err)
	}

	return path, true, nil
}

// FallbackFilename names an attachment that arrived without one, by its
// position in the message.
func FallbackFilename(index int) string {
	return fmt.Sprintf("attachment_%d", index+1)
}

// suffixedTarget walks "name (1).ext", "name (2).ext", ... and returns
// the first variant that either does not exist yet (write=true) or
// already holds a file of the same size (write=false, a duplicate saved
// under a suffixed name on an earlier run).
func suffixedTarget(dir, name string, size int64) (string, bool, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 1; ; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return path, true, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("checking %s: %w", path, err)
		}
		if info.Size() == size {
			return path, false, nil
		}
	}
}

// sanitize strips path separators and parent references so an
// attachment name can never escape its destination directory.
func sanitize(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}
