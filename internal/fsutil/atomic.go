// Package fsutil provides the shared crash-safe filesystem primitives every
// other DireClaw package builds on: atomic writes, canonical path
// resolution, and run/message identifier generation. Grounded on the
// teacher's tempfile-plus-rename idiom (pkg/security/file.go's
// WriteFileAtomic and internal/triggers/writer.go's AtomicWriteConfig,
// both since removed from this tree once their logic was carried here).
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic writes data to path by creating a temp file in the same
// directory, fsyncing and closing it, renaming it into place, then
// fsyncing the parent directory. A crash at any instant leaves path either
// fully absent/old or fully new, never partially written.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("fsutil: create parent dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("fsutil: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("fsutil: write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("fsutil: chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsutil: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsutil: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("fsutil: rename into place: %w", err)
	}
	if err := fsyncDir(dir); err != nil {
		return fmt.Errorf("fsutil: fsync parent dir %s: %w", dir, err)
	}
	return nil
}

// fsyncDir fsyncs a directory entry so a rename into it survives a crash.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// RenameAtomic transfers ownership of a file between two paths (e.g. queue
// incoming/ -> processing/) via a single rename on the same filesystem,
// then fsyncs both parent directories so the move survives a crash.
func RenameAtomic(oldPath, newPath string) error {
	newDir := filepath.Dir(newPath)
	if err := os.MkdirAll(newDir, 0o700); err != nil {
		return fmt.Errorf("fsutil: create target dir %s: %w", newDir, err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("fsutil: rename %s -> %s: %w", oldPath, newPath, err)
	}
	if err := fsyncDir(newDir); err != nil {
		return fmt.Errorf("fsutil: fsync target dir %s: %w", newDir, err)
	}
	oldDir := filepath.Dir(oldPath)
	if oldDir != newDir {
		_ = fsyncDir(oldDir)
	}
	return nil
}
