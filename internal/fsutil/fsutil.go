// Package fsutil holds the small file primitives shared by the settings,
// button and hotkey files: bounded reads and atomic replacement.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	maxRenameRetry = 10
	// Windows file locks held by antivirus/indexers usually clear within a
	// few tens of milliseconds; back off linearly.
	renameRetryBaseDelay = 10 * time.Millisecond
)

// ErrTooLarge is returned by ReadLimited when the file exceeds the limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// renameFn is a test seam.
var renameFn = os.Rename

// ReadLimited reads at most maxBytes from path. Files larger than maxBytes
// are rejected with ErrTooLarge rather than truncated.
func ReadLimited(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, maxBytes)
	}
	return raw, nil
}

// AtomicWrite replaces path with data via a temp file in the same directory
// followed by rename, so readers never observe a partially written file.
func AtomicWrite(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-FS] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-FS] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err = renameWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func renameWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := renameFn(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}

// PathWithinDir reports whether path is dir or lies beneath it. Cross-drive
// paths on Windows are rejected because filepath.Rel returns an absolute path.
func PathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}
