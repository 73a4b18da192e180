package fileutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrInsufficientSpace is returned when the destination filesystem cannot hold the copy.
var ErrInsufficientSpace = errors.New("insufficient free space")

// CopyPreserving copies src to dst keeping the source permission bits and
// modification time. Data lands in a temporary file beside dst and is renamed
// into place after fsync, so dst never holds a partial copy. An existing dst
// is not overwritten.
func CopyPreserving(ctx context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("copy to %s: %w", dst, os.ErrExist)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, &contextReader{ctx: ctx, r: in})
	if err != nil {
		return err
	}
	if written != info.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	// Link fails with EEXIST instead of clobbering a file created since the check above.
	if err := os.Link(tmpPath, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("copy to %s: %w", dst, os.ErrExist)
		}
		if renameErr := os.Rename(tmpPath, dst); renameErr != nil {
			return renameErr
		}
		committed = true
		return nil
	}
	_ = os.Remove(tmpPath)
	committed = true
	return nil
}

// FreeBytes reports the bytes available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// EnsureCapacity fails with ErrInsufficientSpace when dir cannot hold need bytes.
func EnsureCapacity(dir string, need int64) error {
	free, err := FreeBytes(dir)
	if err != nil {
		return err
	}
	if need > 0 && uint64(need) > free {
		return fmt.Errorf("%w: need %d bytes, %d available in %s", ErrInsufficientSpace, need, free, dir)
	}
	return nil
}

// EnsureWritable verifies the current user may create files in dir.
func EnsureWritable(dir string) error {
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("directory %s not writable: %w", dir, err)
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
