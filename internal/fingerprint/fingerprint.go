package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strconv"

	"shotpipe/internal/services"
)

const (
	// LargeFileThreshold is the size at which sampling replaces full hashing.
	LargeFileThreshold int64 = 10 << 20
	// WindowSize is the length of each sampled region.
	WindowSize int64 = 1 << 20

	copyChunk = 64 << 10
)

// Compute returns the hex SHA-256 fingerprint for the file at path.
// Missing files return an error marked services.ErrNotFound; any other
// read failure is marked services.ErrIOFailure.
func Compute(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.Classify(err), "fingerprint", "open", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", services.Wrap(services.Classify(err), "fingerprint", "stat", path, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrIOFailure, "fingerprint", "stat", path+" is a directory", nil)
	}

	h := sha256.New()
	size := info.Size()
	if size < LargeFileThreshold {
		err = hashAll(ctx, h, file)
	} else {
		err = hashSampled(ctx, h, file, size)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.Classify(err), "fingerprint", "read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashAll(ctx context.Context, h hash.Hash, r io.Reader) error {
	buf := make([]byte, copyChunk)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// hashSampled feeds first window, middle window (from size/2), last window,
// and the decimal size into h in that order.
func hashSampled(ctx context.Context, h hash.Hash, r io.ReaderAt, size int64) error {
	offsets := []int64{0, size / 2, max(0, size-WindowSize)}
	buf := make([]byte, WindowSize)
	for _, offset := range offsets {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.ReadAt(buf, offset)
		if err != nil && err != io.EOF {
			return fmt.Errorf("read window at %d: %w", offset, err)
		}
		_, _ = h.Write(buf[:n])
	}
	_, _ = h.Write([]byte(strconv.FormatInt(size, 10)))
	return nil
}
