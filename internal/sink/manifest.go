package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ManifestName is the per-batch manifest file. The leading dot keeps it out
// of batch capacity counts.
const ManifestName = ".manifest.jsonl"

// Manifest appends one JSON line per delivered file to ManifestName in the
// file's batch folder.
type Manifest struct {
	mu sync.Mutex
}

// NewManifest returns a manifest sink.
func NewManifest() *Manifest {
	return &Manifest{}
}

// Deliver appends file to the manifest next to file.FinalPath.
func (m *Manifest) Deliver(ctx context.Context, file ProcessedFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if file.FinalPath == "" {
		return fmt.Errorf("manifest: final path missing for %s", file.SourcePath)
	}
	line, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	line = append(line, '\n')

	m.mu.Lock()
	defer m.mu.Unlock()
	path := filepath.Join(filepath.Dir(file.FinalPath), ManifestName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("manifest: open %s: %w", path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("manifest: close %s: %w", path, err)
	}
	return nil
}
