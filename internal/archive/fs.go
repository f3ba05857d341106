package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"leadgate/internal/lead"
)

// FSArchive writes each protected lead exactly once under
// <root>/<source>/<created-date>/<lead_id>.json. O_EXCL enforces the
// write-once guarantee at the filesystem level.
type FSArchive struct {
	root string
}

func NewFSArchive(root string) (*FSArchive, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create archive root %s: %w", root, err)
	}
	return &FSArchive{root: root}, nil
}

func (a *FSArchive) Put(ctx context.Context, protected lead.Protected) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(a.root, string(protected.Source), protected.CreatedAt.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	path := filepath.Join(dir, protected.LeadID+".json")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyArchived
		}
		return fmt.Errorf("create archive entry %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(protected); err != nil {
		f.Close()
		os.Remove(path) // keep write-once semantics for a future retry
		return fmt.Errorf("encode archive entry %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive entry %s: %w", path, err)
	}
	return nil
}
