package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Dir is a filesystem-backed archive: one file per asset, named
// "<id><ext>" directly under the root directory.
type Dir struct {
	root string
}

// NewDir creates the root directory if needed and returns the archive.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the archive root directory.
func (d *Dir) Root() string {
	return d.root
}

// Write stores the asset via a temp file and rename, so a crash never
// leaves a partial asset at its final path. If the ID is already
// archived the write is a no-op.
func (d *Dir) Write(ctx context.Context, id int64, data []byte, ext string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ok, err := d.Has(ctx, id); err != nil {
		return err
	} else if ok {
		return nil
	}

	// Leading dot keeps in-flight temp files out of ListIDs and Has.
	tmp, err := os.CreateTemp(d.root, fmt.Sprintf(".%d-*.tmp", id))
	if err != nil {
		return fmt.Errorf("create temp file for asset %d: %w", id, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write asset %d: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync asset %d: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file for asset %d: %w", id, err)
	}

	final := filepath.Join(d.root, fileName(id, ext))
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename asset %d into place: %w", id, err)
	}
	return nil
}

// Has reports whether any file named "<id>.*" exists under the root.
func (d *Dir) Has(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	matches, err := filepath.Glob(filepath.Join(d.root, strconv.FormatInt(id, 10)+".*"))
	if err != nil {
		return false, fmt.Errorf("check asset %d: %w", id, err)
	}
	return len(matches) > 0, nil
}

// ListIDs parses asset IDs out of the file names under the root.
// Non-asset files (dotfiles, non-numeric names) are ignored.
func (d *Dir) ListIDs(ctx context.Context) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if id, ok := parseID(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
