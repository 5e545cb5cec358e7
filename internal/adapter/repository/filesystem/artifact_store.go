// Package filesystem stores output artifacts on local disk.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/usecase"
)

// ArtifactStore writes artifacts as <root>/<kind>/<id>/<name>.
type ArtifactStore struct {
	root  string
	idGen usecase.IDGenerator
}

// NewArtifactStore creates the root directory if needed.
func NewArtifactStore(root string, idGen usecase.IDGenerator) (*ArtifactStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &ArtifactStore{root: root, idGen: idGen}, nil
}

// Save writes content to a new artifact directory.
func (s *ArtifactStore) Save(ctx context.Context, kind domain.ArtifactKind, name string, content []byte) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}

	id := s.idGen.Generate()
	dir := filepath.Join(s.root, string(kind), id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("write artifact %s: %w", name, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &domain.Artifact{
		ID:        id,
		Kind:      kind,
		Name:      name,
		Location:  path,
		Size:      len(content),
		CreatedAt: info.ModTime().UTC(),
	}, nil
}

// Open finds an artifact by id.
func (s *ArtifactStore) Open(ctx context.Context, id string) (*domain.Artifact, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, "*?[") {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, id)
	}

	matches, err := filepath.Glob(filepath.Join(s.root, "*", id, "*"))
	if err != nil {
		return nil, nil, err
	}
	for _, path := range matches {
		if strings.HasSuffix(path, ".tmp") {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, nil, err
		}
		kindDir := filepath.Base(filepath.Dir(filepath.Dir(path)))
		return &domain.Artifact{
			ID:        id,
			Kind:      domain.ArtifactKind(kindDir),
			Name:      filepath.Base(path),
			Location:  path,
			Size:      len(content),
			CreatedAt: info.ModTime().UTC(),
		}, content, nil
	}

	return nil, nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, id)
}

// DeleteBefore removes artifact directories whose files are older than the
// cutoff.
func (s *ArtifactStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	kinds, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var deleted int64
	for _, kind := range kinds {
		if !kind.IsDir() {
			continue
		}
		kindPath := filepath.Join(s.root, kind.Name())
		ids, err := os.ReadDir(kindPath)
		if err != nil {
			return deleted, err
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return deleted, err
			}
			if !id.IsDir() {
				continue
			}
			info, err := id.Info()
			if err != nil {
				return deleted, err
			}
			if !info.ModTime().Before(before) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(kindPath, id.Name())); err != nil {
				return deleted, err
			}
			deleted++
		}
	}

	return deleted, nil
}
