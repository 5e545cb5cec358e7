package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/infrastructure/metrics"
	"github.com/iho/ledgerimport/internal/usecase"
)

const (
	insertArtifactSQL = `
		INSERT INTO artifacts (id, kind, name, size, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectArtifactSQL = `
		SELECT kind, name, size, content, created_at
		FROM artifacts
		WHERE id = $1`

	deleteArtifactsSQL = `DELETE FROM artifacts WHERE created_at < $1`
)

// ArtifactStore keeps output files as bytea rows.
type ArtifactStore struct {
	pool    pgxPool
	idGen   usecase.IDGenerator
	retrier *Retrier
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(pool *pgxpool.Pool, idGen usecase.IDGenerator, retrier *Retrier, m *metrics.Metrics) *ArtifactStore {
	return newArtifactStore(pool, idGen, retrier, m)
}

func newArtifactStore(pool pgxPool, idGen usecase.IDGenerator, retrier *Retrier, m *metrics.Metrics) *ArtifactStore {
	return &ArtifactStore{
		pool:    pool,
		idGen:   idGen,
		retrier: retrier,
		metrics: m,
		now:     time.Now,
	}
}

// Save stores content under a new id.
func (s *ArtifactStore) Save(ctx context.Context, kind domain.ArtifactKind, name string, content []byte) (*domain.Artifact, error) {
	defer observe(s.metrics, "insert", "artifacts", time.Now())

	artifact := &domain.Artifact{
		ID:        s.idGen.Generate(),
		Kind:      kind,
		Name:      name,
		Size:      len(content),
		CreatedAt: s.now().UTC(),
	}
	artifact.Location = "postgres:artifacts/" + artifact.ID

	err := s.retrier.Retry(ctx, "save_artifact", func() error {
		_, err := s.pool.Exec(ctx, insertArtifactSQL,
			artifact.ID,
			string(artifact.Kind),
			artifact.Name,
			artifact.Size,
			content,
			artifact.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save artifact %s: %w", name, err)
	}

	return artifact, nil
}

// Open returns the artifact metadata and its content.
func (s *ArtifactStore) Open(ctx context.Context, id string) (*domain.Artifact, []byte, error) {
	defer observe(s.metrics, "select", "artifacts", time.Now())

	artifact := &domain.Artifact{ID: id, Location: "postgres:artifacts/" + id}
	var (
		kind    string
		content []byte
	)
	err := s.pool.QueryRow(ctx, selectArtifactSQL, id).Scan(
		&kind,
		&artifact.Name,
		&artifact.Size,
		&content,
		&artifact.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, id)
		}
		return nil, nil, err
	}
	artifact.Kind = domain.ArtifactKind(kind)

	return artifact, content, nil
}

// DeleteBefore removes artifacts created before the cutoff.
func (s *ArtifactStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	defer observe(s.metrics, "delete", "artifacts", time.Now())

	tag, err := s.pool.Exec(ctx, deleteArtifactsSQL, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
