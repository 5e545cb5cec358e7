package usecase

import (
	"context"
	"time"

	"github.com/iho/ledgerimport/internal/domain"
)

// RowReader yields the data rows of a spreadsheet, header excluded.
type RowReader interface {
	ReadRows(ctx context.Context, path string) ([]domain.Record, error)
}

// LineEncoder renders export lines as delimited text. An empty line set
// with an empty placeholder encodes to nil.
type LineEncoder interface {
	Encode(lines []domain.Line, placeholder string) []byte
}

// ExceptionWriter renders unmatched invoices as a workbook.
type ExceptionWriter interface {
	Write(records []domain.UnmatchedInvoiceRecord) ([]byte, error)
}

// ArtifactStore persists finished output files.
type ArtifactStore interface {
	Save(ctx context.Context, kind domain.ArtifactKind, name string, content []byte) (*domain.Artifact, error)
	Open(ctx context.Context, id string) (*domain.Artifact, []byte, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// RunRepository defines data access for batch run history.
type RunRepository interface {
	Save(ctx context.Context, run *domain.RunResult) error
	Get(ctx context.Context, id string) (*domain.RunResult, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// A nil response locks the key with a processing marker.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key so the next identical request runs again.
	Release(ctx context.Context, key string) error
}
