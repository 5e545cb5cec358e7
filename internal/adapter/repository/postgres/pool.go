package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/ledgerimport/internal/infrastructure/metrics"
)

// pgxPool is the subset of *pgxpool.Pool the repositories use.
type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func observe(m *metrics.Metrics, operation, table string, start time.Time) {
	if m == nil {
		return
	}
	m.DBQueries.WithLabelValues(operation, table).Inc()
	m.DBDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
