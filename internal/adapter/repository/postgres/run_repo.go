package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/infrastructure/metrics"
)

const (
	insertRunSQL = `
		INSERT INTO runs (id, enterprise, fingerprint, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)`

	insertOutcomeSQL = `
		INSERT INTO rule_outcomes (run_id, position, rule, report_code, status, error, stats, artifacts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectRunSQL = `
		SELECT id, enterprise, fingerprint, started_at, finished_at
		FROM runs
		WHERE id = $1`

	selectOutcomesSQL = `
		SELECT rule, report_code, status, error, stats, artifacts
		FROM rule_outcomes
		WHERE run_id = $1
		ORDER BY position`

	deleteRunsSQL = `DELETE FROM runs WHERE started_at < $1`
)

// RunRepository stores batch run history.
type RunRepository struct {
	pool    pgxPool
	tx      *TxManager
	retrier *Retrier
	metrics *metrics.Metrics
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(pool *pgxpool.Pool, retrier *Retrier, m *metrics.Metrics) *RunRepository {
	return newRunRepository(pool, retrier, m)
}

func newRunRepository(pool pgxPool, retrier *Retrier, m *metrics.Metrics) *RunRepository {
	return &RunRepository{
		pool:    pool,
		tx:      newTxManagerWithPool(pool),
		retrier: retrier,
		metrics: m,
	}
}

// Save inserts a run and its module outcomes in one transaction.
func (r *RunRepository) Save(ctx context.Context, run *domain.RunResult) error {
	defer observe(r.metrics, "insert", "runs", time.Now())

	return r.retrier.Retry(ctx, "save_run", func() error {
		return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, insertRunSQL,
				run.ID,
				run.Enterprise,
				run.Fingerprint,
				run.StartedAt,
				run.FinishedAt,
			); err != nil {
				return fmt.Errorf("insert run: %w", err)
			}

			for i, o := range run.Outcomes {
				stats, err := json.Marshal(o.Stats)
				if err != nil {
					return err
				}
				artifacts := o.Artifacts
				if artifacts == nil {
					artifacts = []domain.Artifact{}
				}
				artifactsJSON, err := json.Marshal(artifacts)
				if err != nil {
					return err
				}

				if _, err := tx.Exec(ctx, insertOutcomeSQL,
					run.ID,
					i,
					o.Rule,
					o.ReportCode,
					string(o.Status),
					o.Error,
					stats,
					artifactsJSON,
				); err != nil {
					return fmt.Errorf("insert outcome %s: %w", o.Rule, err)
				}
			}
			return nil
		})
	})
}

// Get loads a run with its outcomes in module order.
func (r *RunRepository) Get(ctx context.Context, id string) (*domain.RunResult, error) {
	defer observe(r.metrics, "select", "runs", time.Now())

	var run domain.RunResult
	err := r.pool.QueryRow(ctx, selectRunSQL, id).Scan(
		&run.ID,
		&run.Enterprise,
		&run.Fingerprint,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, selectOutcomesSQL, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o         domain.RuleOutcome
			status    string
			stats     []byte
			artifacts []byte
		)
		if err := rows.Scan(&o.Rule, &o.ReportCode, &status, &o.Error, &stats, &artifacts); err != nil {
			return nil, err
		}
		o.Status = domain.OutcomeStatus(status)
		if err := json.Unmarshal(stats, &o.Stats); err != nil {
			return nil, fmt.Errorf("decode stats of %s: %w", o.Rule, err)
		}
		if err := json.Unmarshal(artifacts, &o.Artifacts); err != nil {
			return nil, fmt.Errorf("decode artifacts of %s: %w", o.Rule, err)
		}
		if len(o.Artifacts) == 0 {
			o.Artifacts = nil
		}
		run.Outcomes = append(run.Outcomes, o)
	}

	return &run, rows.Err()
}

// DeleteBefore removes runs started before the cutoff. Outcomes cascade.
func (r *RunRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	defer observe(r.metrics, "delete", "runs", time.Now())

	tag, err := r.pool.Exec(ctx, deleteRunsSQL, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
