package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/ledgerimport/internal/domain"
)

func sampleRun() *domain.RunResult {
	started := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	return &domain.RunResult{
		ID:          "01HRUN",
		Enterprise:  "atlas",
		Fingerprint: "abc123",
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Second),
		Outcomes: []domain.RuleOutcome{
			{
				Rule:       "recebimentos",
				ReportCode: "1101",
				Status:     domain.OutcomeSucceeded,
				Stats:      domain.RuleStats{Rows: 3, LedgerLines: 2},
				Artifacts:  []domain.Artifact{{ID: "01HART", Kind: domain.ArtifactLedger, Name: "atlas_recebimentos_lancamentos.txt"}},
			},
			{
				Rule:       "tarifas",
				ReportCode: "1401",
				Status:     domain.OutcomeFailed,
				Error:      "boom",
			},
		},
	}
}

func TestRunRepositorySave(t *testing.T) {
	mockPool := newMockPool(t)
	run := sampleRun()

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO runs").
		WithArgs(run.ID, run.Enterprise, run.Fingerprint, run.StartedAt, run.FinishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO rule_outcomes").
		WithArgs(run.ID, 0, "recebimentos", "1101", "succeeded", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO rule_outcomes").
		WithArgs(run.ID, 1, "tarifas", "1401", "failed", "boom", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	repo := newRunRepository(mockPool, fastRetrier(), nil)
	require.NoError(t, repo.Save(context.Background(), run))

	assertExpectations(t, mockPool)
}

func TestRunRepositorySaveRetriesDeadlock(t *testing.T) {
	mockPool := newMockPool(t)
	run := sampleRun()
	run.Outcomes = nil

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO runs").WillReturnError(&pgconn.PgError{Code: pgErrDeadlock})
	mockPool.ExpectRollback()
	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO runs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()

	repo := newRunRepository(mockPool, fastRetrier(), nil)
	require.NoError(t, repo.Save(context.Background(), run))

	assertExpectations(t, mockPool)
}

func TestRunRepositorySaveRollsBackOnOutcomeError(t *testing.T) {
	mockPool := newMockPool(t)
	run := sampleRun()

	mockPool.ExpectBegin()
	mockPool.ExpectExec("INSERT INTO runs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO rule_outcomes").WillReturnError(errors.New("disk full"))
	mockPool.ExpectRollback()

	repo := newRunRepository(mockPool, fastRetrier(), nil)
	err := repo.Save(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recebimentos")

	assertExpectations(t, mockPool)
}

func TestRunRepositoryGet(t *testing.T) {
	mockPool := newMockPool(t)
	run := sampleRun()

	mockPool.ExpectQuery("SELECT id, enterprise, fingerprint").
		WithArgs(run.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "enterprise", "fingerprint", "started_at", "finished_at"}).
			AddRow(run.ID, run.Enterprise, run.Fingerprint, run.StartedAt, run.FinishedAt))
	mockPool.ExpectQuery("FROM rule_outcomes").
		WithArgs(run.ID).
		WillReturnRows(pgxmock.NewRows([]string{"rule", "report_code", "status", "error", "stats", "artifacts"}).
			AddRow("recebimentos", "1101", "succeeded", "", []byte(`{"rows":3,"ledger_lines":2,"fiscal_lines":0,"unmatched":0}`),
				[]byte(`[{"id":"01HART","kind":"ledger","name":"atlas_recebimentos_lancamentos.txt","location":"","size":0,"created_at":"0001-01-01T00:00:00Z"}]`)).
			AddRow("tarifas", "1401", "failed", "boom", []byte(`{"rows":0,"ledger_lines":0,"fiscal_lines":0,"unmatched":0}`), []byte(`[]`)))

	repo := newRunRepository(mockPool, fastRetrier(), nil)
	got, err := repo.Get(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Fingerprint, got.Fingerprint)
	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, domain.OutcomeSucceeded, got.Outcomes[0].Status)
	assert.Equal(t, 2, got.Outcomes[0].Stats.LedgerLines)
	require.Len(t, got.Outcomes[0].Artifacts, 1)
	assert.Equal(t, "01HART", got.Outcomes[0].Artifacts[0].ID)
	assert.Equal(t, "boom", got.Outcomes[1].Error)
	assert.Nil(t, got.Outcomes[1].Artifacts)

	assertExpectations(t, mockPool)
}

func TestRunRepositoryGetNotFound(t *testing.T) {
	mockPool := newMockPool(t)
	mockPool.ExpectQuery("SELECT id, enterprise, fingerprint").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := newRunRepository(mockPool, fastRetrier(), nil)
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRunRepositoryDeleteBefore(t *testing.T) {
	mockPool := newMockPool(t)
	cutoff := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectExec("DELETE FROM runs").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	repo := newRunRepository(mockPool, fastRetrier(), nil)
	n, err := repo.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	assertExpectations(t, mockPool)
}
