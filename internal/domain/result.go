package domain

import "time"

// OutcomeStatus is the result of one rule module within a batch run.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeEmpty     OutcomeStatus = "empty"
	OutcomeFailed    OutcomeStatus = "failed"
)

// ArtifactKind tells the three outputs apart.
type ArtifactKind string

const (
	ArtifactLedger     ArtifactKind = "ledger"
	ArtifactFiscal     ArtifactKind = "fiscal"
	ArtifactExceptions ArtifactKind = "exceptions"
)

// Artifact is a persisted output file.
type Artifact struct {
	ID        string       `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Name      string       `json:"name"`
	Location  string       `json:"location"`
	Size      int          `json:"size"`
	CreatedAt time.Time    `json:"created_at"`
}

// RuleStats counts what happened to the rows of one module.
type RuleStats struct {
	Rows        int            `json:"rows"`
	Skipped     map[string]int `json:"skipped,omitempty"`
	LedgerLines int            `json:"ledger_lines"`
	FiscalLines int            `json:"fiscal_lines"`
	Unmatched   int            `json:"unmatched"`
}

// Skip records a skipped row under a reason.
func (s *RuleStats) Skip(reason string) {
	if s.Skipped == nil {
		s.Skipped = make(map[string]int)
	}
	s.Skipped[reason]++
}

// RuleOutcome is what a module produced, or why it failed.
type RuleOutcome struct {
	Rule       string        `json:"rule"`
	ReportCode string        `json:"report_code"`
	Status     OutcomeStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	Stats      RuleStats     `json:"stats"`
	Artifacts  []Artifact    `json:"artifacts,omitempty"`
}

// RunResult is the outcome of one batch over an uploaded file.
type RunResult struct {
	ID          string        `json:"id"`
	Enterprise  string        `json:"enterprise"`
	Fingerprint string        `json:"fingerprint"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Outcomes    []RuleOutcome `json:"outcomes"`
}

// Failed counts modules that failed.
func (r *RunResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			n++
		}
	}
	return n
}
