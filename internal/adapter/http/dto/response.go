package dto

import (
	"time"

	"github.com/iho/ledgerimport/internal/domain"
)

// RuleSummary describes one rule module of an enterprise.
type RuleSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	ReportCode string `json:"report_code"`
	Reconcile  bool   `json:"reconcile"`
}

// EnterpriseResponse represents an enterprise in API responses.
type EnterpriseResponse struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Rules []RuleSummary `json:"rules"`
}

// EnterpriseFromDomain converts a domain enterprise to response.
func EnterpriseFromDomain(e *domain.Enterprise) *EnterpriseResponse {
	rules := make([]RuleSummary, len(e.Rules))
	for i, r := range e.Rules {
		rules[i] = RuleSummary{
			ID:         r.ID,
			Title:      r.Title,
			ReportCode: r.ReportCode,
			Reconcile:  r.Reconcile,
		}
	}
	return &EnterpriseResponse{ID: e.ID, Name: e.Name, Rules: rules}
}

// EnterprisesFromDomain converts domain enterprises to responses.
func EnterprisesFromDomain(enterprises []*domain.Enterprise) []*EnterpriseResponse {
	result := make([]*EnterpriseResponse, len(enterprises))
	for i, e := range enterprises {
		result[i] = EnterpriseFromDomain(e)
	}
	return result
}

// ArtifactResponse represents a downloadable output file.
type ArtifactResponse struct {
	ID   string              `json:"id"`
	Kind domain.ArtifactKind `json:"kind"`
	Name string              `json:"name"`
	Size int                 `json:"size"`
	URL  string              `json:"url"`
}

// OutcomeResponse represents one rule module result.
type OutcomeResponse struct {
	Rule       string               `json:"rule"`
	ReportCode string               `json:"report_code"`
	Status     domain.OutcomeStatus `json:"status"`
	Error      string               `json:"error,omitempty"`
	Stats      domain.RuleStats     `json:"stats"`
	Artifacts  []ArtifactResponse   `json:"artifacts"`
}

// RunResponse represents a batch run in API responses.
type RunResponse struct {
	ID          string            `json:"id"`
	Enterprise  string            `json:"enterprise"`
	Fingerprint string            `json:"fingerprint"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	Failed      int               `json:"failed"`
	Outcomes    []OutcomeResponse `json:"outcomes"`
}

// RunFromDomain converts a domain run to response. Storage locations are not
// exposed; artifacts are downloaded by id.
func RunFromDomain(r *domain.RunResult) *RunResponse {
	outcomes := make([]OutcomeResponse, len(r.Outcomes))
	for i, o := range r.Outcomes {
		artifacts := make([]ArtifactResponse, len(o.Artifacts))
		for j, a := range o.Artifacts {
			artifacts[j] = ArtifactResponse{
				ID:   a.ID,
				Kind: a.Kind,
				Name: a.Name,
				Size: a.Size,
				URL:  "/api/v1/artifacts/" + a.ID,
			}
		}
		outcomes[i] = OutcomeResponse{
			Rule:       o.Rule,
			ReportCode: o.ReportCode,
			Status:     o.Status,
			Error:      o.Error,
			Stats:      o.Stats,
			Artifacts:  artifacts,
		}
	}

	return &RunResponse{
		ID:          r.ID,
		Enterprise:  r.Enterprise,
		Fingerprint: r.Fingerprint,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Failed:      r.Failed(),
		Outcomes:    outcomes,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
