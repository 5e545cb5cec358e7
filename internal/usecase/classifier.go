package usecase

import (
	"github.com/iho/ledgerimport/internal/domain"
)

// SkipReason explains why a row produced no output. The empty reason means
// the row was accepted.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipReportCode       SkipReason = "report_code"
	SkipUnknownBranch    SkipReason = "unknown_branch"
	SkipIgnoredTitulo    SkipReason = "ignored_titulo"
	SkipIgnoredOperation SkipReason = "ignored_operation"
	SkipIgnoredNatureza  SkipReason = "ignored_natureza"
	SkipNoTemplate       SkipReason = "no_template"
	SkipZeroAmount       SkipReason = "zero_amount"
)

// ClassifiedRow is a row that belongs to a rule module, with its branch
// resolved.
type ClassifiedRow struct {
	domain.TransactionRow
	Branch domain.Branch
	Cash   bool
}

// RowClassifier filters rows for one rule module of one enterprise.
type RowClassifier struct {
	enterprise *domain.Enterprise
	rule       *domain.RuleModule
	reportCode string
}

// NewRowClassifier creates a new RowClassifier.
func NewRowClassifier(enterprise *domain.Enterprise, rule *domain.RuleModule) *RowClassifier {
	return &RowClassifier{
		enterprise: enterprise,
		rule:       rule,
		reportCode: domain.CanonicalCode(rule.ReportCode),
	}
}

// Classify accepts or rejects a row. Rejection is never an error: a
// non-numeric code simply does not match.
func (c *RowClassifier) Classify(row domain.TransactionRow) (ClassifiedRow, SkipReason) {
	if domain.CanonicalCode(row.ReportCode) != c.reportCode {
		return ClassifiedRow{}, SkipReportCode
	}

	branch, ok := c.enterprise.ResolveBranch(row.Company)
	if !ok {
		return ClassifiedRow{}, SkipUnknownBranch
	}

	if domain.InSet(c.rule.IgnoreTitulo, row.TituloType) {
		return ClassifiedRow{}, SkipIgnoredTitulo
	}
	if domain.InSet(c.rule.IgnoreOperation, row.OperationType) {
		return ClassifiedRow{}, SkipIgnoredOperation
	}
	if domain.InSet(c.rule.IgnoreNatureza, row.Natureza) {
		return ClassifiedRow{}, SkipIgnoredNatureza
	}

	return ClassifiedRow{
		TransactionRow: row,
		Branch:         branch,
		Cash:           c.enterprise.IsCash(row.Bank),
	}, SkipNone
}
