package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/infrastructure/metrics"
)

// RuleOutput is everything one rule module emitted for a batch, sorted.
type RuleOutput struct {
	Ledger    []domain.LedgerEntry
	Fiscal    []domain.FiscalEntry
	Unmatched []domain.UnmatchedInvoiceRecord
	Stats     domain.RuleStats
}

// Empty reports whether the module produced no line and no exception.
func (o *RuleOutput) Empty() bool {
	return len(o.Ledger) == 0 && len(o.Fiscal) == 0 && len(o.Unmatched) == 0
}

// RuleRunner evaluates a single rule module and publishes its artifacts.
type RuleRunner struct {
	encoder    LineEncoder
	exceptions ExceptionWriter
	store      ArtifactStore
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewRuleRunner creates a new RuleRunner.
func NewRuleRunner(
	encoder LineEncoder,
	exceptions ExceptionWriter,
	store ArtifactStore,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *RuleRunner {
	return &RuleRunner{
		encoder:    encoder,
		exceptions: exceptions,
		store:      store,
		logger:     logger,
		metrics:    metrics,
	}
}

// Evaluate runs the row pipeline of one module over the transaction rows.
// matcher must be non-nil for reconciliation rules.
func (r *RuleRunner) Evaluate(enterprise *domain.Enterprise, rule *domain.RuleModule, rows []domain.Record, matcher *InvoiceMatcher) RuleOutput {
	log := r.logger.With().Str("enterprise", enterprise.ID).Str("rule", rule.ID).Logger()

	classifier := NewRowClassifier(enterprise, rule)
	emitter := NewEntryEmitter(enterprise)

	var fiscal *FiscalEntryEmitter
	if rule.Reconcile {
		fiscal = NewFiscalEntryEmitter(enterprise, *rule.Fiscal)
	}

	var out RuleOutput
	for i, rec := range rows {
		// data rows start on the second spreadsheet line
		row := rule.Layout.Map(rec, i+2)
		out.Stats.Rows++

		classified, reason := classifier.Classify(row)
		if reason != SkipNone {
			out.skip(reason, row.Line, log)
			continue
		}

		derived := domain.Derive(classified.TransactionRow)

		variant, ok := rule.SelectVariant(classified.Cash, classified.Branch.Headquarters, classified.OperationType)
		if !ok {
			out.skip(SkipNoTemplate, row.Line, log)
			continue
		}

		var ledgerKey string
		var fiscalEntry *domain.FiscalEntry
		if rule.Reconcile {
			inv, unmatched := matcher.Match(classified, derived)
			if unmatched != nil {
				log.Info().
					Int("row", row.Line).
					Str("document", unmatched.Document).
					Msg("invoice not found in registry")
				out.Unmatched = append(out.Unmatched, *unmatched)
				continue
			}
			ledgerKey = inv.LedgerKey
			if entry, ok := fiscal.Emit(classified, derived, inv); ok {
				fiscalEntry = &entry
			}
		}

		entries, reason := emitter.Emit(classified, derived, variant, ledgerKey)
		if reason != SkipNone {
			out.skip(reason, row.Line, log)
			continue
		}

		out.Ledger = append(out.Ledger, entries...)
		if fiscalEntry != nil {
			out.Fiscal = append(out.Fiscal, *fiscalEntry)
		}
	}

	SortLines(out.Ledger)
	SortLines(out.Fiscal)

	out.Stats.LedgerLines = len(out.Ledger)
	out.Stats.FiscalLines = len(out.Fiscal)
	out.Stats.Unmatched = len(out.Unmatched)

	r.observe(enterprise.ID, rule.ID, &out.Stats)

	return out
}

func (o *RuleOutput) skip(reason SkipReason, line int, log zerolog.Logger) {
	o.Stats.Skip(string(reason))
	if reason != SkipReportCode {
		log.Debug().Int("row", line).Str("reason", string(reason)).Msg("row skipped")
	}
}

// Publish serializes the output and hands every file to the artifact store.
// The ledger and fiscal files follow the module's empty-output policy; the
// exception workbook exists only when something did not match.
func (r *RuleRunner) Publish(ctx context.Context, enterprise *domain.Enterprise, rule *domain.RuleModule, out RuleOutput) ([]domain.Artifact, error) {
	placeholder := ""
	if rule.EmptyPolicy == domain.EmptyPlaceholder {
		placeholder = rule.Placeholder
	}

	var artifacts []domain.Artifact
	save := func(kind domain.ArtifactKind, name string, content []byte) error {
		if content == nil {
			return nil
		}
		a, err := r.store.Save(ctx, kind, name, content)
		if err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		if r.metrics != nil {
			r.metrics.ArtifactBytes.WithLabelValues(string(kind)).Add(float64(len(content)))
		}
		artifacts = append(artifacts, *a)
		return nil
	}

	ledger := make([]domain.Line, len(out.Ledger))
	for i := range out.Ledger {
		ledger[i] = out.Ledger[i]
	}
	if err := save(domain.ArtifactLedger, artifactName(enterprise, rule, "lancamentos.txt"), r.encoder.Encode(ledger, placeholder)); err != nil {
		return nil, err
	}

	if rule.Reconcile {
		fiscal := make([]domain.Line, len(out.Fiscal))
		for i := range out.Fiscal {
			fiscal[i] = out.Fiscal[i]
		}
		if err := save(domain.ArtifactFiscal, artifactName(enterprise, rule, "fiscal.txt"), r.encoder.Encode(fiscal, placeholder)); err != nil {
			return nil, err
		}
	}

	if len(out.Unmatched) > 0 {
		content, err := r.exceptions.Write(out.Unmatched)
		if err != nil {
			return nil, fmt.Errorf("render exceptions: %w", err)
		}
		if err := save(domain.ArtifactExceptions, artifactName(enterprise, rule, "excecoes.xlsx"), content); err != nil {
			return nil, err
		}
	}

	return artifacts, nil
}

func (r *RuleRunner) observe(enterpriseID, ruleID string, stats *domain.RuleStats) {
	if r.metrics == nil {
		return
	}
	r.metrics.RowsProcessed.WithLabelValues(enterpriseID, ruleID).Add(float64(stats.Rows))
	for reason, n := range stats.Skipped {
		r.metrics.RowsSkipped.WithLabelValues(enterpriseID, ruleID, reason).Add(float64(n))
	}
	r.metrics.LedgerLines.WithLabelValues(enterpriseID, ruleID).Add(float64(stats.LedgerLines))
	r.metrics.FiscalLines.WithLabelValues(enterpriseID, ruleID).Add(float64(stats.FiscalLines))
	r.metrics.UnmatchedInvoices.WithLabelValues(enterpriseID, ruleID).Add(float64(stats.Unmatched))
}

func artifactName(enterprise *domain.Enterprise, rule *domain.RuleModule, suffix string) string {
	return fmt.Sprintf("%s_%s_%s", enterprise.ID, rule.ID, suffix)
}
