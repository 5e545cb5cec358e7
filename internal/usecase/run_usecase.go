package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/ledgerimport/internal/domain"
	"github.com/iho/ledgerimport/internal/infrastructure/metrics"
)

// RunInput identifies one uploaded batch.
type RunInput struct {
	Enterprise       string
	TransactionsPath string
	InvoicesPath     string
}

// Orchestrator runs every rule module of an enterprise over one batch and
// records each module's outcome separately.
type Orchestrator struct {
	catalog     *domain.Catalog
	reader      RowReader
	runner      *RuleRunner
	runRepo     RunRepository
	idempotency IdempotencyStore
	cache       Cache
	idGen       IDGenerator
	logger      zerolog.Logger
	metrics     *metrics.Metrics

	maxParallel    int
	idempotencyTTL time.Duration
}

// OrchestratorOption configures optional collaborators.
type OrchestratorOption func(*Orchestrator)

// WithRunRepository persists run results.
func WithRunRepository(repo RunRepository) OrchestratorOption {
	return func(o *Orchestrator) { o.runRepo = repo }
}

// WithIdempotency replays the stored result of an identical batch.
func WithIdempotency(store IdempotencyStore, ttl time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.idempotency = store
		if ttl > 0 {
			o.idempotencyTTL = ttl
		}
	}
}

// WithCache caches run lookups.
func WithCache(cache Cache) OrchestratorOption {
	return func(o *Orchestrator) { o.cache = cache }
}

// WithMaxParallel bounds concurrently running rule modules.
func WithMaxParallel(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	catalog *domain.Catalog,
	reader RowReader,
	runner *RuleRunner,
	idGen IDGenerator,
	logger zerolog.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		catalog:        catalog,
		reader:         reader,
		runner:         runner,
		idGen:          idGen,
		logger:         logger,
		maxParallel:    DefaultMaxParallelRules,
		idempotencyTTL: IdempotencyKeyTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// batchInput holds the rows shared read-only by every module of a batch.
type batchInput struct {
	transactions    []domain.Record
	transactionsErr error
	invoices        []domain.Record
	invoicesErr     error
}

// Run processes a batch. It only fails for batch-level problems; a failing
// rule module is reported in its outcome.
func (o *Orchestrator) Run(ctx context.Context, input RunInput) (*domain.RunResult, error) {
	enterprise, err := o.catalog.Enterprise(input.Enterprise)
	if err != nil {
		return nil, err
	}

	started := time.Now().UTC()
	batch := o.read(ctx, enterprise, input)
	fingerprint := o.fingerprint(enterprise, batch)

	log := o.logger.With().Str("enterprise", enterprise.ID).Str("fingerprint", fingerprint[:12]).Logger()

	if o.idempotency != nil {
		exists, prior, err := o.idempotency.CheckAndSet(ctx, fingerprint, nil, o.idempotencyTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("idempotency check failed, running anyway")
		case exists && string(prior) == processingMarker:
			return nil, domain.ErrRunInProgress
		case exists:
			var result domain.RunResult
			if err := json.Unmarshal(prior, &result); err == nil {
				log.Info().Str("run_id", result.ID).Msg("replaying stored run")
				if o.metrics != nil {
					o.metrics.RunsReplayed.WithLabelValues(enterprise.ID).Inc()
				}
				return &result, nil
			}
			log.Warn().Msg("stored run is unreadable, running again")
		}
	}

	result := &domain.RunResult{
		ID:          o.idGen.Generate(),
		Enterprise:  enterprise.ID,
		Fingerprint: fingerprint,
		StartedAt:   started,
		Outcomes:    make([]domain.RuleOutcome, len(enterprise.Rules)),
	}
	log = log.With().Str("run_id", result.ID).Logger()
	log.Info().Int("modules", len(enterprise.Rules)).Msg("batch started")

	matchers := o.matchers(enterprise, batch)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxParallel)
	for i := range enterprise.Rules {
		rule := &enterprise.Rules[i]
		g.Go(func() error {
			result.Outcomes[i] = o.runModule(gctx, enterprise, rule, batch, matchers[rule.InvoiceLayoutName], log)
			return nil
		})
	}
	_ = g.Wait()

	result.FinishedAt = time.Now().UTC()
	o.finish(ctx, result, log)

	if err := ctx.Err(); err != nil {
		o.release(ctx, fingerprint, log)
		return nil, err
	}

	if o.idempotency != nil {
		if result.Failed() > 0 {
			o.release(ctx, fingerprint, log)
		} else if payload, err := json.Marshal(result); err == nil {
			if err := o.idempotency.Update(ctx, fingerprint, payload, o.idempotencyTTL); err != nil {
				log.Warn().Err(err).Msg("failed to store run for replay")
			}
		}
	}

	return result, nil
}

func (o *Orchestrator) read(ctx context.Context, enterprise *domain.Enterprise, input RunInput) *batchInput {
	batch := &batchInput{}

	if input.TransactionsPath == "" {
		batch.transactionsErr = fmt.Errorf("%w: transactions", domain.ErrInputMissing)
	} else {
		batch.transactions, batch.transactionsErr = o.reader.ReadRows(ctx, input.TransactionsPath)
	}

	needsInvoices := false
	for i := range enterprise.Rules {
		if enterprise.Rules[i].Reconcile {
			needsInvoices = true
			break
		}
	}
	if !needsInvoices {
		return batch
	}

	if input.InvoicesPath == "" {
		batch.invoicesErr = fmt.Errorf("%w: open-invoice registry", domain.ErrInputMissing)
	} else {
		batch.invoices, batch.invoicesErr = o.reader.ReadRows(ctx, input.InvoicesPath)
	}
	return batch
}

// matchers builds one index per invoice layout used by the enterprise.
func (o *Orchestrator) matchers(enterprise *domain.Enterprise, batch *batchInput) map[string]*InvoiceMatcher {
	matchers := make(map[string]*InvoiceMatcher)
	if batch.invoicesErr != nil {
		return matchers
	}
	for i := range enterprise.Rules {
		rule := &enterprise.Rules[i]
		if !rule.Reconcile {
			continue
		}
		if _, ok := matchers[rule.InvoiceLayoutName]; !ok {
			matchers[rule.InvoiceLayoutName] = NewInvoiceMatcher(batch.invoices, *rule.InvoiceLayout)
		}
	}
	return matchers
}

func (o *Orchestrator) runModule(
	ctx context.Context,
	enterprise *domain.Enterprise,
	rule *domain.RuleModule,
	batch *batchInput,
	matcher *InvoiceMatcher,
	log zerolog.Logger,
) (outcome domain.RuleOutcome) {
	outcome = domain.RuleOutcome{Rule: rule.ID, ReportCode: rule.ReportCode}
	log = log.With().Str("rule", rule.ID).Logger()

	fail := func(err error) domain.RuleOutcome {
		outcome.Status = domain.OutcomeFailed
		outcome.Error = err.Error()
		log.Error().Err(err).Msg("rule module failed")
		return outcome
	}

	defer func() {
		if rec := recover(); rec != nil {
			outcome = fail(fmt.Errorf("unexpected failure: %v", rec))
		}
		if o.metrics != nil {
			o.metrics.ModuleOutcomes.WithLabelValues(enterprise.ID, rule.ID, string(outcome.Status)).Inc()
		}
	}()

	if batch.transactionsErr != nil {
		return fail(batch.transactionsErr)
	}
	if rule.Reconcile {
		if batch.invoicesErr != nil {
			return fail(batch.invoicesErr)
		}
		if matcher == nil {
			return fail(fmt.Errorf("%w: no invoice index for %s", domain.ErrInvalidTemplate, rule.ID))
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	out := o.runner.Evaluate(enterprise, rule, batch.transactions, matcher)
	outcome.Stats = out.Stats

	artifacts, err := o.runner.Publish(ctx, enterprise, rule, out)
	if err != nil {
		return fail(err)
	}
	outcome.Artifacts = artifacts

	outcome.Status = domain.OutcomeSucceeded
	if out.Empty() {
		outcome.Status = domain.OutcomeEmpty
	}

	log.Info().
		Str("status", string(outcome.Status)).
		Int("ledger_lines", out.Stats.LedgerLines).
		Int("fiscal_lines", out.Stats.FiscalLines).
		Int("unmatched", out.Stats.Unmatched).
		Msg("rule module finished")

	return outcome
}

func (o *Orchestrator) finish(ctx context.Context, result *domain.RunResult, log zerolog.Logger) {
	if o.metrics != nil {
		o.metrics.RunDuration.WithLabelValues(result.Enterprise).Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	}

	if o.runRepo != nil {
		if err := o.runRepo.Save(context.WithoutCancel(ctx), result); err != nil {
			log.Error().Err(err).Msg("failed to persist run")
		}
	}

	log.Info().
		Int("failed", result.Failed()).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("batch finished")
}

func (o *Orchestrator) release(ctx context.Context, fingerprint string, log zerolog.Logger) {
	if o.idempotency == nil {
		return
	}
	if err := o.idempotency.Release(context.WithoutCancel(ctx), fingerprint); err != nil {
		log.Warn().Err(err).Msg("failed to release idempotency key")
	}
}

// fingerprint identifies a batch by enterprise, catalog version and the
// content of both inputs, so identical uploads regenerate identically.
func (o *Orchestrator) fingerprint(enterprise *domain.Enterprise, batch *batchInput) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", enterprise.ID, o.catalog.Version)
	writeRecords(h, "transactions", batch.transactions, batch.transactionsErr)
	writeRecords(h, "invoices", batch.invoices, batch.invoicesErr)
	return hex.EncodeToString(h.Sum(nil))
}

func writeRecords(w io.Writer, label string, records []domain.Record, err error) {
	fmt.Fprintf(w, "%s\x00%d\x00", label, len(records))
	if err != nil {
		fmt.Fprintf(w, "error\x00%s\x00", err)
	}
	for _, rec := range records {
		for _, field := range rec {
			fmt.Fprintf(w, "%s\x1f", field)
		}
		io.WriteString(w, "\x1e")
	}
}

// GetRun returns a stored run.
func (o *Orchestrator) GetRun(ctx context.Context, id string) (*domain.RunResult, error) {
	if o.runRepo == nil {
		return nil, domain.ErrRunNotFound
	}

	if o.cache != nil {
		if cached, err := o.cache.Get(ctx, runCacheKey(id)); err == nil {
			var run domain.RunResult
			if json.Unmarshal([]byte(cached), &run) == nil {
				return &run, nil
			}
		}
	}

	run, err := o.runRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		if payload, err := json.Marshal(run); err == nil {
			if err := o.cache.Set(ctx, runCacheKey(id), string(payload), RunCacheTTL); err != nil {
				o.logger.Debug().Err(err).Str("run_id", id).Msg("run cache write failed")
			}
		}
	}

	return run, nil
}

// OpenArtifact returns a stored output file.
func (o *Orchestrator) OpenArtifact(ctx context.Context, id string) (*domain.Artifact, []byte, error) {
	if o.runner == nil || o.runner.store == nil {
		return nil, nil, domain.ErrArtifactNotFound
	}
	return o.runner.store.Open(ctx, id)
}

// Catalog returns the loaded rule catalog.
func (o *Orchestrator) Catalog() *domain.Catalog {
	return o.catalog
}

// Prune deletes runs and artifacts created before the cutoff.
func (o *Orchestrator) Prune(ctx context.Context, before time.Time) error {
	var errs []error

	if o.runRepo != nil {
		n, err := o.runRepo.DeleteBefore(ctx, before)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune runs: %w", err))
		} else if o.metrics != nil {
			o.metrics.RetentionDeleted.WithLabelValues("runs").Add(float64(n))
		}
	}

	if o.runner != nil && o.runner.store != nil {
		n, err := o.runner.store.DeleteBefore(ctx, before)
		if err != nil {
			errs = append(errs, fmt.Errorf("prune artifacts: %w", err))
		} else if o.metrics != nil {
			o.metrics.RetentionDeleted.WithLabelValues("artifacts").Add(float64(n))
		}
	}

	return errors.Join(errs...)
}

func runCacheKey(id string) string {
	return "run:" + id
}
