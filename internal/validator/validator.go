// Package validator partitions candidate URLs into valid and invalid sets,
// scoring each one through domain trust, page rendering and HEAD fallback.
package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/metrics"
	"github.com/jonesrussell/north-cloud/link-validator/internal/renderer"
	"github.com/jonesrussell/north-cloud/link-validator/internal/signals"
	"github.com/jonesrussell/north-cloud/link-validator/internal/trust"
)

var (
	// ErrBatchTooLarge is returned when a batch exceeds Config.MaxBatchSize.
	ErrBatchTooLarge = errors.New("batch too large")
	// ErrNoChecker is returned by New when no fallback checker is supplied.
	ErrNoChecker = errors.New("fallback checker is required")
)

// Renderer renders a page through the headless browser service.
type Renderer interface {
	Render(ctx context.Context, url string) (*renderer.Page, error)
}

// Checker checks a URL with a plain HTTP request.
type Checker interface {
	Check(ctx context.Context, url string) fetcher.Result
}

// VerdictCache stores content verdicts between batches. Get scores hits
// with the table it is given.
type VerdictCache interface {
	Get(ctx context.Context, url string, scores domain.Scores) (domain.Verdict, bool)
	Set(ctx context.Context, v domain.Verdict) error
}

// Deps are the collaborators of a Validator. Renderer and Cache are optional.
type Deps struct {
	Renderer Renderer
	Checker  Checker
	Cache    VerdictCache
	Logger   logger.Logger
	Metrics  *metrics.Metrics
}

// Validator runs batches through the pipeline. It is safe for concurrent use.
type Validator struct {
	cfg        Config
	classifier *trust.Classifier
	detector   *signals.Detector
	renderer   Renderer
	checker    Checker
	cache      VerdictCache
	log        logger.Logger
	metrics    *metrics.Metrics
}

// New creates a Validator. Config defaults are applied before validation.
func New(cfg Config, deps Deps) (*Validator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if deps.Checker == nil {
		return nil, ErrNoChecker
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Validator{
		cfg:        cfg,
		classifier: trust.NewClassifier(cfg.TrustedDomains, cfg.PaywallDomains),
		detector:   signals.NewDetector(cfg.Thresholds),
		renderer:   deps.Renderer,
		checker:    deps.Checker,
		cache:      deps.Cache,
		log:        log.With(logger.String("component", "validator")),
		metrics:    deps.Metrics,
	}, nil
}

// MaxBatchSize returns the effective batch limit.
func (v *Validator) MaxBatchSize() int {
	return v.cfg.MaxBatchSize
}

// batch is the working state of one ValidateBatch call.
type batch struct {
	// inputs are the URLs as submitted; verdicts carry them unchanged.
	inputs   []string
	verdicts []domain.Verdict
	// pending maps each unresolved check target to the input positions it occupies.
	pending map[string][]int
	// order lists pending targets in first-seen order.
	order  []string
	counts domain.BatchCounts
}

func (b *batch) resolve(target string, verdict domain.Verdict) {
	for _, i := range b.pending[target] {
		v := verdict
		v.URL = b.inputs[i]
		b.verdicts[i] = v
	}
	delete(b.pending, target)
}

func (b *batch) unresolved() []string {
	out := make([]string, 0, len(b.pending))
	for _, u := range b.order {
		if _, ok := b.pending[u]; ok {
			out = append(out, u)
		}
	}
	return out
}

// ValidateBatch validates urls and returns the partitioned, scored result.
// Per-URL failures become verdicts; only ErrBatchTooLarge is returned as an error.
func (v *Validator) ValidateBatch(ctx context.Context, urls []string) (*domain.BatchResult, error) {
	if len(urls) > v.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d urls, limit %d", ErrBatchTooLarge, len(urls), v.cfg.MaxBatchSize)
	}

	start := time.Now()
	batchID := uuid.NewString()
	log := v.log.With(logger.String("batch_id", batchID))

	b := &batch{
		inputs:   urls,
		verdicts: make([]domain.Verdict, len(urls)),
		pending:  make(map[string][]int),
	}

	v.prefilter(urls, b)
	v.lookupCache(ctx, b)
	v.renderPass(ctx, b)
	v.fallbackPass(ctx, b)

	result := domain.NewBatchResult(batchID, b.verdicts, b.counts)

	for _, verdict := range b.verdicts {
		v.metrics.ObserveVerdict(string(verdict.Status))
	}
	duration := time.Since(start)
	v.metrics.ObserveBatch(len(urls), duration)

	log.Info("Batch validated",
		logger.Int("total", result.Counts.TotalChecked),
		logger.Int("valid", len(result.ValidURLs)),
		logger.Int("invalid", len(result.InvalidURLs)),
		logger.Int("auto_approved", result.Counts.AutoApproved),
		logger.Int("paywall_blocked", result.Counts.PaywallBlocked),
		logger.Int("browser_checked", result.Counts.BrowserChecked),
		logger.Int("fallback_checked", result.Counts.FallbackChecked),
		logger.Int("cache_hits", result.Counts.CacheHits),
		logger.Duration("duration", duration),
	)

	return result, nil
}

// Validate checks a single URL.
func (v *Validator) Validate(ctx context.Context, url string) (domain.Verdict, error) {
	result, err := v.ValidateBatch(ctx, []string{url})
	if err != nil {
		return domain.Verdict{}, err
	}
	return result.ScoredURLs[0], nil
}

// prefilter resolves malformed URLs and trusted or paywalled domains without
// any network call and queues the rest by their trimmed form, so padded
// duplicates share one check.
func (v *Validator) prefilter(urls []string, b *batch) {
	scores := v.cfg.Scores

	for i, raw := range urls {
		candidate, err := domain.ParseCandidate(raw)
		if err != nil {
			b.verdicts[i] = domain.NewVerdict(raw, domain.StatusBroken, domain.ReasonInvalidURLFormat, scores)
			continue
		}

		switch v.classifier.ClassifyCandidate(candidate) {
		case trust.TierTrusted:
			b.verdicts[i] = domain.NewVerdict(raw, domain.StatusTrusted, domain.ReasonTrustedDomain, scores)
			b.counts.AutoApproved++
		case trust.TierKnownPaywall:
			b.verdicts[i] = domain.NewVerdict(raw, domain.StatusPaywall, domain.ReasonKnownPaywallDomain, scores)
			b.counts.PaywallBlocked++
		case trust.TierUnclassified:
			target := candidate.Raw
			if _, seen := b.pending[target]; !seen {
				b.order = append(b.order, target)
			}
			b.pending[target] = append(b.pending[target], i)
		}
	}
}

func (v *Validator) lookupCache(ctx context.Context, b *batch) {
	if v.cache == nil {
		return
	}

	for _, u := range b.unresolved() {
		verdict, ok := v.cache.Get(ctx, u, v.cfg.Scores)
		if !ok {
			continue
		}
		b.counts.CacheHits += len(b.pending[u])
		b.resolve(u, verdict)
	}
}

func (v *Validator) store(ctx context.Context, verdict domain.Verdict) {
	if v.cache == nil {
		return
	}
	if err := v.cache.Set(ctx, verdict); err != nil {
		v.log.Warn("Failed to cache verdict",
			logger.String("url", verdict.URL),
			logger.Error(err),
		)
	}
}

// outcome is what one network check produced for a URL.
type outcome struct {
	verdict  domain.Verdict
	resolved bool
	// cacheable marks verdicts that describe the page rather than the network.
	cacheable bool
}

func (v *Validator) renderPass(ctx context.Context, b *batch) {
	if v.renderer == nil {
		return
	}

	urls := b.unresolved()
	if len(urls) == 0 {
		return
	}

	outcomes := make([]outcome, len(urls))

	var g errgroup.Group
	g.SetLimit(v.cfg.MaxConcurrentRenders)
	for i, u := range urls {
		g.Go(func() error {
			outcomes[i] = v.renderOne(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	v.apply(ctx, b, urls, outcomes, &b.counts.BrowserChecked)
}

func (v *Validator) fallbackPass(ctx context.Context, b *batch) {
	urls := b.unresolved()
	if len(urls) == 0 {
		return
	}

	outcomes := make([]outcome, len(urls))

	var g errgroup.Group
	g.SetLimit(v.cfg.MaxConcurrentFallback)
	for i, u := range urls {
		g.Go(func() error {
			outcomes[i] = v.checkOne(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	v.apply(ctx, b, urls, outcomes, &b.counts.FallbackChecked)
}

// apply copies resolved outcomes into the batch and counts them against counter.
func (v *Validator) apply(ctx context.Context, b *batch, urls []string, outcomes []outcome, counter *int) {
	for i, u := range urls {
		o := outcomes[i]
		if !o.resolved {
			continue
		}
		*counter += len(b.pending[u])
		b.resolve(u, o.verdict)
		if o.cacheable {
			v.store(ctx, o.verdict)
		}
	}
}
