// Package cleanser strips invalid hyperlinks from generated markdown while
// keeping their anchor text.
package cleanser

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
	"github.com/jonesrussell/north-cloud/link-validator/internal/metrics"
)

// ContentKey is the only section field the cleanser reads or rewrites.
const ContentKey = "content"

// Section is one named block of generated output.
type Section map[string]any

// Sections maps section names to their blocks.
type Sections map[string]Section

// Validator validates URL batches.
type Validator interface {
	ValidateBatch(ctx context.Context, urls []string) (*domain.BatchResult, error)
	MaxBatchSize() int
}

// Report describes one cleansing pass.
type Report struct {
	// Checked is the number of unique external URLs validated.
	Checked int                 `json:"checked"`
	Removed []domain.LinkSpan   `json:"removed"`
	Batch   *domain.BatchResult `json:"batch,omitempty"`
}

// Cleanser rewrites sections through a Validator.
type Cleanser struct {
	validator Validator
	log       logger.Logger
	metrics   *metrics.Metrics
}

// New creates a Cleanser.
func New(v Validator, log logger.Logger, m *metrics.Metrics) *Cleanser {
	if log == nil {
		log = logger.NewNop()
	}
	return &Cleanser{
		validator: v,
		log:       log.With(logger.String("component", "cleanser")),
		metrics:   m,
	}
}

// Clean returns sections with every invalid link reduced to its anchor text.
func (c *Cleanser) Clean(ctx context.Context, sections Sections) (Sections, error) {
	out, _, err := c.CleanWithReport(ctx, sections)
	return out, err
}

// CleanWithReport is Clean plus a report of what was checked and removed.
// The input is never mutated. When no section holds an external link the
// input is returned as is.
func (c *Cleanser) CleanWithReport(ctx context.Context, sections Sections) (Sections, *Report, error) {
	names := slices.Sorted(maps.Keys(sections))

	spansBySection := make(map[string][]domain.LinkSpan, len(names))
	var all []domain.LinkSpan
	for _, name := range names {
		content, ok := sections[name][ContentKey].(string)
		if !ok {
			continue
		}
		spans := ExtractLinks(name, content)
		if len(spans) == 0 {
			continue
		}
		spansBySection[name] = spans
		all = append(all, spans...)
	}

	if len(all) == 0 {
		return sections, &Report{}, nil
	}

	targets := uniqueTargets(all)
	batch, err := c.validate(ctx, targets)
	if err != nil {
		return nil, nil, err
	}
	invalid := batch.InvalidSet()

	out := make(Sections, len(sections))
	report := &Report{Checked: len(targets), Removed: []domain.LinkSpan{}, Batch: batch}

	for name, section := range sections {
		spans, ok := spansBySection[name]
		if !ok {
			out[name] = section
			continue
		}

		content, _ := section[ContentKey].(string)
		cleaned, removed := strip(content, spans, invalid)
		if len(removed) == 0 {
			out[name] = section
			continue
		}

		rewritten := maps.Clone(section)
		rewritten[ContentKey] = cleaned
		out[name] = rewritten
		report.Removed = append(report.Removed, removed...)
	}

	slices.SortStableFunc(report.Removed, func(a, b domain.LinkSpan) int {
		if a.Section != b.Section {
			if a.Section < b.Section {
				return -1
			}
			return 1
		}
		return a.Start - b.Start
	})

	c.metrics.ObserveCleanse(report.Checked, len(report.Removed))
	c.log.Info("Sections cleansed",
		logger.String("batch_id", batch.BatchID),
		logger.Int("sections", len(sections)),
		logger.Int("links_checked", report.Checked),
		logger.Int("links_removed", len(report.Removed)),
	)

	return out, report, nil
}

// CleanText cleans a single block of markdown.
func (c *Cleanser) CleanText(ctx context.Context, content string) (string, *Report, error) {
	const name = "text"

	out, report, err := c.CleanWithReport(ctx, Sections{name: Section{ContentKey: content}})
	if err != nil {
		return "", nil, err
	}
	cleaned, _ := out[name][ContentKey].(string)
	return cleaned, report, nil
}

// validate runs targets through the validator in chunks no larger than its
// batch limit and merges the results.
func (c *Cleanser) validate(ctx context.Context, targets []string) (*domain.BatchResult, error) {
	size := c.validator.MaxBatchSize()
	if size < 1 || len(targets) <= size {
		result, err := c.validator.ValidateBatch(ctx, targets)
		if err != nil {
			return nil, fmt.Errorf("validate links: %w", err)
		}
		return result, nil
	}

	var batchID string
	var verdicts []domain.Verdict
	var counts domain.BatchCounts

	for chunk := range slices.Chunk(targets, size) {
		result, err := c.validator.ValidateBatch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("validate links: %w", err)
		}
		if batchID == "" {
			batchID = result.BatchID
		}
		verdicts = append(verdicts, result.ScoredURLs...)
		counts.AutoApproved += result.Counts.AutoApproved
		counts.PaywallBlocked += result.Counts.PaywallBlocked
		counts.BrowserChecked += result.Counts.BrowserChecked
		counts.FallbackChecked += result.Counts.FallbackChecked
		counts.CacheHits += result.Counts.CacheHits
	}

	return domain.NewBatchResult(batchID, verdicts, counts), nil
}
