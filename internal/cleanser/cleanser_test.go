package cleanser_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/link-validator/internal/cleanser"
	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/logger"
)

const (
	goodURL = "https://good.example.com/a"
	deadURL = "https://dead.example.com/b"
	wikiURL = "https://en.wikipedia.org/wiki/Go_(programming_language)"
)

// fakeValidator marks the configured URLs invalid and records batches.
type fakeValidator struct {
	mu       sync.Mutex
	invalid  map[string]bool
	maxBatch int
	batches  [][]string
	err      error
}

func newFakeValidator(invalid ...string) *fakeValidator {
	f := &fakeValidator{invalid: make(map[string]bool), maxBatch: 500}
	for _, u := range invalid {
		f.invalid[u] = true
	}
	return f
}

func (f *fakeValidator) ValidateBatch(_ context.Context, urls []string) (*domain.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, append([]string(nil), urls...))

	scores := domain.DefaultScores()
	verdicts := make([]domain.Verdict, len(urls))
	for i, u := range urls {
		if f.invalid[u] {
			verdicts[i] = domain.NewVerdict(u, domain.StatusBroken, "404_not_found", scores)
			continue
		}
		verdicts[i] = domain.NewVerdict(u, domain.StatusValidated, domain.ReasonContentOK, scores)
	}
	return domain.NewBatchResult("batch-test", verdicts, domain.BatchCounts{}), nil
}

func (f *fakeValidator) MaxBatchSize() int {
	return f.maxBatch
}

func (f *fakeValidator) Batches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	content := `See [Go](` + wikiURL + `) and [docs](https://go.dev/doc "Docs title"). ` +
		`Skip ![logo](https://img.example.com/logo.png), [home](/), [top](#top), [mail](mailto:a@b.c).`

	spans := cleanser.ExtractLinks("intro", content)
	require.Len(t, spans, 2)

	assert.Equal(t, "Go", spans[0].AnchorText)
	assert.Equal(t, wikiURL, spans[0].TargetURL)
	assert.Equal(t, "intro", spans[0].Section)
	assert.Equal(t, "[Go]("+wikiURL+")", content[spans[0].Start:spans[0].End])

	assert.Equal(t, "docs", spans[1].AnchorText)
	assert.Equal(t, "https://go.dev/doc", spans[1].TargetURL)
	assert.Equal(t, `[docs](https://go.dev/doc "Docs title")`, content[spans[1].Start:spans[1].End])
}

func TestExtractLinks_TitleAndTargetForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		content    string
		wantAnchor string
		wantTarget string
	}{
		{
			name:       "single quoted title",
			content:    "[a](https://go.dev/a 'Title')",
			wantAnchor: "a",
			wantTarget: "https://go.dev/a",
		},
		{
			name:       "parenthesized title",
			content:    "[b](https://go.dev/b (Title))",
			wantAnchor: "b",
			wantTarget: "https://go.dev/b",
		},
		{
			name:       "angle bracket target",
			content:    "[c](<https://go.dev/c>)",
			wantAnchor: "c",
			wantTarget: "https://go.dev/c",
		},
		{
			name:       "angle bracket target with title",
			content:    `[d](<https://go.dev/d> "Title")`,
			wantAnchor: "d",
			wantTarget: "https://go.dev/d",
		},
		{
			name:       "image wrapped link",
			content:    "[![logo](https://img.example.com/logo.png)](https://go.dev/e)",
			wantAnchor: "![logo](https://img.example.com/logo.png)",
			wantTarget: "https://go.dev/e",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spans := cleanser.ExtractLinks("body", tt.content)
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantAnchor, spans[0].AnchorText)
			assert.Equal(t, tt.wantTarget, spans[0].TargetURL)
			assert.Equal(t, tt.content, tt.content[spans[0].Start:spans[0].End])
		})
	}
}

func TestCleanText_RemovesInvalidBadgeKeepsImage(t *testing.T) {
	t.Parallel()

	badge := "![build](https://img.example.com/badge.svg)"
	content := "Status: [" + badge + "](" + deadURL + ") and [docs](<" + goodURL + "> 'Docs')."

	c := cleanser.New(newFakeValidator(deadURL), logger.NewNop(), nil)

	cleaned, report, err := c.CleanText(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, "Status: "+badge+" and [docs](<"+goodURL+"> 'Docs').", cleaned)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, deadURL, report.Removed[0].TargetURL)
	assert.Equal(t, badge, report.Removed[0].AnchorText)
}

func TestCleanText_RemovesInvalidKeepsAnchor(t *testing.T) {
	t.Parallel()

	c := cleanser.New(newFakeValidator(deadURL), logger.NewNop(), nil)
	content := "Read [the report](" + deadURL + ") and [the summary](" + goodURL + ")."

	cleaned, report, err := c.CleanText(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, "Read the report and [the summary]("+goodURL+").", cleaned)
	assert.Equal(t, 2, report.Checked)
	require.Len(t, report.Removed, 1)
	assert.Equal(t, deadURL, report.Removed[0].TargetURL)
	assert.Equal(t, "the report", report.Removed[0].AnchorText)
}

func TestClean_RoundTripPreservesEverythingElse(t *testing.T) {
	t.Parallel()

	content := "# Title\n\nIntro with [a](" + deadURL + "), ![img](" + deadURL + ") and `code`.\n\n" +
		"- [keep](" + goodURL + ")\n- [drop again](" + deadURL + " \"t\")\n"
	want := "# Title\n\nIntro with a, ![img](" + deadURL + ") and `code`.\n\n" +
		"- [keep](" + goodURL + ")\n- drop again\n"

	c := cleanser.New(newFakeValidator(deadURL), logger.NewNop(), nil)

	cleaned, report, err := c.CleanText(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, want, cleaned)
	assert.Equal(t, 2, report.Checked, "duplicate targets are validated once")
	assert.Len(t, report.Removed, 2)
}

func TestClean_NoLinksReturnsInputUnchanged(t *testing.T) {
	t.Parallel()

	v := newFakeValidator()
	c := cleanser.New(v, logger.NewNop(), nil)

	in := cleanser.Sections{
		"intro": {"content": "No links here, only [brackets] and (parens).", "order": 1},
		"body":  {"content": "Relative [home](/home) and ![pic](https://img.example.com/x.png)."},
		"meta":  {"title": "no content field"},
	}

	out, report, err := c.CleanWithReport(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, in, out)
	assert.Zero(t, report.Checked)
	assert.Empty(t, report.Removed)
	assert.Empty(t, v.Batches(), "no validator call without external links")
}

func TestClean_AllValidIsByteIdentical(t *testing.T) {
	t.Parallel()

	content := "Sources: [one](" + goodURL + "), [two](" + wikiURL + ")."
	c := cleanser.New(newFakeValidator(), logger.NewNop(), nil)

	cleaned, report, err := c.CleanText(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, content, cleaned)
	assert.Empty(t, report.Removed)
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	original := "Broken [link](" + deadURL + ")."
	in := cleanser.Sections{
		"body":  {"content": original, "heading": "Body"},
		"other": {"content": "Fine [link](" + goodURL + ")."},
	}

	c := cleanser.New(newFakeValidator(deadURL), logger.NewNop(), nil)

	out, err := c.Clean(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, original, in["body"]["content"])
	assert.Equal(t, "Broken link.", out["body"]["content"])
	assert.Equal(t, "Body", out["body"]["heading"])
	assert.Equal(t, in["other"]["content"], out["other"]["content"])
}

func TestClean_ValidatesUniqueURLsAcrossSections(t *testing.T) {
	t.Parallel()

	v := newFakeValidator(deadURL)
	c := cleanser.New(v, logger.NewNop(), nil)

	in := cleanser.Sections{
		"a": {"content": "[x](" + goodURL + ") [y](" + deadURL + ")"},
		"b": {"content": "[z](" + deadURL + ") [w](" + goodURL + ")"},
	}

	out, report, err := c.CleanWithReport(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, v.Batches(), 1)
	assert.Equal(t, []string{goodURL, deadURL}, v.Batches()[0])
	assert.Equal(t, "[x]("+goodURL+") y", out["a"]["content"])
	assert.Equal(t, "z [w]("+goodURL+")", out["b"]["content"])

	require.Len(t, report.Removed, 2)
	assert.Equal(t, "a", report.Removed[0].Section)
	assert.Equal(t, "b", report.Removed[1].Section)
}

func TestClean_ChunksLargeLinkSets(t *testing.T) {
	t.Parallel()

	v := newFakeValidator(deadURL)
	v.maxBatch = 2
	c := cleanser.New(v, logger.NewNop(), nil)

	content := "[a](https://a.example.com/) [b](https://b.example.com/) [c](" + deadURL + ")"

	cleaned, report, err := c.CleanText(context.Background(), content)
	require.NoError(t, err)

	assert.Len(t, v.Batches(), 2)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 3, report.Batch.Counts.TotalChecked)
	assert.Equal(t, "[a](https://a.example.com/) [b](https://b.example.com/) c", cleaned)
}

func TestClean_ValidatorErrorIsReturned(t *testing.T) {
	t.Parallel()

	v := newFakeValidator()
	v.err = errors.New("boom")
	c := cleanser.New(v, logger.NewNop(), nil)

	_, _, err := c.CleanText(context.Background(), "[x]("+goodURL+")")
	require.Error(t, err)
	assert.ErrorIs(t, err, v.err)
}
