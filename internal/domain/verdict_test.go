package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
)

func TestScores_ForIsMonotonic(t *testing.T) {
	t.Parallel()

	s := domain.DefaultScores()
	ordered := []domain.Status{
		domain.StatusTrusted,
		domain.StatusValidated,
		domain.StatusUncertain,
		domain.StatusFlagged,
		domain.StatusBotBlocked,
		domain.StatusPaywall,
		domain.StatusBroken,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, s.For(ordered[i-1]), s.For(ordered[i]), "%s vs %s", ordered[i-1], ordered[i])
	}
	assert.InDelta(t, domain.DefaultScoreFlagged, s.For(domain.Status("something_else")), 0.0001)
}

func TestScores_SetDefaultsKeepsOverrides(t *testing.T) {
	t.Parallel()

	s := domain.Scores{Validated: 0.8}
	s.SetDefaults()

	assert.InDelta(t, 0.8, s.Validated, 0.0001)
	assert.InDelta(t, domain.DefaultScoreBroken, s.Broken, 0.0001)
	require.NoError(t, s.Validate())
}

func TestScores_ValidateRejectsValidSideBelowFloor(t *testing.T) {
	t.Parallel()

	s := domain.DefaultScores()
	s.Uncertain = 0.3

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidScores))
}

func TestScores_ValidateRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	s := domain.DefaultScores()
	s.Broken = -0.1

	require.ErrorIs(t, s.Validate(), domain.ErrInvalidScores)
}

func TestNewVerdict_Validity(t *testing.T) {
	t.Parallel()

	table := domain.DefaultScores()

	assert.True(t, domain.NewVerdict("u", domain.StatusTrusted, domain.ReasonTrustedDomain, table).Valid)
	assert.True(t, domain.NewVerdict("u", domain.StatusValidated, domain.ReasonContentOK, table).Valid)
	assert.False(t, domain.NewVerdict("u", domain.StatusUncertain, domain.ReasonTimeout, table).Valid)
	assert.False(t, domain.NewVerdict("u", domain.StatusPaywall, domain.ReasonKnownPaywallDomain, table).Valid)

	pass := domain.PassThrough("u", "render_service_error:500", table)
	assert.True(t, pass.Valid)
	assert.Equal(t, domain.StatusUncertain, pass.Status)
	assert.GreaterOrEqual(t, pass.Score, domain.ValidScoreFloor)
}

func TestNewBatchResult_PartitionsInInputOrder(t *testing.T) {
	t.Parallel()

	table := domain.DefaultScores()
	verdicts := []domain.Verdict{
		domain.NewVerdict("https://a.example", domain.StatusValidated, domain.ReasonContentOK, table),
		domain.NewVerdict("https://b.example", domain.StatusBroken, "404_not_found", table),
		domain.NewVerdict("https://c.example", domain.StatusTrusted, domain.ReasonTrustedDomain, table),
		domain.NewVerdict("https://d.example", domain.StatusPaywall, "paywall:subscribe_to_read", table),
	}

	result := domain.NewBatchResult("batch-1", verdicts, domain.BatchCounts{AutoApproved: 1})

	assert.Equal(t, []string{"https://a.example", "https://c.example"}, result.ValidURLs)
	assert.Equal(t, []domain.InvalidURL{
		{URL: "https://b.example", Reason: "404_not_found"},
		{URL: "https://d.example", Reason: "paywall:subscribe_to_read"},
	}, result.InvalidURLs)
	assert.Equal(t, 4, result.Counts.TotalChecked)
	assert.Equal(t, 1, result.Counts.AutoApproved)
	assert.Len(t, result.InvalidSet(), 2)
}
