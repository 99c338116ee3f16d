package domain

import (
	"errors"
	"fmt"
)

// Status is the classification outcome for one URL.
type Status string

// Verdict statuses.
const (
	StatusTrusted    Status = "trusted"
	StatusValidated  Status = "validated"
	StatusPaywall    Status = "paywall"
	StatusBotBlocked Status = "bot_blocked"
	StatusBroken     Status = "broken"
	StatusUncertain  Status = "uncertain"
	StatusFlagged    Status = "flagged"
)

// Reason codes that are not derived from a detector indicator or status code.
const (
	ReasonTrustedDomain       = "trusted_domain"
	ReasonKnownPaywallDomain  = "known_paywall_domain"
	ReasonInvalidURLFormat    = "invalid_url_format"
	ReasonContentOK           = "content_ok"
	ReasonTimeout             = "timeout"
	ReasonConnectionError     = "connection_error"
	ReasonMalformedResponse   = "malformed_render_response"
	ReasonTooManyRedirects    = "too_many_redirects"
	ReasonRenderServicePrefix = "render_service_error"
)

// ValidScoreFloor is the lowest score a URL on the valid side may carry.
const ValidScoreFloor = 0.5

// Default confidence scores per status.
const (
	DefaultScoreTrusted    = 1.0
	DefaultScoreValidated  = 0.9
	DefaultScoreUncertain  = 0.5
	DefaultScoreFlagged    = 0.4
	DefaultScoreBotBlocked = 0.3
	DefaultScorePaywall    = 0.2
	DefaultScoreBroken     = 0.1
)

// ErrInvalidScores is returned when a score table would let the partition and the score disagree.
var ErrInvalidScores = errors.New("invalid score table")

// Scores is the status -> confidence lookup table.
type Scores struct {
	Trusted    float64 `yaml:"trusted"`
	Validated  float64 `yaml:"validated"`
	Uncertain  float64 `yaml:"uncertain"`
	Flagged    float64 `yaml:"flagged"`
	BotBlocked float64 `yaml:"bot_blocked"`
	Paywall    float64 `yaml:"paywall"`
	Broken     float64 `yaml:"broken"`
}

// DefaultScores returns the stock score table.
func DefaultScores() Scores {
	return Scores{
		Trusted:    DefaultScoreTrusted,
		Validated:  DefaultScoreValidated,
		Uncertain:  DefaultScoreUncertain,
		Flagged:    DefaultScoreFlagged,
		BotBlocked: DefaultScoreBotBlocked,
		Paywall:    DefaultScorePaywall,
		Broken:     DefaultScoreBroken,
	}
}

// SetDefaults fills zero entries from DefaultScores.
func (s *Scores) SetDefaults() {
	d := DefaultScores()
	fill := func(dst *float64, def float64) {
		if *dst == 0 {
			*dst = def
		}
	}
	fill(&s.Trusted, d.Trusted)
	fill(&s.Validated, d.Validated)
	fill(&s.Uncertain, d.Uncertain)
	fill(&s.Flagged, d.Flagged)
	fill(&s.BotBlocked, d.BotBlocked)
	fill(&s.Paywall, d.Paywall)
	fill(&s.Broken, d.Broken)
}

// For returns the score for status. Unknown statuses get the flagged score.
func (s Scores) For(status Status) float64 {
	switch status {
	case StatusTrusted:
		return s.Trusted
	case StatusValidated:
		return s.Validated
	case StatusUncertain:
		return s.Uncertain
	case StatusBotBlocked:
		return s.BotBlocked
	case StatusPaywall:
		return s.Paywall
	case StatusBroken:
		return s.Broken
	default:
		return s.Flagged
	}
}

// Validate checks every score lies in [0,1] and that the statuses which can
// land on the valid side score at least ValidScoreFloor.
func (s Scores) Validate() error {
	all := map[Status]float64{
		StatusTrusted:    s.Trusted,
		StatusValidated:  s.Validated,
		StatusUncertain:  s.Uncertain,
		StatusFlagged:    s.Flagged,
		StatusBotBlocked: s.BotBlocked,
		StatusPaywall:    s.Paywall,
		StatusBroken:     s.Broken,
	}
	for status, score := range all {
		if score < 0 || score > 1 {
			return fmt.Errorf("%w: %s score %.2f outside [0,1]", ErrInvalidScores, status, score)
		}
	}
	for _, status := range []Status{StatusTrusted, StatusValidated, StatusUncertain} {
		if all[status] < ValidScoreFloor {
			return fmt.Errorf("%w: %s score %.2f below valid floor %.2f",
				ErrInvalidScores, status, all[status], ValidScoreFloor)
		}
	}
	return nil
}

// Verdict is the immutable outcome of validating one URL.
type Verdict struct {
	URL        string  `json:"url"`
	Status     Status  `json:"status"`
	ReasonCode string  `json:"reason_code"`
	Score      float64 `json:"confidence_score"`
	Valid      bool    `json:"valid"`
}

// NewVerdict builds a verdict scored from table. Only trusted and validated
// verdicts are valid; use PassThrough for the benefit-of-the-doubt case.
func NewVerdict(url string, status Status, reason string, table Scores) Verdict {
	return Verdict{
		URL:        url,
		Status:     status,
		ReasonCode: reason,
		Score:      table.For(status),
		Valid:      status == StatusTrusted || status == StatusValidated,
	}
}

// PassThrough builds an uncertain verdict that stays on the valid side.
func PassThrough(url, reason string, table Scores) Verdict {
	v := NewVerdict(url, StatusUncertain, reason, table)
	v.Valid = true
	if v.Score < ValidScoreFloor {
		v.Score = ValidScoreFloor
	}
	return v
}
