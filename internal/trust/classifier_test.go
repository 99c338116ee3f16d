package trust_test

import (
	"testing"

	"github.com/jonesrussell/north-cloud/link-validator/internal/trust"
)

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	c := trust.NewClassifier(nil, nil)

	tests := []struct {
		domain string
		want   trust.Tier
	}{
		{"europa.eu", trust.TierTrusted},
		{"ec.europa.eu", trust.TierTrusted},
		{"EN.Wikipedia.ORG", trust.TierTrusted},
		{"www.reuters.com", trust.TierTrusted},
		{"data.gov", trust.TierTrusted},
		{"ons.gov.uk", trust.TierTrusted},
		{"gov.br", trust.TierTrusted},
		{"www.gov.br", trust.TierTrusted},
		{"data.gov.in", trust.TierTrusted},
		{"europa.eu.int", trust.TierTrusted},
		{"governance.example.com", trust.TierUnclassified},
		{"noteuropa.eu", trust.TierUnclassified},
		{"wsj.com", trust.TierKnownPaywall},
		{"www.ft.com", trust.TierKnownPaywall},
		{"markets.ft.com", trust.TierKnownPaywall},
		{"microsoft.com", trust.TierUnclassified},
		{"notreuters.com", trust.TierUnclassified},
		{"example.com", trust.TierUnclassified},
		{"", trust.TierUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			t.Parallel()

			if got := c.Classify(tt.domain); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.domain, got, tt.want)
			}
		})
	}
}

func TestClassifier_ClassifyURL(t *testing.T) {
	t.Parallel()

	c := trust.NewClassifier([]string{"internal.example.org"}, []string{".paywalled.example"})

	tests := []struct {
		url  string
		want trust.Tier
	}{
		{"https://en.wikipedia.org/wiki/Go_(programming_language)", trust.TierTrusted},
		{"https://www.nytimes.com/2024/01/01/world/story.html", trust.TierKnownPaywall},
		{"https://docs.internal.example.org/page", trust.TierTrusted},
		{"https://example.org/page", trust.TierUnclassified},
		{"https://news.paywalled.example/x", trust.TierKnownPaywall},
		{"not a url", trust.TierUnclassified},
		{"mailto:press@reuters.com", trust.TierUnclassified},
	}

	for _, tt := range tests {
		if got := c.ClassifyURL(tt.url); got != tt.want {
			t.Errorf("ClassifyURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestClassifier_TrustedWinsOverPaywall(t *testing.T) {
	t.Parallel()

	c := trust.NewClassifier([]string{"both.example"}, []string{"both.example"})

	if got := c.Classify("both.example"); got != trust.TierTrusted {
		t.Errorf("Classify = %q, want %q", got, trust.TierTrusted)
	}
}
