// Package trust classifies URLs by the reputation of their registrable domain.
package trust

import (
	"strings"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
)

// Tier is the trust tier of a domain.
type Tier string

// Trust tiers.
const (
	TierTrusted      Tier = "trusted"
	TierKnownPaywall Tier = "known_paywall"
	TierUnclassified Tier = "unclassified"
)

// defaultTrustedDomains are high-authority sources that are never rendered.
var defaultTrustedDomains = []string{
	// Government and multilateral organisations
	"gov",
	"gov.uk",
	"gc.ca",
	"gov.au",
	"europa.eu",
	"un.org",
	"who.int",
	"worldbank.org",
	"imf.org",
	"oecd.org",
	"wto.org",
	// Reference
	"wikipedia.org",
	"britannica.com",
	// Wire services
	"reuters.com",
	"apnews.com",
	"afp.com",
}

// defaultTrustedFragments match as a run of whole labels anywhere in the
// domain, so "gov" covers gov.br and data.gov.in and "europa.eu" covers
// europa.eu.int.
var defaultTrustedFragments = []string{
	"gov",
	"europa.eu",
}

// defaultPaywallDomains reliably paywall or block rendering.
var defaultPaywallDomains = []string{
	"wsj.com",
	"ft.com",
	"bloomberg.com",
	"economist.com",
	"nytimes.com",
	"washingtonpost.com",
	"barrons.com",
	"thetimes.co.uk",
	"telegraph.co.uk",
	"hbr.org",
}

// Classifier maps domains to trust tiers. It is immutable after construction
// and safe for concurrent use.
type Classifier struct {
	trusted          []string
	trustedFragments []string
	paywall          []string
}

// NewClassifier builds a classifier from the default tables extended by the
// given domains. Entries are normalized; duplicates are harmless.
func NewClassifier(extraTrusted, extraPaywall []string) *Classifier {
	return &Classifier{
		trusted:          normalizePatterns(defaultTrustedDomains, extraTrusted),
		trustedFragments: normalizePatterns(defaultTrustedFragments),
		paywall:          normalizePatterns(defaultPaywallDomains, extraPaywall),
	}
}

// Classify returns the tier for a domain or host name. Trusted wins when a
// domain matches both tables.
func (c *Classifier) Classify(domainName string) Tier {
	d := normalizeDomain(domainName)
	if d == "" {
		return TierUnclassified
	}
	if matchesAny(d, c.trusted) || containsAny(d, c.trustedFragments) {
		return TierTrusted
	}
	if matchesAny(d, c.paywall) {
		return TierKnownPaywall
	}
	return TierUnclassified
}

// ClassifyURL classifies a candidate by its host, then by its registrable
// domain. Malformed URLs are unclassified.
func (c *Classifier) ClassifyURL(raw string) Tier {
	candidate, err := domain.ParseCandidate(raw)
	if err != nil {
		return TierUnclassified
	}
	return c.ClassifyCandidate(candidate)
}

// ClassifyCandidate classifies an already parsed candidate.
func (c *Classifier) ClassifyCandidate(candidate domain.CandidateURL) Tier {
	if tier := c.Classify(candidate.Host); tier != TierUnclassified {
		return tier
	}
	return c.Classify(candidate.RegistrableDomain)
}

// matchesAny reports whether d equals a pattern or is a subdomain of one.
// Matching is on label boundaries so "microsoft.com" never matches "ft.com".
func matchesAny(d string, patterns []string) bool {
	for _, p := range patterns {
		if d == p || strings.HasSuffix(d, "."+p) {
			return true
		}
	}
	return false
}

// containsAny reports whether a fragment appears in d as whole labels.
func containsAny(d string, fragments []string) bool {
	padded := "." + d + "."
	for _, f := range fragments {
		if strings.Contains(padded, "."+f+".") {
			return true
		}
	}
	return false
}

func normalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".")
	return strings.TrimPrefix(s, "www.")
}

func normalizePatterns(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, p := range list {
			p = strings.TrimPrefix(normalizeDomain(p), ".")
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
