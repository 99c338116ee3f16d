package signals

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/cloudflare/ahocorasick"
)

// Error-page phrases that count wherever they appear.
var errorAnywherePhrases = []string{
	"the requested url was not found on this server",
	"the page you requested could not be found",
	"the page you are looking for does not exist",
	"the page you re looking for doesn t exist",
	"this page could not be found",
	"error 404",
	"404 error",
	"http 404",
}

// Error-page phrases that only count near the top of the page, where titles
// and headings render. Deep in the body they are usually citations or footers.
var errorNearTopPhrases = []string{
	"page not found",
	"has been removed",
	"has been deleted",
	"access denied",
	"page does not exist",
	"page doesn t exist",
	"no longer available",
	"content not available",
	"content unavailable",
	"page unavailable",
	"article not found",
	"story not found",
	"410 gone",
	"we couldn t find",
	"we can t find",
}

// Paywall phrases that trigger regardless of page length.
var paywallStrictPhrases = []string{
	"subscribe to read",
	"subscribe to continue reading",
	"subscribe now to continue",
	"to continue reading subscribe",
	"this article is for subscribers",
	"this content is for subscribers",
	"exclusive to subscribers",
	"you have reached your free article limit",
	"you ve reached your free article limit",
	"you have reached your article limit",
	"you ve reached your article limit",
}

// Paywall phrases that only trigger on short pages.
var paywallContextPhrases = []string{
	"subscription required",
	"subscribe now",
	"sign in to read",
	"sign in to continue",
	"log in to continue reading",
	"premium content",
	"members only",
	"paywall",
	"register to continue",
	"create a free account to continue",
	"already a subscriber",
	"become a member to read",
	"unlock this article",
}

// Bot-block phrases that trigger regardless of page length.
var botBlockStrictPhrases = []string{
	"verify you are human",
	"verifying you are human",
	"please verify you are a human",
	"are you a robot",
	"checking your browser before accessing",
	"please complete the security check to access",
	"unusual traffic from your computer network",
	"press and hold to confirm you are a human",
	"enable javascript and cookies to continue",
	"ddos protection by cloudflare",
}

// Bot-block phrases that only trigger on short pages.
var botBlockContextPhrases = []string{
	"captcha",
	"just a moment",
	"attention required",
	"security check",
	"access to this page has been denied",
	"please enable javascript",
	"enable javascript to continue",
	"bot detection",
	"request blocked",
	"one more step",
	"human verification",
}

// Challenge-page fingerprints found in markup rather than visible text.
var botBlockStrictMarkup = []string{
	"cf-browser-verification",
	"captcha-delivery.com",
	"/cdn-cgi/challenge-platform/",
	"cf-chl-",
}

// Captcha widgets also appear on comment and newsletter forms of real articles.
var botBlockContextMarkup = []string{
	"g-recaptcha",
	"h-captcha",
	"recaptcha/api.js",
}

// indicatorSet is a compiled phrase list. The ahocorasick matcher keeps
// per-match state, so calls are serialized.
type indicatorSet struct {
	mu      sync.Mutex
	phrases []string
	matcher *ahocorasick.Matcher
}

func newIndicatorSet(phrases []string, normalize func(string) string) *indicatorSet {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := normalize(p); n != "" {
			normalized = append(normalized, n)
		}
	}

	return &indicatorSet{
		phrases: normalized,
		matcher: ahocorasick.NewStringMatcher(normalized),
	}
}

// first returns the matched phrase with the lowest list index, so earlier
// entries take precedence when several hit.
func (s *indicatorSet) first(text string) (string, bool) {
	if len(s.phrases) == 0 || text == "" {
		return "", false
	}

	s.mu.Lock()
	hits := s.matcher.Match([]byte(text))
	s.mu.Unlock()

	if len(hits) == 0 {
		return "", false
	}

	sort.Ints(hits)
	return s.phrases[hits[0]], true
}

// indicatorSets groups every compiled family.
type indicatorSets struct {
	errorAnywhere  *indicatorSet
	errorNearTop   *indicatorSet
	paywallStrict  *indicatorSet
	paywallContext *indicatorSet
	botStrict      *indicatorSet
	botContext     *indicatorSet
	botMarkup      *indicatorSet
	botMarkupCtx   *indicatorSet
}

var (
	defaultSets     *indicatorSets
	defaultSetsOnce sync.Once
)

func sharedIndicatorSets() *indicatorSets {
	defaultSetsOnce.Do(func() {
		defaultSets = &indicatorSets{
			errorAnywhere:  newIndicatorSet(errorAnywherePhrases, normalizeText),
			errorNearTop:   newIndicatorSet(errorNearTopPhrases, normalizeText),
			paywallStrict:  newIndicatorSet(paywallStrictPhrases, normalizeText),
			paywallContext: newIndicatorSet(paywallContextPhrases, normalizeText),
			botStrict:      newIndicatorSet(botBlockStrictPhrases, normalizeText),
			botContext:     newIndicatorSet(botBlockContextPhrases, normalizeText),
			botMarkup:      newIndicatorSet(botBlockStrictMarkup, strings.ToLower),
			botMarkupCtx:   newIndicatorSet(botBlockContextMarkup, strings.ToLower),
		}
	})
	return defaultSets
}

// normalizeText lowercases, turns every non-alphanumeric rune into a space
// and collapses runs of spaces, so "Subscribe / to read" matches "subscribe to read".
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}

	return b.String()
}

// reasonToken turns an indicator into a reason-code suffix: "subscribe to read" -> "subscribe_to_read".
func reasonToken(indicator string) string {
	var b strings.Builder
	b.Grow(len(indicator))

	lastUnderscore := true
	for _, r := range strings.ToLower(indicator) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}
