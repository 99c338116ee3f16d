// Package signals classifies a rendered page body by the textual signals it carries:
// error pages, paywalls, bot challenges and pages too thin to be real content.
package signals

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Signal is the content classification of one page.
type Signal string

// Content signals, in the order they are checked after the word-count floor.
const (
	SignalOK                  Signal = "ok"
	SignalInsufficientContent Signal = "insufficient_content"
	SignalErrorPage           Signal = "error_page"
	SignalPaywall             Signal = "paywall"
	SignalBotBlock            Signal = "bot_block"
)

// Default detection thresholds.
const (
	DefaultMinWords                = 30
	DefaultErrorTopWindow          = 1000
	DefaultPaywallContextMaxWords  = 1000
	DefaultBotBlockContextMaxWords = 500
)

// nonTextSelectors are removed before extracting visible text.
const nonTextSelectors = "script, style, noscript, template, svg"

// Thresholds tunes the length gating of the detector.
type Thresholds struct {
	// MinWords is the floor below which a page is insufficient_content.
	MinWords int `yaml:"min_words"`
	// ErrorTopWindow is how many leading characters of page text the
	// near-top error phrases are matched against.
	ErrorTopWindow int `yaml:"error_top_window"`
	// PaywallContextMaxWords gates the context-sensitive paywall phrases.
	PaywallContextMaxWords int `yaml:"paywall_context_max_words"`
	// BotBlockContextMaxWords gates the context-sensitive bot-block phrases.
	BotBlockContextMaxWords int `yaml:"bot_block_context_max_words"`
}

// SetDefaults fills unset thresholds.
func (t *Thresholds) SetDefaults() {
	if t.MinWords == 0 {
		t.MinWords = DefaultMinWords
	}
	if t.ErrorTopWindow == 0 {
		t.ErrorTopWindow = DefaultErrorTopWindow
	}
	if t.PaywallContextMaxWords == 0 {
		t.PaywallContextMaxWords = DefaultPaywallContextMaxWords
	}
	if t.BotBlockContextMaxWords == 0 {
		t.BotBlockContextMaxWords = DefaultBotBlockContextMaxWords
	}
}

// Detection is the outcome of inspecting one page.
type Detection struct {
	Signal    Signal `json:"signal"`
	Indicator string `json:"indicator,omitempty"`
	WordCount int    `json:"word_count"`
}

// ReasonCode renders the detection as a machine reason, e.g.
// "paywall:subscribe_to_read" or "insufficient_content:22_words".
func (d Detection) ReasonCode() string {
	switch d.Signal {
	case SignalOK:
		return "content_ok"
	case SignalInsufficientContent:
		return string(SignalInsufficientContent) + ":" + strconv.Itoa(d.WordCount) + "_words"
	case SignalBotBlock:
		return "bot_blocked:" + reasonToken(d.Indicator)
	default:
		return string(d.Signal) + ":" + reasonToken(d.Indicator)
	}
}

// Detector inspects page bodies. It holds no per-call state and is safe for concurrent use.
type Detector struct {
	thresholds Thresholds
	sets       *indicatorSets
}

// NewDetector creates a detector; zero thresholds take their defaults.
func NewDetector(thresholds Thresholds) *Detector {
	thresholds.SetDefaults()
	return &Detector{
		thresholds: thresholds,
		sets:       sharedIndicatorSets(),
	}
}

// Thresholds returns the effective thresholds.
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Detect classifies body, which may be HTML or plain text. The word-count
// floor is checked first and overrides every indicator; then error, paywall
// and bot-block indicators are checked in that order and the first hit wins.
func (d *Detector) Detect(body string) Detection {
	visible := extractText(body)
	words := len(strings.Fields(visible))

	if words < d.thresholds.MinWords {
		return Detection{Signal: SignalInsufficientContent, WordCount: words}
	}

	text := normalizeText(visible)

	if indicator, ok := d.errorIndicator(text); ok {
		return Detection{Signal: SignalErrorPage, Indicator: indicator, WordCount: words}
	}

	if indicator, ok := d.paywallIndicator(text, words); ok {
		return Detection{Signal: SignalPaywall, Indicator: indicator, WordCount: words}
	}

	if indicator, ok := d.botBlockIndicator(text, strings.ToLower(body), words); ok {
		return Detection{Signal: SignalBotBlock, Indicator: indicator, WordCount: words}
	}

	return Detection{Signal: SignalOK, WordCount: words}
}

func (d *Detector) errorIndicator(text string) (string, bool) {
	if indicator, ok := d.sets.errorAnywhere.first(text); ok {
		return indicator, true
	}
	return d.sets.errorNearTop.first(leading(text, d.thresholds.ErrorTopWindow))
}

func (d *Detector) paywallIndicator(text string, words int) (string, bool) {
	if indicator, ok := d.sets.paywallStrict.first(text); ok {
		return indicator, true
	}
	if words < d.thresholds.PaywallContextMaxWords {
		return d.sets.paywallContext.first(text)
	}
	return "", false
}

func (d *Detector) botBlockIndicator(text, markup string, words int) (string, bool) {
	if indicator, ok := d.sets.botStrict.first(text); ok {
		return indicator, true
	}
	if indicator, ok := d.sets.botMarkup.first(markup); ok {
		return indicator, true
	}
	if words >= d.thresholds.BotBlockContextMaxWords {
		return "", false
	}
	if indicator, ok := d.sets.botContext.first(text); ok {
		return indicator, true
	}
	return d.sets.botMarkupCtx.first(markup)
}

// extractText returns the visible text of an HTML document with whitespace
// collapsed. Plain text passes through the parser unchanged.
func extractText(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.Join(strings.Fields(body), " ")
	}

	doc.Find(nonTextSelectors).Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		collectText(n, &b)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// collectText appends text nodes in document order, separated by spaces so
// adjacent elements ("<h1>Title</h1><p>Body") do not merge into one word.
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// leading returns at most n bytes from the start of s.
func leading(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
