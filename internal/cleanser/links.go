package cleanser

import (
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
)

// linkPattern matches inline markdown links with an optional leading "!"
// so images can be recognized and skipped. The target is either bare, with
// one level of balanced parentheses as Wikipedia article paths carry, or
// wrapped in <>. A title may be double quoted, single quoted or
// parenthesized. Anchors may nest one level of brackets, which covers
// image-wrapped links such as [![logo](img)](url).
var linkPattern = regexp.MustCompile(
	`(!?)\[((?:[^\[\]]|\[[^\[\]]*\])*)\]\(\s*` +
		`(?:<([^<>\s]+)>|((?:[^\s()<]|\([^\s()]*\))(?:[^\s()]|\([^\s()]*\))*))` +
		`(?:\s+(?:"[^"]*"|'[^']*'|\([^()]*\)))?\s*\)`,
)

// Submatch indexes within linkPattern.
const (
	groupBang      = 1
	groupAnchor    = 2
	groupAngledURL = 3
	groupURL       = 4
)

// ExtractLinks returns the external markdown links in content, in order.
// Images, relative targets, fragments and non-http(s) schemes are skipped.
// An image nested inside a link's anchor stays part of that anchor.
// Reference-style links and autolinks are not recognized.
func ExtractLinks(section, content string) []domain.LinkSpan {
	matches := linkPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	spans := make([]domain.LinkSpan, 0, len(matches))
	for _, m := range matches {
		if m[2*groupBang+1] > m[2*groupBang] {
			continue
		}

		target := submatch(content, m, groupURL)
		if target == "" {
			target = submatch(content, m, groupAngledURL)
		}
		if !isExternal(target) {
			continue
		}

		spans = append(spans, domain.LinkSpan{
			Section:    section,
			AnchorText: content[m[2*groupAnchor]:m[2*groupAnchor+1]],
			TargetURL:  target,
			Start:      m[0],
			End:        m[1],
		})
	}

	return spans
}

// submatch returns group g of match m, or "" when the group did not take part.
func submatch(content string, m []int, g int) string {
	if m[2*g] < 0 {
		return ""
	}
	return content[m[2*g]:m[2*g+1]]
}

func isExternal(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// uniqueTargets returns the distinct target URLs of spans in first-seen order.
func uniqueTargets(spans []domain.LinkSpan) []string {
	seen := make(map[string]struct{}, len(spans))
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		if _, ok := seen[s.TargetURL]; ok {
			continue
		}
		seen[s.TargetURL] = struct{}{}
		out = append(out, s.TargetURL)
	}
	return out
}

// strip replaces each span whose target is in invalid with its anchor text.
// spans must be in ascending offset order. It returns the rewritten content
// and the spans that were removed.
func strip(content string, spans []domain.LinkSpan, invalid map[string]struct{}) (string, []domain.LinkSpan) {
	var b strings.Builder
	var removed []domain.LinkSpan
	last := 0

	for _, s := range spans {
		if _, bad := invalid[s.TargetURL]; !bad {
			continue
		}
		b.WriteString(content[last:s.Start])
		b.WriteString(s.AnchorText)
		last = s.End
		removed = append(removed, s)
	}

	if len(removed) == 0 {
		return content, nil
	}

	b.WriteString(content[last:])
	return b.String(), removed
}
