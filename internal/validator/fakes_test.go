package validator_test

import (
	"context"
	"strings"
	"sync"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-validator/internal/fetcher"
	"github.com/jonesrussell/north-cloud/link-validator/internal/renderer"
)

var articleVocabulary = strings.Fields("council members approved the new riverside park budget after a long public meeting on tuesday evening")

// article returns an HTML page with n neutral words.
func article(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = articleVocabulary[i%len(articleVocabulary)]
	}
	return "<html><body><article><p>" + strings.Join(parts, " ") + "</p></article></body></html>"
}

type renderReply struct {
	html string
	err  error
}

// spyRenderer returns canned replies and records every call.
type spyRenderer struct {
	mu      sync.Mutex
	replies map[string]renderReply
	calls   []string
}

func newSpyRenderer() *spyRenderer {
	return &spyRenderer{replies: make(map[string]renderReply)}
}

func (s *spyRenderer) page(url, html string) *spyRenderer {
	s.replies[url] = renderReply{html: html}
	return s
}

func (s *spyRenderer) fail(url string, kind renderer.Kind, status int) *spyRenderer {
	s.replies[url] = renderReply{err: &renderer.Error{Kind: kind, StatusCode: status}}
	return s
}

func (s *spyRenderer) Render(_ context.Context, url string) (*renderer.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, url)
	reply, ok := s.replies[url]
	if !ok {
		return &renderer.Page{URL: url, HTML: article(200)}, nil
	}
	if reply.err != nil {
		return nil, reply.err
	}
	return &renderer.Page{URL: url, HTML: reply.html}, nil
}

func (s *spyRenderer) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// stubChecker returns canned results, defaulting to a 200.
type stubChecker struct {
	mu      sync.Mutex
	results map[string]fetcher.Result
	calls   []string
}

func newStubChecker() *stubChecker {
	return &stubChecker{results: make(map[string]fetcher.Result)}
}

func (s *stubChecker) set(url string, r fetcher.Result) *stubChecker {
	s.results[url] = r
	return s
}

func (s *stubChecker) Check(_ context.Context, url string) fetcher.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, url)
	if r, ok := s.results[url]; ok {
		return r
	}
	return fetcher.Result{Status: domain.StatusValidated, Reason: "http_200", StatusCode: 200}
}

func (s *stubChecker) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
