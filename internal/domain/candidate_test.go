package domain_test

import (
	"errors"
	"testing"

	"github.com/jonesrussell/north-cloud/link-validator/internal/domain"
)

func TestParseCandidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantHost   string
		wantDomain string
		wantRaw    string
		wantErr    bool
	}{
		{name: "subdomain", raw: "https://News.Example.com/a?b=c", wantHost: "news.example.com", wantDomain: "example.com"},
		{name: "multi-part suffix", raw: "http://www.bbc.co.uk/news", wantHost: "www.bbc.co.uk", wantDomain: "bbc.co.uk"},
		{name: "ip address", raw: "http://127.0.0.1:8080/x", wantHost: "127.0.0.1", wantDomain: "127.0.0.1"},
		{name: "localhost", raw: "http://localhost/x", wantHost: "localhost", wantDomain: "localhost"},
		{
			name: "surrounding whitespace", raw: " \thttps://example.com/a\n",
			wantHost: "example.com", wantDomain: "example.com", wantRaw: "https://example.com/a",
		},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "relative", raw: "/about", wantErr: true},
		{name: "mailto", raw: "mailto:someone@example.com", wantErr: true},
		{name: "ftp", raw: "ftp://example.com/file", wantErr: true},
		{name: "no host", raw: "https:///path", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := domain.ParseCandidate(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrMalformedURL) {
					t.Fatalf("expected ErrMalformedURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", got.Host, tt.wantHost)
			}
			if got.RegistrableDomain != tt.wantDomain {
				t.Errorf("RegistrableDomain = %q, want %q", got.RegistrableDomain, tt.wantDomain)
			}
			wantRaw := tt.wantRaw
			if wantRaw == "" {
				wantRaw = tt.raw
			}
			if got.Raw != wantRaw {
				t.Errorf("Raw = %q, want %q", got.Raw, wantRaw)
			}
		})
	}
}
