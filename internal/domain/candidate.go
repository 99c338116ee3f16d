// Package domain holds the value types shared by the validation pipeline.
package domain

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrMalformedURL is returned when a candidate cannot be checked over HTTP.
var ErrMalformedURL = errors.New("malformed url")

// CandidateURL is a URL submitted for validation plus the fields derived from it.
type CandidateURL struct {
	// Raw is the submitted URL without surrounding whitespace. It is the form
	// that is rendered and fetched.
	Raw               string
	Scheme            string
	Host              string
	RegistrableDomain string
}

// ParseCandidate parses raw into a CandidateURL. Only absolute http(s) URLs with a host are accepted.
func ParseCandidate(raw string) (CandidateURL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CandidateURL{}, fmt.Errorf("%w: empty", ErrMalformedURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return CandidateURL{}, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return CandidateURL{}, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return CandidateURL{}, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}

	return CandidateURL{
		Raw:               trimmed,
		Scheme:            scheme,
		Host:              host,
		RegistrableDomain: RegistrableDomain(host),
	}, nil
}

// RegistrableDomain returns the eTLD+1 for host ("sub.example.co.uk" -> "example.co.uk").
// IP addresses and single-label hosts are returned unchanged.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}

	return etld1
}
