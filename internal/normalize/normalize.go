// Package normalize implements the URL Normalizer (C1): parsing, host
// canonicalization, IDNA/punycode handling, IP-literal detection, and
// registered-domain extraction. Grounded on the reference service's
// safety_screener.go (IP-literal/punycode/TLD checks) and
// domain_analyzer.go's isHomographAttack/extractTLD helpers, generalized
// into the exact NormalizedURL fields the pipeline needs.
package normalize

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/cyberzilla/urlsentinel/internal/apierrors"
	"github.com/cyberzilla/urlsentinel/internal/models"
	"github.com/cyberzilla/urlsentinel/internal/psl"
)

// Normalizer holds the registered-domain trie, loaded once at startup.
type Normalizer struct {
	suffixes *psl.List
}

// New builds a Normalizer backed by the given suffix list.
func New(suffixes *psl.List) *Normalizer {
	if suffixes == nil {
		suffixes = psl.New()
	}
	return &Normalizer{suffixes: suffixes}
}

// Normalize parses rawURL per section 4.1's procedure and returns an
// immutable NormalizedURL, or an error wrapping apierrors.ErrInvalidInput /
// apierrors.ErrUnsupportedScheme.
func (n *Normalizer) Normalize(rawURL string) (models.NormalizedURL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return models.NormalizedURL{}, fmt.Errorf("empty url: %w", apierrors.ErrInvalidInput)
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return models.NormalizedURL{}, fmt.Errorf("parse %q: %w", rawURL, apierrors.ErrInvalidInput)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return models.NormalizedURL{}, fmt.Errorf("scheme %q: %w", scheme, apierrors.ErrUnsupportedScheme)
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" || strings.ContainsAny(hostname, " \t\n") {
		return models.NormalizedURL{}, fmt.Errorf("empty or invalid host: %w", apierrors.ErrInvalidInput)
	}

	isIPLiteral := false
	var resolvedIP net.IP
	if ip := net.ParseIP(hostname); ip != nil {
		isIPLiteral = true
		resolvedIP = ip
	}

	asciiHost := hostname
	isPunycode := false
	if !isIPLiteral && !isASCII(hostname) {
		encoded, encErr := idna.ToASCII(hostname)
		if encErr == nil {
			asciiHost = encoded
			isPunycode = true
		}
	}
	if strings.Contains(asciiHost, "xn--") {
		isPunycode = true
	}

	portStr := parsed.Port()
	hasExplicitPort := portStr != ""
	port := defaultPort(scheme)
	if hasExplicitPort {
		p, perr := strconv.Atoi(portStr)
		if perr != nil {
			return models.NormalizedURL{}, fmt.Errorf("bad port %q: %w", portStr, apierrors.ErrInvalidInput)
		}
		port = p
		if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
			hasExplicitPort = false
		}
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}

	registeredDomain := asciiHost
	if !isIPLiteral {
		registeredDomain = n.suffixes.RegisteredDomain(asciiHost)
	}

	return models.NormalizedURL{
		Raw:              rawURL,
		Scheme:           scheme,
		Host:             asciiHost,
		Port:             port,
		HasExplicitPort:  hasExplicitPort,
		Path:             path,
		Query:            parsed.RawQuery,
		Fragment:         parsed.Fragment,
		RegisteredDomain: registeredDomain,
		IsIPLiteral:      isIPLiteral,
		IsPunycode:       isPunycode,
		ResolvedIP:       resolvedIP,
	}, nil
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// IsHomographCandidate reports whether host's labels mix Latin with
// non-Latin scripts within a single label, the textbook homograph pattern.
func IsHomographCandidate(host string) bool {
	for _, label := range strings.Split(host, ".") {
		hasLatin, hasOther := false, false
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
				hasLatin = true
			case r > 127:
				hasOther = true
			}
		}
		if hasLatin && hasOther {
			return true
		}
	}
	return false
}
