// Package netprobe implements the Network Probe (C3): DNS resolution, a TLS
// handshake and certificate inspection, and a redirect-following HTTP GET,
// each independently time-boxed and failure-isolated, plus a best-effort
// content inspection pass. Grounded on the reference service's
// threat_analyzer.go (performDNSAnalysisComponent/performSSLAnalysisComponent/
// performThreatAnalysis's per-step timeout contexts), ip_analyzer.go's
// private/reserved IPv4 range tables, ssl_analyzer_test.go's certificate
// grading thresholds (the source file itself was never retrieved, only its
// test, so the grading logic here is authored against that behavioral
// contract), and patterns/regex_patterns.go's redirect/form content
// signatures.
package netprobe

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cyberzilla/urlsentinel/internal/models"
	"github.com/cyberzilla/urlsentinel/internal/psl"
)

// Budgets bounds the independent time allotted to each probe step.
type Budgets struct {
	DNSTimeout   time.Duration
	TLSTimeout   time.Duration
	HTTPTimeout  time.Duration
	MaxRedirects int
}

// DefaultBudgets mirrors section 6's configuration defaults.
func DefaultBudgets() Budgets {
	return Budgets{
		DNSTimeout:   1500 * time.Millisecond,
		TLSTimeout:   3000 * time.Millisecond,
		HTTPTimeout:  5000 * time.Millisecond,
		MaxRedirects: 5,
	}
}

const maxContentInspectionBytes = 256 * 1024

// Prober runs the three network steps for a single normalized URL. One
// Prober is shared across requests; its rate limiters throttle outbound
// calls per category, and it holds no per-request mutable state.
type Prober struct {
	budgets     Budgets
	suffixes    *psl.List
	dnsLimiter  *rate.Limiter
	tlsLimiter  *rate.Limiter
	httpLimiter *rate.Limiter
	resolver    *net.Resolver
	dialer      *net.Dialer
}

// New builds a Prober. suffixes is used to compare the final hop's
// registered domain against the input's for cross_domain_redirect.
func New(budgets Budgets, suffixes *psl.List) *Prober {
	return &Prober{
		budgets:     budgets,
		suffixes:    suffixes,
		dnsLimiter:  rate.NewLimiter(rate.Every(10*time.Millisecond), 20),
		tlsLimiter:  rate.NewLimiter(rate.Every(20*time.Millisecond), 16),
		httpLimiter: rate.NewLimiter(rate.Every(15*time.Millisecond), 16),
		resolver:    &net.Resolver{},
		dialer:      &net.Dialer{},
	}
}

// Probe runs all steps and always returns a NetworkObservation, partial on
// any individual step's failure. The only way Probe returns early is the
// parent context's own cancellation (the overall budget, not a per-step one).
func (p *Prober) Probe(ctx context.Context, n models.NormalizedURL) models.NetworkObservation {
	obs := models.NetworkObservation{}

	ips := p.probeDNS(ctx, n, &obs)

	if n.Scheme == "https" {
		p.probeTLS(ctx, n, &obs)
	}

	p.probeHTTP(ctx, n, &obs, ips)

	return obs
}

func (p *Prober) probeDNS(ctx context.Context, n models.NormalizedURL, obs *models.NetworkObservation) []net.IP {
	if n.IsIPLiteral {
		resolved := true
		obs.DNSResolved = &resolved
		return []net.IP{n.ResolvedIP}
	}

	if err := p.dnsLimiter.Wait(ctx); err != nil {
		return nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, p.budgets.DNSTimeout)
	defer cancel()

	addrs, err := p.resolver.LookupIPAddr(dnsCtx, n.Host)
	if err != nil || len(addrs) == 0 {
		resolved := false
		obs.DNSResolved = &resolved
		obs.DNSFlags = append(obs.DNSFlags, "nxdomain")
		return nil
	}

	resolved := true
	obs.DNSResolved = &resolved

	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}

	if len(ips) > 1 {
		obs.DNSFlags = append(obs.DNSFlags, "multiple_a")
	}
	for _, ip := range ips {
		if isPrivateOrReserved(ip) {
			obs.DNSFlags = append(obs.DNSFlags, "private_ip")
			break
		}
	}

	return ips
}

func (p *Prober) probeTLS(ctx context.Context, n models.NormalizedURL, obs *models.NetworkObservation) {
	if err := p.tlsLimiter.Wait(ctx); err != nil {
		return
	}

	tlsCtx, cancel := context.WithTimeout(ctx, p.budgets.TLSTimeout)
	defer cancel()

	addr := net.JoinHostPort(n.Host, portString(n))
	rawConn, err := p.dialer.DialContext(tlsCtx, "tcp", addr)
	if err != nil {
		return
	}
	defer rawConn.Close()

	conn := tls.Client(rawConn, &tls.Config{ServerName: n.Host})
	defer conn.Close()

	done := make(chan error, 1)
	go func() { done <- conn.Handshake() }()

	select {
	case err := <-done:
		if err != nil {
			valid := false
			obs.SSLValid = &valid
			return
		}
	case <-tlsCtx.Done():
		return
	}

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		valid := false
		obs.SSLValid = &valid
		return
	}
	leaf := state.PeerCertificates[0]

	valid := verifyHostname(&state, n.Host) == nil
	obs.SSLValid = &valid

	issuer := leaf.Issuer.CommonName
	obs.SSLIssuer = &issuer

	daysLeft := int(time.Until(leaf.NotAfter).Hours() / 24)
	obs.SSLDaysUntilExpiry = &daysLeft

	isNew := time.Since(leaf.NotBefore) < 30*24*time.Hour
	obs.SSLIsNewCert = &isNew

	grade := gradeCertificate(leaf)
	obs.SSLGrade = &grade
}

func verifyHostname(state *tls.ConnectionState, host string) error {
	if len(state.PeerCertificates) == 0 {
		return errors.New("no certificates")
	}
	return state.PeerCertificates[0].VerifyHostname(host)
}

// gradeCertificate mirrors the reference service's certificate grading
// contract (observed only through ssl_analyzer_test.go, since the
// implementation file was never retrieved): expiring within 10 days is an
// automatic "F"; otherwise RSA keys are graded by bit length and ECDSA
// keys are graded "C" regardless of curve.
func gradeCertificate(cert *x509.Certificate) string {
	if time.Until(cert.NotAfter) < 10*24*time.Hour {
		return "F"
	}
	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		bits := key.N.BitLen()
		switch {
		case bits >= 4096:
			return "A+"
		case bits >= 2048:
			return "A"
		default:
			return "C"
		}
	default:
		return "C"
	}
}

func portString(n models.NormalizedURL) string {
	if n.HasExplicitPort {
		return itoa(n.Port)
	}
	if n.Scheme == "https" {
		return "443"
	}
	return "80"
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

var metaRefreshRe = regexp.MustCompile(`(?i)<meta[^>]+http-equiv\s*=\s*["']?refresh["']?`)
var jsRedirectRe = regexp.MustCompile(`(?i)window\.location(\.href)?\s*=|document\.location\s*=`)
var formActionRe = regexp.MustCompile(`(?i)<form[^>]*action\s*=\s*["']([^"']+)["']`)
var passwordFieldRe = regexp.MustCompile(`(?i)<input[^>]+type\s*=\s*["']?password["']?`)

func (p *Prober) probeHTTP(ctx context.Context, n models.NormalizedURL, obs *models.NetworkObservation, ips []net.IP) {
	if err := p.httpLimiter.Wait(ctx); err != nil {
		return
	}

	httpCtx, cancel := context.WithTimeout(ctx, p.budgets.HTTPTimeout)
	defer cancel()

	visited := map[string]bool{}
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= p.budgets.MaxRedirects {
				return http.ErrUseLastResponse
			}
			key := req.URL.String()
			if visited[key] {
				return errors.New("redirect loop detected")
			}
			visited[key] = true
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(httpCtx, http.MethodGet, n.String(), nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", "urlsentinel-probe/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	obs.HTTPStatus = &status
	obs.RedirectCount = len(visited)
	finalURL := resp.Request.URL.String()
	obs.FinalURL = &finalURL

	if p.suffixes != nil {
		finalHost := resp.Request.URL.Hostname()
		if p.suffixes.RegisteredDomain(strings.ToLower(finalHost)) != n.RegisteredDomain {
			obs.ContentFlags = append(obs.ContentFlags, "cross_domain_redirect_candidate")
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxContentInspectionBytes))
	p.inspectContent(string(body), resp.Request.URL.Hostname(), obs)
}

func (p *Prober) inspectContent(body, pageHost string, obs *models.NetworkObservation) {
	if body == "" {
		return
	}
	if metaRefreshRe.MatchString(body) {
		obs.ContentFlags = append(obs.ContentFlags, "meta_refresh")
	}
	if jsRedirectRe.MatchString(body) {
		obs.ContentFlags = append(obs.ContentFlags, "js_redirect")
	}
	if passwordFieldRe.MatchString(body) {
		if m := formActionRe.FindStringSubmatch(body); m != nil {
			actionHost := hostOf(m[1])
			if actionHost != "" && !strings.EqualFold(actionHost, pageHost) {
				obs.ContentFlags = append(obs.ContentFlags, "login_form")
			}
		} else {
			obs.ContentFlags = append(obs.ContentFlags, "login_form")
		}
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// isPrivateOrReserved reports whether ip falls in RFC1918, CGN, loopback,
// link-local, or documented TEST-NET ranges.
func isPrivateOrReserved(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return true
	}
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	// carrier-grade NAT 100.64.0.0/10
	if v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127 {
		return true
	}
	// TEST-NET-1/2/3
	if (v4[0] == 192 && v4[1] == 0 && v4[2] == 2) ||
		(v4[0] == 198 && v4[1] == 51 && v4[2] == 100) ||
		(v4[0] == 203 && v4[1] == 0 && v4[2] == 113) {
		return true
	}
	return false
}
