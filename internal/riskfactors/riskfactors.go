// Package riskfactors implements the Risk Factor rule registry (C6): a
// fixed set of pure functions, each inspecting the normalized URL, its
// network observation, domain trust, and ML details, and emitting zero or
// one coded RiskFactor. Grounded on the reference service's
// domain_analyzer.go (suspicious-path/brand-impersonation tables) and
// content_analyzer.go (dangerous-extension and redirect-parameter lists),
// restructured into an evidenced RiskFactor shape.
package riskfactors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cyberzilla/urlsentinel/internal/models"
)

// rule is a single registered check. Order defines tie-breaking when two
// factors share a severity.
type rule struct {
	code string
	eval func(in Input) *models.RiskFactor
}

// Input bundles every signal a rule may need to evaluate.
type Input struct {
	URL     models.NormalizedURL
	Network models.NetworkObservation
	Domain  models.DomainTrust
	ML      models.MLDetails
}

var registry = []rule{
	{"ip_literal_url", ruleIPLiteral},
	{"punycode_mixed_script", rulePunycode},
	{"suspicious_tld", ruleSuspiciousTLD},
	{"nonstandard_port", ruleNonstandardPort},
	{"recent_cert", ruleRecentCert},
	{"invalid_ssl", ruleInvalidSSL},
	{"many_redirects", ruleManyRedirects},
	{"cross_domain_redirect", ruleCrossDomainRedirect},
	{"login_on_nondomain", ruleLoginOnNondomain},
	{"new_domain", ruleNewDomain},
	{"ml_high_risk", ruleMLHighRisk},
	{"brand_impersonation_label", ruleBrandImpersonation},
	{"suspicious_path_pattern", ruleSuspiciousPath},
	{"dangerous_file_extension", ruleDangerousExtension},
}

// Evaluate runs every registered rule and returns the non-nil results,
// sorted by descending severity, then by registration order.
func Evaluate(in Input) []models.RiskFactor {
	type scored struct {
		factor models.RiskFactor
		order  int
	}
	var hits []scored
	for i, r := range registry {
		if f := r.eval(in); f != nil {
			hits = append(hits, scored{factor: *f, order: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].factor.Severity.Rank() != hits[j].factor.Severity.Rank() {
			return hits[i].factor.Severity.Rank() > hits[j].factor.Severity.Rank()
		}
		return hits[i].order < hits[j].order
	})
	out := make([]models.RiskFactor, len(hits))
	for i, h := range hits {
		out[i] = h.factor
	}
	return out
}

func evidence(format string, args ...any) *string {
	s := fmt.Sprintf(format, args...)
	return &s
}

func ruleIPLiteral(in Input) *models.RiskFactor {
	if !in.URL.IsIPLiteral {
		return nil
	}
	return &models.RiskFactor{
		Code:     "ip_literal_url",
		Message:  "URL targets a raw IP address rather than a domain name",
		Severity: models.SeverityHigh,
		Evidence: evidence("host=%s", in.URL.Host),
	}
}

func rulePunycode(in Input) *models.RiskFactor {
	if !in.URL.IsPunycode {
		return nil
	}
	return &models.RiskFactor{
		Code:     "punycode_mixed_script",
		Message:  "Hostname uses punycode or mixes scripts, consistent with homograph spoofing",
		Severity: models.SeverityCritical,
		Evidence: evidence("host=%s", in.URL.Host),
	}
}

var highAbuseTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"xyz": true, "top": true, "club": true, "win": true, "bid": true,
}

func ruleSuspiciousTLD(in Input) *models.RiskFactor {
	labels := strings.Split(in.URL.Host, ".")
	if len(labels) < 2 {
		return nil
	}
	tld := labels[len(labels)-1]
	if !highAbuseTLDs[tld] {
		return nil
	}
	return &models.RiskFactor{
		Code:     "suspicious_tld",
		Message:  "Top-level domain is frequently associated with abusive registrations",
		Severity: models.SeverityMedium,
		Evidence: evidence("tld=.%s", tld),
	}
}

func ruleNonstandardPort(in Input) *models.RiskFactor {
	if !in.URL.HasExplicitPort {
		return nil
	}
	if in.URL.Port == 80 || in.URL.Port == 443 {
		return nil
	}
	return &models.RiskFactor{
		Code:     "nonstandard_port",
		Message:  "URL specifies a non-standard port",
		Severity: models.SeverityLow,
		Evidence: evidence("port=%d", in.URL.Port),
	}
}

func ruleRecentCert(in Input) *models.RiskFactor {
	if in.Network.SSLIsNewCert == nil || !*in.Network.SSLIsNewCert {
		return nil
	}
	return &models.RiskFactor{
		Code:     "recent_cert",
		Message:  "TLS certificate was issued within the last 30 days",
		Severity: models.SeverityMedium,
		Evidence: nil,
	}
}

func ruleInvalidSSL(in Input) *models.RiskFactor {
	if in.URL.Scheme != "https" {
		return nil
	}
	if in.Network.SSLValid == nil || *in.Network.SSLValid {
		return nil
	}
	return &models.RiskFactor{
		Code:     "invalid_ssl",
		Message:  "TLS handshake failed or certificate does not match the hostname",
		Severity: models.SeverityHigh,
	}
}

func ruleManyRedirects(in Input) *models.RiskFactor {
	if in.Network.RedirectCount <= 3 {
		return nil
	}
	return &models.RiskFactor{
		Code:     "many_redirects",
		Message:  "Request followed an unusually long redirect chain",
		Severity: models.SeverityMedium,
		Evidence: evidence("redirect_count=%d", in.Network.RedirectCount),
	}
}

func ruleCrossDomainRedirect(in Input) *models.RiskFactor {
	for _, f := range in.Network.ContentFlags {
		if f == "cross_domain_redirect_candidate" {
			return &models.RiskFactor{
				Code:     "cross_domain_redirect",
				Message:  "Final redirect destination is on a different registered domain",
				Severity: models.SeverityMedium,
				Evidence: in.Network.FinalURL,
			}
		}
	}
	return nil
}

func ruleLoginOnNondomain(in Input) *models.RiskFactor {
	for _, f := range in.Network.ContentFlags {
		if f == "login_form" {
			tier := in.Domain.ReputationTier
			if tier == models.TierTrusted {
				return nil
			}
			return &models.RiskFactor{
				Code:     "login_on_nondomain",
				Message:  "Page presents a login form posting to an external or unverified domain",
				Severity: models.SeverityHigh,
			}
		}
	}
	return nil
}

func ruleNewDomain(in Input) *models.RiskFactor {
	if in.Domain.AgeDays == nil || *in.Domain.AgeDays >= 30 {
		return nil
	}
	return &models.RiskFactor{
		Code:     "new_domain",
		Message:  "Domain was registered fewer than 30 days ago",
		Severity: models.SeverityHigh,
		Evidence: evidence("age_days=%d", *in.Domain.AgeDays),
	}
}

func ruleMLHighRisk(in Input) *models.RiskFactor {
	if in.ML.XGBScore < 0.7 {
		return nil
	}
	return &models.RiskFactor{
		Code:     "ml_high_risk",
		Message:  "Model assigns a high phishing-likelihood score",
		Severity: models.SeverityHigh,
		Evidence: evidence("xgb_score=%.2f", in.ML.XGBScore),
	}
}

var impersonatedBrands = []string{
	"google", "facebook", "amazon", "apple", "microsoft", "paypal",
	"netflix", "twitter", "instagram", "whatsapp", "bank", "chase",
	"wellsfargo", "citi",
}

func ruleBrandImpersonation(in Input) *models.RiskFactor {
	if in.Domain.ReputationTier == models.TierTrusted {
		return nil
	}
	host := strings.ToLower(in.URL.Host)
	for _, brand := range impersonatedBrands {
		if strings.Contains(host, brand) && !strings.HasPrefix(host, brand+".") {
			return &models.RiskFactor{
				Code:     "brand_impersonation_label",
				Message:  "Hostname contains a well-known brand name outside its own domain",
				Severity: models.SeverityHigh,
				Evidence: evidence("brand=%s host=%s", brand, in.URL.Host),
			}
		}
	}
	return nil
}

var suspiciousPathTokens = []string{"/login", "/admin", "/wp-admin", "/cgi-bin", ".php"}

func ruleSuspiciousPath(in Input) *models.RiskFactor {
	pathLower := strings.ToLower(in.URL.Path)
	for _, tok := range suspiciousPathTokens {
		if strings.Contains(pathLower, tok) {
			return &models.RiskFactor{
				Code:     "suspicious_path_pattern",
				Message:  "URL path matches a pattern commonly used in credential-harvesting pages",
				Severity: models.SeverityLow,
				Evidence: evidence("path=%s", in.URL.Path),
			}
		}
	}
	return nil
}

var dangerousExtensions = []string{
	".exe", ".msi", ".bat", ".cmd", ".ps1", ".vbs", ".js", ".jar",
	".scr", ".pif", ".com", ".hta", ".wsf", ".sh",
}

func ruleDangerousExtension(in Input) *models.RiskFactor {
	pathLower := strings.ToLower(in.URL.Path)
	for _, ext := range dangerousExtensions {
		if strings.HasSuffix(pathLower, ext) {
			return &models.RiskFactor{
				Code:     "dangerous_file_extension",
				Message:  "URL path ends in an executable or script file extension",
				Severity: models.SeverityCritical,
				Evidence: evidence("extension=%s", ext),
			}
		}
	}
	return nil
}
