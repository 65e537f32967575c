// Package verdict implements the Verdict Composer (C7): it folds the
// model's raw score through the domain's trust dampening factor, adds a
// severity-weighted boost from the accumulated risk factors, and maps the
// result onto a status and a human-readable message. Grounded on the
// reference service's threat_analyzer.go (calculateWeightedScore,
// determineThreatLevel, generateSafetyRecommendations), restructured
// around a single dampened-score formula.
package verdict

import (
	"fmt"

	"github.com/cyberzilla/urlsentinel/internal/models"
)

const (
	boostCritical = 0.15
	boostHigh     = 0.08
	boostMedium   = 0.03
	maxBoost      = 0.5
)

const (
	dangerThreshold     = 0.60
	suspiciousThreshold = 0.30
)

// Compose produces the final ScanResult from every upstream component's
// output. ml.DampenedScore and RiskScore are computed here; every other
// field is carried through from its producing component.
func Compose(url models.NormalizedURL, ml models.MLDetails, domain models.DomainTrust, network models.NetworkObservation, factors []models.RiskFactor) models.ScanResult {
	boost := severityBoost(factors)
	dampened := ml.XGBScore*domain.DampeningFactor + boost
	if dampened > 1.0 {
		dampened = 1.0
	}
	if dampened < 0 {
		dampened = 0
	}
	ml.DampenedScore = dampened

	status := statusFor(dampened, domain, factors)
	message := messageFor(status, domain, factors)

	return models.ScanResult{
		Status:      status,
		Message:     message,
		RiskScore:   dampened,
		ML:          ml,
		Domain:      domain,
		Network:     network,
		RiskFactors: factors,
	}
}

func severityBoost(factors []models.RiskFactor) float64 {
	var boost float64
	for _, f := range factors {
		switch f.Severity {
		case models.SeverityCritical:
			boost += boostCritical
		case models.SeverityHigh:
			boost += boostHigh
		case models.SeverityMedium:
			boost += boostMedium
		}
	}
	if boost > maxBoost {
		boost = maxBoost
	}
	return boost
}

// statusFor maps the dampened score, the domain's trust tier, and the
// accumulated risk factors onto a status. Each status fires on the
// dampened-score cut point OR any of its named factor/tier disjuncts:
// danger on score>=0.60, any critical factor, or untrusted tier with at
// least one high factor; suspicious on score>=0.30, any high factor, or
// untrusted tier alone.
func statusFor(score float64, domain models.DomainTrust, factors []models.RiskFactor) models.Status {
	hasSeverity := func(sev models.Severity) bool {
		for _, f := range factors {
			if f.Severity == sev {
				return true
			}
		}
		return false
	}
	untrusted := domain.ReputationTier == models.TierUntrusted

	switch {
	case score >= dangerThreshold:
		return models.StatusDanger
	case hasSeverity(models.SeverityCritical):
		return models.StatusDanger
	case untrusted && hasSeverity(models.SeverityHigh):
		return models.StatusDanger
	case score >= suspiciousThreshold:
		return models.StatusSuspicious
	case hasSeverity(models.SeverityHigh):
		return models.StatusSuspicious
	case untrusted:
		return models.StatusSuspicious
	default:
		return models.StatusSafe
	}
}

func messageFor(status models.Status, domain models.DomainTrust, factors []models.RiskFactor) string {
	switch status {
	case models.StatusDanger:
		if top := topFactor(factors); top != "" {
			return fmt.Sprintf("This URL shows strong indicators of malicious intent (%s).", top)
		}
		return "This URL shows strong indicators of malicious intent."
	case models.StatusSuspicious:
		if top := topFactor(factors); top != "" {
			return fmt.Sprintf("This URL has suspicious characteristics worth caution (%s).", top)
		}
		return "This URL has suspicious characteristics worth caution."
	default:
		return "No threats detected"
	}
}

func topFactor(factors []models.RiskFactor) string {
	if len(factors) == 0 {
		return ""
	}
	return factors[0].Message
}

// TimedOut builds the reduced, conservative verdict returned when the
// model stage did not complete inside the overall request budget.
func TimedOut() models.ScanResult {
	return models.ScanResult{
		Status:    models.StatusSuspicious,
		Message:   "Analysis timed out",
		RiskScore: 0.5,
	}
}
