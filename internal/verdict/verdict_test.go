package verdict

import (
	"testing"

	"github.com/cyberzilla/urlsentinel/internal/models"
)

func TestComposeTrustDampensScore(t *testing.T) {
	url := models.NormalizedURL{Host: "example.com", Path: "/"}
	ml := models.MLDetails{XGBScore: 0.9}

	trusted := models.DomainTrust{ReputationTier: models.TierTrusted, DampeningFactor: models.TierTrusted.DampeningFactor()}
	untrusted := models.DomainTrust{ReputationTier: models.TierUntrusted, DampeningFactor: models.TierUntrusted.DampeningFactor()}

	a := Compose(url, ml, trusted, models.NetworkObservation{}, nil)
	b := Compose(url, ml, untrusted, models.NetworkObservation{}, nil)

	if a.RiskScore >= b.RiskScore {
		t.Errorf("expected trusted domain to dampen score below untrusted: trusted=%v untrusted=%v", a.RiskScore, b.RiskScore)
	}
}

func TestComposeMonotonicOnXGBScore(t *testing.T) {
	url := models.NormalizedURL{Host: "example.com", Path: "/"}
	domain := models.DomainTrust{ReputationTier: models.TierNeutral, DampeningFactor: models.TierNeutral.DampeningFactor()}

	low := Compose(url, models.MLDetails{XGBScore: 0.1}, domain, models.NetworkObservation{}, nil)
	high := Compose(url, models.MLDetails{XGBScore: 0.9}, domain, models.NetworkObservation{}, nil)

	if high.RiskScore <= low.RiskScore {
		t.Errorf("expected risk score to increase with xgb_score: low=%v high=%v", low.RiskScore, high.RiskScore)
	}
}

func TestComposeScoreBounded(t *testing.T) {
	url := models.NormalizedURL{Host: "evil.tk", Path: "/"}
	domain := models.DomainTrust{ReputationTier: models.TierUntrusted, DampeningFactor: models.TierUntrusted.DampeningFactor()}
	factors := []models.RiskFactor{
		{Code: "a", Severity: models.SeverityCritical},
		{Code: "b", Severity: models.SeverityCritical},
		{Code: "c", Severity: models.SeverityCritical},
		{Code: "d", Severity: models.SeverityHigh},
	}
	result := Compose(url, models.MLDetails{XGBScore: 1.0}, domain, models.NetworkObservation{}, factors)
	if result.RiskScore > 1.0 {
		t.Errorf("risk score exceeded 1.0: %v", result.RiskScore)
	}
	if result.Status != models.StatusDanger {
		t.Errorf("expected danger status for maximal score, got %v", result.Status)
	}
}

func TestComposeSafeStatusForLowScore(t *testing.T) {
	url := models.NormalizedURL{Host: "example.com", Path: "/"}
	domain := models.DomainTrust{ReputationTier: models.TierTrusted, DampeningFactor: models.TierTrusted.DampeningFactor()}
	result := Compose(url, models.MLDetails{XGBScore: 0.05}, domain, models.NetworkObservation{}, nil)
	if result.Status != models.StatusSafe {
		t.Errorf("expected safe status, got %v", result.Status)
	}
}

func TestComposeCriticalFactorForcesDangerRegardlessOfScore(t *testing.T) {
	url := models.NormalizedURL{Host: "example.com", Path: "/"}
	domain := models.DomainTrust{ReputationTier: models.TierTrusted, DampeningFactor: models.TierTrusted.DampeningFactor()}
	factors := []models.RiskFactor{{Code: "dangerous_file_extension", Severity: models.SeverityCritical}}

	result := Compose(url, models.MLDetails{XGBScore: 0.0}, domain, models.NetworkObservation{}, factors)
	if result.Status != models.StatusDanger {
		t.Errorf("expected danger status on a critical factor alone, got %v (score=%v)", result.Status, result.RiskScore)
	}
}

func TestComposeUntrustedWithHighFactorForcesDanger(t *testing.T) {
	url := models.NormalizedURL{Host: "evil.tk", Path: "/"}
	domain := models.DomainTrust{ReputationTier: models.TierUntrusted, DampeningFactor: models.TierUntrusted.DampeningFactor()}
	factors := []models.RiskFactor{{Code: "login_on_nondomain", Severity: models.SeverityHigh}}

	result := Compose(url, models.MLDetails{XGBScore: 0.0}, domain, models.NetworkObservation{}, factors)
	if result.Status != models.StatusDanger {
		t.Errorf("expected danger status for untrusted tier with a high factor, got %v (score=%v)", result.Status, result.RiskScore)
	}
}

func TestComposeHighFactorForcesSuspicious(t *testing.T) {
	url := models.NormalizedURL{Host: "example.com", Path: "/"}
	domain := models.DomainTrust{ReputationTier: models.TierNeutral, DampeningFactor: models.TierNeutral.DampeningFactor()}
	factors := []models.RiskFactor{{Code: "new_domain", Severity: models.SeverityHigh}}

	result := Compose(url, models.MLDetails{XGBScore: 0.0}, domain, models.NetworkObservation{}, factors)
	if result.Status != models.StatusSuspicious {
		t.Errorf("expected suspicious status for a high factor alone, got %v (score=%v)", result.Status, result.RiskScore)
	}
}

func TestComposeUntrustedTierAloneForcesSuspicious(t *testing.T) {
	url := models.NormalizedURL{Host: "evil.tk", Path: "/"}
	domain := models.DomainTrust{ReputationTier: models.TierUntrusted, DampeningFactor: models.TierUntrusted.DampeningFactor()}

	result := Compose(url, models.MLDetails{XGBScore: 0.0}, domain, models.NetworkObservation{}, nil)
	if result.Status != models.StatusSuspicious {
		t.Errorf("expected suspicious status for untrusted tier alone, got %v (score=%v)", result.Status, result.RiskScore)
	}
}

func TestTimedOutIsSuspiciousWithFixedScore(t *testing.T) {
	r := TimedOut()
	if r.Status != models.StatusSuspicious {
		t.Errorf("expected suspicious status on timeout, got %v", r.Status)
	}
	if r.RiskScore != 0.5 {
		t.Errorf("expected fixed 0.5 risk score on timeout, got %v", r.RiskScore)
	}
}
