// Package models holds the data types shared across the URL analysis pipeline.
package models

import "net"

// NormalizedURL is the immutable output of the URL Normalizer (C1).
type NormalizedURL struct {
	Raw               string
	Scheme            string
	Host              string
	Port              int
	HasExplicitPort   bool
	Path              string
	Query             string
	Fragment          string
	RegisteredDomain  string
	IsIPLiteral       bool
	IsPunycode        bool
	ResolvedIP        net.IP
}

// String reconstructs the canonical form of the normalized URL, used as the
// cache key and as the target for network probing.
func (n NormalizedURL) String() string {
	u := n.Scheme + "://" + n.Host
	if n.HasExplicitPort {
		u += ":" + itoa(n.Port)
	}
	if n.Path == "" {
		u += "/"
	} else {
		u += n.Path
	}
	if n.Query != "" {
		u += "?" + n.Query
	}
	return u
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// FeatureVector is the fixed-width numeric feature set produced by C2 and
// consumed by C5. Names and Values are parallel slices of equal length.
type FeatureVector struct {
	Names  []string
	Values []float64
}

// Get returns the value for a feature name, and whether it was present.
func (fv FeatureVector) Get(name string) (float64, bool) {
	for i, n := range fv.Names {
		if n == name {
			return fv.Values[i], true
		}
	}
	return 0, false
}

// NetworkObservation is the output of C3. Every field is a pointer/slice so
// that an incomplete probe (timeout, DNS failure, TLS error) can leave a
// field absent rather than reporting a misleading zero value.
type NetworkObservation struct {
	DNSResolved        *bool
	DNSTTL             *int
	DNSFlags           []string
	SSLValid           *bool
	SSLIssuer          *string
	SSLDaysUntilExpiry *int
	SSLIsNewCert       *bool
	SSLGrade           *string
	HTTPStatus         *int
	RedirectCount      int
	FinalURL           *string
	ContentFlags       []string
}

// ReputationTier is the ordinal classification of a domain's trust.
type ReputationTier string

const (
	TierTrusted   ReputationTier = "trusted"
	TierModerate  ReputationTier = "moderate"
	TierNeutral   ReputationTier = "neutral"
	TierUntrusted ReputationTier = "untrusted"
	TierUnknown   ReputationTier = "unknown"
)

// DampeningFactor returns the fixed, monotonic multiplicative weight for a tier.
func (t ReputationTier) DampeningFactor() float64 {
	switch t {
	case TierTrusted:
		return 0.2
	case TierModerate:
		return 0.5
	case TierNeutral:
		return 0.7
	case TierUnknown:
		return 0.85
	case TierUntrusted:
		return 1.0
	default:
		return 0.85
	}
}

// DomainTrust is the output of C4.
type DomainTrust struct {
	RegisteredDomain  string
	FullDomain        string
	ReputationTier    ReputationTier
	DampeningFactor   float64
	TrustDescription  *string
	AgeDays           *int
	Registrar         *string
}

// Direction of a feature's contribution to the model output.
type Direction string

const (
	DirectionRisk Direction = "risk"
	DirectionSafe Direction = "safe"
)

// FeatureContribution is one entry of C5's SHAP-style attribution.
type FeatureContribution struct {
	Feature      string
	ShapValue    float64
	FeatureValue float64
	Direction    Direction
}

// MLDetails is the output of C5, later enriched with DampenedScore by C7.
type MLDetails struct {
	MLScore        float64
	XGBScore       float64
	DampenedScore  float64
	Explanation    []FeatureContribution
	ModelAvailable bool
}

// Severity of a RiskFactor, ordered low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Rank exposes the severity's ordinal weight for sorting.
func (s Severity) Rank() int { return s.rank() }

// RiskFactor is one coded, evidenced reason contributing to the verdict (C6).
type RiskFactor struct {
	Code     string
	Message  string
	Severity Severity
	Evidence *string
}

// Status is the final verdict classification.
type Status string

const (
	StatusSafe       Status = "safe"
	StatusSuspicious Status = "suspicious"
	StatusDanger     Status = "danger"
)

// ScanResult is the final output of the pipeline (C7), returned to callers.
type ScanResult struct {
	Status      Status
	Message     string
	RiskScore   float64
	ML          MLDetails
	Domain      DomainTrust
	Network     NetworkObservation
	RiskFactors []RiskFactor
	AnalysisMS  *int64
}
