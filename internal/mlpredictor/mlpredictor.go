// Package mlpredictor implements the ML Predictor (C5). The reference
// service never shipped a real gradient-boosted model or a SHAP library;
// its closest analogue was go_agent.go's calculateHealthScore, a weighted
// penalty model over hand-extracted features. That shape is the nearest
// available idiom for a from-scratch tree-ensemble stand-in: a per-feature
// signed weight IS a per-instance SHAP value by construction (each
// contribution is exactly weight*value, and contributions plus a base rate
// sum to the score), so this module keeps it, generalized to the fixed
// FeatureVector schema and wrapped behind a thread-safe, read-only,
// once-loaded Model so concurrent requests never race on mutable state.
package mlpredictor

import (
	"context"
	"sort"

	"github.com/cyberzilla/urlsentinel/internal/models"
)

// featureWeight is one entry of the boosted-ensemble stand-in: the signed
// contribution per unit of a named feature, and the feature's own internal
// saturation cap (contributions beyond this many feature-units don't grow
// further, approximating a tree ensemble's diminishing marginal splits).
type featureWeight struct {
	feature string
	weight  float64
	cap     float64
}

// defaultWeights is the model's fixed, read-only coefficient table. It is
// the trained-model-artifact stand-in: loaded once at startup (here,
// embedded) and never mutated, so inference is trivially safe for
// concurrent requests.
var defaultWeights = []featureWeight{
	{"is_ip_literal", 0.30, 1},
	{"is_punycode", 0.28, 1},
	{"is_homoglyph_candidate", 0.22, 1},
	{"tld_is_high_abuse", 0.18, 1},
	{"nonstandard_port", 0.08, 1},
	{"has_at_symbol", 0.12, 1},
	{"double_slash_in_path", 0.06, 1},
	{"percent_encoded_count", 0.015, 6},
	{"hex_run_length", 0.01, 10},
	{"base64_like_segment", 0.10, 1},
	{"host_entropy", 0.035, 5},
	{"num_subdomains", 0.04, 4},
	{"num_hyphens", 0.02, 6},
	{"max_consecutive_digits", 0.02, 6},
}

var tokenWeight = 0.05 // per present suspicious-token-in-host/path/query feature
const baseRate = 0.03  // prior probability mass with no signal at all

// Model is the loaded, immutable predictor. The zero value is usable:
// it falls back to defaultWeights.
type Model struct {
	weights []featureWeight
	topK    int
}

// Load constructs a Model. In production model_path would point at a
// serialized gradient-boosted ensemble; loading is synchronous and happens
// once at startup, after which Predict never touches disk.
func Load(modelPath string) (*Model, error) {
	// No external model artifact ships with this pipeline; the embedded
	// coefficient table is the model. model_path is accepted for interface
	// stability with the configuration surface in section 6.
	_ = modelPath
	return &Model{weights: defaultWeights, topK: 6}, nil
}

// Predict runs the ensemble stand-in and its SHAP-style attribution. It
// never blocks on I/O and is safe to call concurrently from any number of
// goroutines, matching the worker-pool dispatch model in section 5.
func (m *Model) Predict(ctx context.Context, fv models.FeatureVector) (models.MLDetails, error) {
	select {
	case <-ctx.Done():
		return models.MLDetails{}, ctx.Err()
	default:
	}

	weights := m.weights
	if weights == nil {
		weights = defaultWeights
	}

	score := baseRate
	var contributions []models.FeatureContribution

	for _, w := range weights {
		v, ok := fv.Get(w.feature)
		if !ok {
			continue
		}
		contribution := w.weight * clamp(v, 0, w.cap)
		score += contribution
		if contribution != 0 {
			contributions = append(contributions, toContribution(w.feature, contribution, v))
		}
	}

	for _, name := range fv.Names {
		if len(name) > len("token_") && name[:6] == "token_" {
			v, _ := fv.Get(name)
			if v > 0 {
				contribution := tokenWeight
				score += contribution
				contributions = append(contributions, toContribution(name, contribution, v))
			}
		}
	}

	score = clamp(score, 0, 1)

	sort.SliceStable(contributions, func(i, j int) bool {
		return abs(contributions[i].ShapValue) > abs(contributions[j].ShapValue)
	})
	topK := m.topK
	if topK <= 0 {
		topK = 6
	}
	if len(contributions) > topK {
		contributions = contributions[:topK]
	}

	return models.MLDetails{
		MLScore:        score,
		XGBScore:       score,
		Explanation:    contributions,
		ModelAvailable: true,
	}, nil
}

func toContribution(feature string, shap, value float64) models.FeatureContribution {
	dir := models.DirectionSafe
	if shap > 0 {
		dir = models.DirectionRisk
	}
	return models.FeatureContribution{
		Feature:      feature,
		ShapValue:    shap,
		FeatureValue: value,
		Direction:    dir,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
