package mlpredictor

import (
	"context"
	"testing"

	"github.com/cyberzilla/urlsentinel/internal/features"
	"github.com/cyberzilla/urlsentinel/internal/models"
)

func TestPredictScoreBounded(t *testing.T) {
	m, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fv := features.Extract(models.NormalizedURL{Host: "evil.tk", IsIPLiteral: true, Path: "/"})
	got, err := m.Predict(context.Background(), fv)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got.XGBScore < 0 || got.XGBScore > 1 {
		t.Errorf("xgb_score out of [0,1]: %v", got.XGBScore)
	}
	if len(got.Explanation) == 0 {
		t.Errorf("expected at least one feature contribution")
	}
}

func TestPredictMonotonicOnIPLiteral(t *testing.T) {
	m, _ := Load("")
	benign := features.Extract(models.NormalizedURL{Host: "example.com", Path: "/"})
	risky := features.Extract(models.NormalizedURL{Host: "1.2.3.4", IsIPLiteral: true, Path: "/"})

	a, _ := m.Predict(context.Background(), benign)
	b, _ := m.Predict(context.Background(), risky)
	if b.XGBScore <= a.XGBScore {
		t.Errorf("expected ip-literal host to score higher: benign=%v ip=%v", a.XGBScore, b.XGBScore)
	}
}

func TestPredictTopKCapped(t *testing.T) {
	m, _ := Load("")
	m.topK = 2
	fv := features.Extract(models.NormalizedURL{Host: "login.secure.verify.update.account.bank.paypal.tk", IsIPLiteral: false, Path: "/login"})
	got, err := m.Predict(context.Background(), fv)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(got.Explanation) > 2 {
		t.Errorf("expected at most 2 explanations, got %d", len(got.Explanation))
	}
}
