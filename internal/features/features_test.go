package features

import (
	"math"
	"testing"

	"github.com/cyberzilla/urlsentinel/internal/models"
)

func sampleURL() models.NormalizedURL {
	return models.NormalizedURL{
		Raw: "https://login.example.com/verify?next=a", Scheme: "https",
		Host: "login.example.com", Path: "/verify", Query: "next=a",
		RegisteredDomain: "example.com",
	}
}

func TestExtractIsStableLength(t *testing.T) {
	fv := Extract(sampleURL())
	if len(fv.Names) != len(Names()) {
		t.Fatalf("length mismatch: %d vs schema %d", len(fv.Names), len(Names()))
	}
	if len(fv.Names) != len(fv.Values) {
		t.Fatalf("names/values length mismatch")
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	u := sampleURL()
	a := Extract(u)
	b := Extract(u)
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("non-deterministic at %s: %v vs %v", a.Names[i], a.Values[i], b.Values[i])
		}
	}
}

func TestExtractValuesAreFinite(t *testing.T) {
	fv := Extract(sampleURL())
	for i, v := range fv.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("feature %s is non-finite: %v", fv.Names[i], v)
		}
	}
}

func TestExtractDetectsLoginToken(t *testing.T) {
	fv := Extract(sampleURL())
	v, ok := fv.Get("token_login_in_host")
	if !ok || v != 1 {
		t.Errorf("expected token_login_in_host = 1, got %v (ok=%v)", v, ok)
	}
}

func TestSchemaWidthIsApproximatelyNinetyFive(t *testing.T) {
	n := len(Names())
	if n < 90 {
		t.Errorf("expected a feature schema width close to 95, got %d", n)
	}
}

func TestExtractNoPortDefaultsToNegativeOne(t *testing.T) {
	fv := Extract(sampleURL())
	v, ok := fv.Get("port_value")
	if !ok || v != -1 {
		t.Errorf("expected port_value = -1 when no explicit port, got %v", v)
	}
}
