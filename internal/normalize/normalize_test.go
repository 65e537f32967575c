package normalize

import (
	"errors"
	"testing"

	"github.com/cyberzilla/urlsentinel/internal/apierrors"
)

func TestNormalizeAddsDefaultScheme(t *testing.T) {
	n := New(nil)
	got, err := n.Normalize("example.com/path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Scheme != "https" {
		t.Errorf("scheme = %q, want https", got.Scheme)
	}
	if got.Host != "example.com" {
		t.Errorf("host = %q, want example.com", got.Host)
	}
	if got.RegisteredDomain != "example.com" {
		t.Errorf("registered domain = %q, want example.com", got.RegisteredDomain)
	}
}

func TestNormalizeStripsDefaultPort(t *testing.T) {
	n := New(nil)
	got, err := n.Normalize("https://example.com:443/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.HasExplicitPort {
		t.Errorf("expected default port 443 to be stripped")
	}
}

func TestNormalizeKeepsNonstandardPort(t *testing.T) {
	n := New(nil)
	got, err := n.Normalize("https://example.com:8443/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.HasExplicitPort || got.Port != 8443 {
		t.Errorf("expected explicit port 8443, got %+v", got)
	}
}

func TestNormalizeRejectsUnsupportedScheme(t *testing.T) {
	n := New(nil)
	_, err := n.Normalize("ftp://example.com/")
	if !errors.Is(err, apierrors.ErrUnsupportedScheme) {
		t.Errorf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestNormalizeDetectsIPLiteral(t *testing.T) {
	n := New(nil)
	got, err := n.Normalize("http://185.23.14.9/login")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsIPLiteral {
		t.Errorf("expected is_ip_literal = true")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := New(nil)
	first, err := n.Normalize("HTTPS://Example.COM:443/Path?a=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := n.Normalize(first.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.String() != second.String() {
		t.Errorf("normalize not idempotent: %q != %q", first.String(), second.String())
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	n := New(nil)
	_, err := n.Normalize("   ")
	if !errors.Is(err, apierrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
