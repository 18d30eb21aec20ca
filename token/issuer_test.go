package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Secret:        []byte("test-secret-at-least-32-bytes-long!!"),
		SigningMethod: MethodHS256,
		TTL:           time.Hour,
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tok, err := issuer.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok == "" {
		t.Fatal("Issue returned empty token")
	}

	email, err := issuer.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if email != "user@example.com" {
		t.Fatalf("Verify subject = %q, want user@example.com", email)
	}
}

func TestVerifyExpired(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = time.Nanosecond
	issuer, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tok, err := issuer.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := issuer.Verify(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("Verify err = %v, want ErrExpired", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	issuer, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tok, err := issuer.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := tok[:len(tok)-4] + "AAAA"
	if _, err := issuer.Verify(tampered); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Verify(tampered) err = %v, want ErrInvalid", err)
	}

	if _, err := issuer.Verify("not-a-jwt"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Verify(garbage) err = %v, want ErrInvalid", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	issuer, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	other, err := New(Config{
		Secret: []byte("a-completely-different-signing-key!!"),
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tok, err := issuer.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := other.Verify(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Verify with wrong key err = %v, want ErrInvalid", err)
	}
}

func TestVerifyIssuerMismatch(t *testing.T) {
	cfgA := testConfig()
	cfgA.Issuer = "service-a"
	a, err := New(cfgA)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cfgB := testConfig()
	cfgB.Issuer = "service-b"
	b, err := New(cfgB)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tok, err := a.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := b.Verify(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Verify with issuer mismatch err = %v, want ErrInvalid", err)
	}
}

func TestTokensCarryUniqueIDs(t *testing.T) {
	issuer, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, err := issuer.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	b, err := issuer.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if a == b {
		t.Fatal("two tokens for the same subject were identical")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty secret", func(c *Config) { c.Secret = nil }},
		{"zero TTL", func(c *Config) { c.TTL = 0 }},
		{"negative TTL", func(c *Config) { c.TTL = -time.Hour }},
		{"asymmetric method", func(c *Config) { c.SigningMethod = "ed25519" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("New accepted invalid config")
			}
		})
	}
}

func TestMethodCaseInsensitive(t *testing.T) {
	cfg := testConfig()
	cfg.SigningMethod = SigningMethod(strings.ToUpper(string(MethodHS512)))
	if _, err := New(cfg); err != nil {
		t.Fatalf("New rejected upper-case method name: %v", err)
	}
}
