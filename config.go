package wordgate

import (
	"errors"
	"time"

	"github.com/wordgate/wordgate/token"
	"github.com/wordgate/wordgate/wordlist"
)

// Config is the full engine configuration. Instances are cloned at Build
// time and treated as immutable afterwards.
type Config struct {
	Code      CodeConfig
	RateLimit RateLimitConfig
	Token     TokenConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
CODE CONFIG
====================================
*/

// CodeConfig controls verification-code generation and lifecycle.
type CodeConfig struct {
	// WordCount is the default number of wordlist words per code, 1..12.
	WordCount int
	// Language selects the wordlist table.
	Language wordlist.Language
	// Separator joins the words of a code.
	Separator string
	// TTL is how long a saved code stays redeemable.
	TTL time.Duration
	// MaxAttempts is the failed-redemption ceiling before lockout.
	MaxAttempts int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls the per-identity code-request cooldown.
// One fixed window per identity, re-armed on the first allowed request
// after expiry.
type RateLimitConfig struct {
	Window time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the session tokens issued after redemption.
type TokenConfig struct {
	Secret        []byte
	SigningMethod token.SigningMethod // "hs256" (default), "hs384", "hs512"
	TTL           time.Duration
	Issuer        string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the observability event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics block.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig mirrors the defaults of a small deployment: two English
// words per code, ten-minute codes, three attempts, one request per minute,
// seven-day tokens. The token secret has no default and must be provided.
func DefaultConfig() Config {
	return Config{
		Code: CodeConfig{
			WordCount:   2,
			Language:    wordlist.English,
			Separator:   " ",
			TTL:         10 * time.Minute,
			MaxAttempts: 3,
		},
		RateLimit: RateLimitConfig{
			Window: time.Minute,
		},
		Token: TokenConfig{
			SigningMethod: token.MethodHS256,
			TTL:           7 * 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks cross-field constraints. Token key material is validated
// separately by the token issuer at Build time.
func (c *Config) Validate() error {
	if c.Code.WordCount < wordlist.MinWords || c.Code.WordCount > wordlist.MaxWords {
		return errors.New("Code.WordCount out of range")
	}
	if c.Code.Separator == "" {
		return errors.New("Code.Separator required")
	}
	if c.Code.TTL < time.Minute {
		return errors.New("Code.TTL must be at least one minute")
	}
	if c.Code.MaxAttempts < 1 {
		return errors.New("Code.MaxAttempts must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit.Window must be positive")
	}
	if c.Token.TTL <= 0 {
		return errors.New("Token.TTL must be positive")
	}
	if len(c.Token.Secret) == 0 {
		return errors.New("Token.Secret required")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
