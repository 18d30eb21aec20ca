package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod names the HMAC algorithm used to sign session tokens.
type SigningMethod string

const (
	// MethodHS256 is an exported signing method constant.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 is an exported signing method constant.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 is an exported signing method constant.
	MethodHS512 SigningMethod = "hs512"
)

var (
	// ErrExpired is returned by Verify when the token's exp claim has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned by Verify for signature or structural failures.
	ErrInvalid = errors.New("token invalid")
)

// Config holds Issuer construction parameters. Key and algorithm are
// configuration, not logic: an Issuer never changes them after New.
type Config struct {
	Secret        []byte
	SigningMethod SigningMethod
	TTL           time.Duration
	Issuer        string
}

// Issuer signs and verifies session tokens. Safe for concurrent use.
type Issuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
}

// New validates cfg and returns an Issuer. The secret must be non-empty and
// the TTL positive.
func New(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token signing secret required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}

	var method jwt.SigningMethod
	switch SigningMethod(strings.ToLower(string(cfg.SigningMethod))) {
	case MethodHS256, "":
		method = jwt.SigningMethodHS256
	case MethodHS384:
		method = jwt.SigningMethodHS384
	case MethodHS512:
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.New("unsupported token signing method")
	}

	return &Issuer{
		secret: cfg.Secret,
		method: method,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
	}, nil
}

// Issue signs a token with subject=email, expiring TTL from now.
func (i *Issuer) Issue(email string) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		ID:        uuid.NewString(),
	}
	if i.issuer != "" {
		claims.Issuer = i.issuer
	}

	return jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
}

// Verify checks signature and expiry and returns the subject email.
// It never consults any store.
func (i *Issuer) Verify(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
	)

	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}

	if claims.Subject == "" {
		return "", ErrInvalid
	}
	if i.issuer != "" && claims.Issuer != i.issuer {
		return "", ErrInvalid
	}

	return claims.Subject, nil
}

// TTL reports the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
