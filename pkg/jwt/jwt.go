package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated is returned when no bearer credential was presented.
	ErrUnauthenticated = errors.New("missing bearer token")
	// ErrTokenExpired is returned for an otherwise well-formed token past its exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers bad signatures, wrong issuers and malformed tokens.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims are the identity assertions we rely on. Email and EmailVerified are
// nil when the upstream token does not carry them.
type Claims struct {
	Subject       string
	Email         *string
	EmailVerified *bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// VerifiedEmail returns the email only if the token asserts it is verified.
func (c *Claims) VerifiedEmail() (string, bool) {
	if c.Email == nil || c.EmailVerified == nil || !*c.EmailVerified {
		return "", false
	}
	email := strings.TrimSpace(*c.Email)
	return email, email != ""
}

// tokenClaims is the wire form of an identity-provider session token.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email         *string   `json:"email,omitempty"`
	EmailVerified *flexBool `json:"email_verified,omitempty"`
}

// flexBool accepts true/false as well as "true"/"false"; providers disagree.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("email_verified: %w", err)
	}
	switch strings.ToLower(s) {
	case "true":
		*b = true
	case "false":
		*b = false
	default:
		return fmt.Errorf("email_verified: unexpected value %q", s)
	}
	return nil
}

// KeyProvider resolves a signing key by its key id.
type KeyProvider interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Verifier validates RS256 tokens issued by a single external issuer.
// Audience is not checked.
type Verifier struct {
	issuer string
	keys   KeyProvider
	parser *jwt.Parser
}

func NewVerifier(issuer string, keys KeyProvider, leeway time.Duration) *Verifier {
	return &Verifier{
		issuer: issuer,
		keys:   keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
		),
	}
}

// Verify parses and validates a token string, returning its claims.
// Errors wrap ErrTokenExpired or ErrTokenInvalid; the wrapped cause is for logs only.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, ErrUnauthenticated
	}

	wire := &tokenClaims{}
	token, err := v.parser.ParseWithClaims(tokenStr, wire, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("kid header not found")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if wire.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	}

	claims := &Claims{
		Subject: wire.Subject,
		Email:   wire.Email,
	}
	if wire.EmailVerified != nil {
		verified := bool(*wire.EmailVerified)
		claims.EmailVerified = &verified
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	if wire.ExpiresAt != nil {
		claims.ExpiresAt = wire.ExpiresAt.Time
	}
	return claims, nil
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}
