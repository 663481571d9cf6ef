package invoice

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrGrantInvalid indicates the grant failed signature or claims
	// validation.
	ErrGrantInvalid = errors.New("download grant is invalid")
	// ErrGrantExpired indicates the grant's validity window has passed.
	ErrGrantExpired = errors.New("download grant is expired")
)

// grantClaims is the internal claims type used for JWT parsing.
type grantClaims struct {
	jwt.RegisteredClaims
	InvoiceNumber string `json:"invoice_number"`
}

// GrantIssuer signs download grants for rendered invoices.
type GrantIssuer struct {
	issuer   string
	audience string
	key      ed25519.PrivateKey
	ttl      time.Duration
	now      func() time.Time
}

// NewGrantIssuer builds a grant issuer. TTL defaults to 72 hours.
func NewGrantIssuer(issuer, audience string, key ed25519.PrivateKey, ttl time.Duration, now func() time.Time) (*GrantIssuer, error) {
	if strings.TrimSpace(issuer) == "" || strings.TrimSpace(audience) == "" {
		return nil, fmt.Errorf("grant issuer and audience are required")
	}
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("grant key must be %d bytes", ed25519.PrivateKeySize)
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &GrantIssuer{issuer: issuer, audience: audience, key: key, ttl: ttl, now: now}, nil
}

// Issue signs a grant for one invoice number.
func (g *GrantIssuer) Issue(invoiceNumber string) (string, error) {
	if g == nil {
		return "", fmt.Errorf("grant issuer is not configured")
	}
	if strings.TrimSpace(invoiceNumber) == "" {
		return "", fmt.Errorf("invoice number is required")
	}
	issuedAt := g.now().UTC()
	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Audience:  jwt.ClaimStrings{g.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(g.ttl)),
		},
		InvoiceNumber: invoiceNumber,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(g.key)
	if err != nil {
		return "", fmt.Errorf("sign download grant: %w", err)
	}
	return signed, nil
}

// GrantVerifier validates download grants against the issuer's public
// key.
type GrantVerifier struct {
	issuer   string
	audience string
	key      ed25519.PublicKey
	now      func() time.Time
}

// NewGrantVerifier builds a grant verifier.
func NewGrantVerifier(issuer, audience string, key ed25519.PublicKey, now func() time.Time) (*GrantVerifier, error) {
	if strings.TrimSpace(issuer) == "" || strings.TrimSpace(audience) == "" {
		return nil, fmt.Errorf("grant issuer and audience are required")
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return &GrantVerifier{issuer: issuer, audience: audience, key: key, now: now}, nil
}

// Validate verifies a grant and returns the invoice number it covers.
func (v *GrantVerifier) Validate(grant string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("grant verifier is not configured")
	}
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return "", ErrGrantInvalid
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(*jwt.Token) (any, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithTimeFunc(v.now),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", ErrGrantExpired, err)
		}
		return "", fmt.Errorf("%w: %w", ErrGrantInvalid, err)
	}
	if strings.TrimSpace(parsed.InvoiceNumber) == "" {
		return "", fmt.Errorf("%w: missing invoice number", ErrGrantInvalid)
	}
	return parsed.InvoiceNumber, nil
}

// DecodeKey decodes a base64 key from configuration, accepting padded
// and unpadded encodings.
func DecodeKey(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if raw, err := base64.StdEncoding.DecodeString(value); err == nil {
		return raw, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode base64 key: %w", err)
	}
	return raw, nil
}
