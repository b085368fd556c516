// Package identity verifies identity tokens issued by the external identity provider.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid identity token")

type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewVerifier checks HS256 tokens signed with secret. Empty issuer or audience skips that check.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   30 * time.Second,
	}
}

func (v *Verifier) Verify(token string) (domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return domain.Identity{
		UID:         claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
		PhotoURL:    claims.Picture,
	}, nil
}

// Issue signs an identity token. Used by tests and local tooling standing in for the provider.
func (v *Verifier) Issue(id domain.Identity, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Name:    id.DisplayName,
		Email:   id.Email,
		Picture: id.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
