package identity

import (
	"testing"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("secret", "https://id.example", "ecofinds")
	id := domain.Identity{UID: "u1", DisplayName: "Ann", Email: "ann@example.com", PhotoURL: "https://img/ann"}

	token, err := v.Issue(id, time.Hour, time.Now())
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("secret", "https://id.example", "ecofinds")
	now := time.Now()
	id := domain.Identity{UID: "u1"}

	expired, err := v.Issue(id, -time.Hour, now)
	require.NoError(t, err)

	wrongKey, err := NewVerifier("other", "https://id.example", "ecofinds").Issue(id, time.Hour, now)
	require.NoError(t, err)

	wrongIssuer, err := NewVerifier("secret", "https://evil.example", "ecofinds").Issue(id, time.Hour, now)
	require.NoError(t, err)

	wrongAudience, err := NewVerifier("secret", "https://id.example", "someone-else").Issue(id, time.Hour, now)
	require.NoError(t, err)

	noSubject, err := v.Issue(domain.Identity{}, time.Hour, now)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":        expired,
		"wrong key":      wrongKey,
		"wrong issuer":   wrongIssuer,
		"wrong audience": wrongAudience,
		"no subject":     noSubject,
		"alg none":       noneAlg,
		"garbage":        "not-a-token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifier_OptionalChecks(t *testing.T) {
	v := NewVerifier("secret", "", "")
	token, err := NewVerifier("secret", "anyone", "anything").Issue(domain.Identity{UID: "u2"}, time.Minute, time.Now())
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.UID)
}
