package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	s, err := New("secret-a", time.Hour)
	require.NoError(t, err)

	id, tok, err := s.NewSession()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	got, err := s.ParseToken(tok)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestParseTokenRejects(t *testing.T) {
	s, err := New("secret-a", time.Hour)
	require.NoError(t, err)
	other, err := New("secret-b", time.Hour)
	require.NoError(t, err)

	_, tok, err := other.NewSession()
	require.NoError(t, err)
	_, err = s.ParseToken(tok)
	require.Error(t, err, "foreign signature")

	_, err = s.ParseToken("not-a-token")
	require.Error(t, err)

	bad, err := s.IssueToken("superuser")
	require.NoError(t, err)
	_, err = s.ParseToken(bad)
	require.Error(t, err, "subject is not a session id")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	signed, err := expired.SignedString([]byte("secret-a"))
	require.NoError(t, err)
	_, err = s.ParseToken(signed)
	require.Error(t, err)
}

func TestSharedSecretSurvivesRestart(t *testing.T) {
	first, err := New("shared", time.Hour)
	require.NoError(t, err)
	id, tok, err := first.NewSession()
	require.NoError(t, err)

	second, err := New("shared", time.Hour)
	require.NoError(t, err)
	got, err := second.ParseToken(tok)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestNewRejectsTTL(t *testing.T) {
	_, err := New("secret-a", 0)
	require.Error(t, err)
}
