package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "gallery"

// Service signs session tokens. The token subject is the session id.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// New signs with secret. See LoadSecret for a key that survives restarts
// without configuration.
func New(secret string, ttl time.Duration) (*Service, error) {
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	return &Service{secret: []byte(secret), ttl: ttl}, nil
}

func (s *Service) TTL() time.Duration { return s.ttl }

// NewSession issues a token for a fresh session id.
func (s *Service) NewSession() (string, string, error) {
	id := uuid.NewString()
	tok, err := s.IssueToken(id)
	if err != nil {
		return "", "", err
	}
	return id, tok, nil
}

func (s *Service) IssueToken(session string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   session,
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// ParseToken returns the session id carried by tok.
func (s *Service) ParseToken(tok string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tok, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("wrong subject")
	}
	return claims.Subject, nil
}
