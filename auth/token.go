package auth

import (
	"chat-relay/errors"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer = "chat-relay"
	// SecretLength matches a 2048-bit HMAC key.
	SecretLength = 256
)

// NewSecret generates the process-wide signing key.
// Tokens signed with it die with the process.
func NewSecret() ([]byte, error) {
	secret := make([]byte, SecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrSecretGeneration, err)
	}
	return secret, nil
}

// Claims defines the structure of the data stored inside the JWT.
type Claims struct {
	UserID string `json:"user"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 identity tokens.
type TokenService struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokenService(secret []byte, duration time.Duration) *TokenService {
	return &TokenService{secret: secret, duration: duration, now: time.Now}
}

// WithClock replaces the time source used for issuing and validating.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue creates a signed JWT for a specific user.
// A random jti keeps two tokens for the same user distinct.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return token, nil
}

// Validate parses and validates the signature and expiration of a JWT string.
// Malformed, forged and expired tokens all yield ("", false).
func (s *TokenService) Validate(tokenString string) (string, bool) {
	if tokenString == "" {
		return "", false
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", false
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}
