package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, duration time.Duration) *TokenService {
	t.Helper()
	secret, err := NewSecret()
	require.NoError(t, err)
	return NewTokenService(secret, duration)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	req := require.New(t)
	svc := newTestService(t, time.Hour)

	token, err := svc.Issue("alice-id")
	req.NoError(err)

	userID, ok := svc.Validate(token)
	req.True(ok)
	req.Equal("alice-id", userID)
}

func TestTokenService_DistinctTokensForSameUser(t *testing.T) {
	req := require.New(t)
	svc := newTestService(t, time.Hour)

	first, err := svc.Issue("bob-id")
	req.NoError(err)
	second, err := svc.Issue("bob-id")
	req.NoError(err)
	req.NotEqual(first, second)

	for _, token := range []string{first, second} {
		userID, ok := svc.Validate(token)
		req.True(ok)
		req.Equal("bob-id", userID)
	}
}

func TestTokenService_RejectsTokenFromPreviousProcess(t *testing.T) {
	req := require.New(t)
	previous := newTestService(t, time.Hour)
	current := newTestService(t, time.Hour)

	token, err := previous.Issue("alice-id")
	req.NoError(err)

	userID, ok := current.Validate(token)
	req.False(ok)
	req.Empty(userID)
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	svc := newTestService(t, time.Hour)

	// Given a token issued two hours ago
	svc.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	token, err := svc.Issue("alice-id")
	req.NoError(err)

	// When validated now
	svc.WithClock(time.Now)
	userID, ok := svc.Validate(token)

	// Then it is rejected without any detail
	req.False(ok)
	req.Empty(userID)
}

func TestTokenService_RejectsMalformedAndTampered(t *testing.T) {
	svc := newTestService(t, time.Hour)
	token, err := svc.Issue("alice-id")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "mallory"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Empty", ""},
		{"Garbage", "not-a-token"},
		{"Tampered signature", tampered},
		{"Unsigned", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			userID, ok := svc.Validate(tt.token)
			req.False(ok)
			req.Empty(userID)
		})
	}
}

func TestTokenService_RejectsTokenWithoutUser(t *testing.T) {
	req := require.New(t)
	secret, err := NewSecret()
	req.NoError(err)
	svc := NewTokenService(secret, time.Hour)

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Issuer:    Issuer,
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	req.NoError(err)

	_, ok := svc.Validate(token)
	req.False(ok)
}
