package utils

import (
	"testing"
	"time"

	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret          = "test-secret-key-for-jwt-testing"
	testWrongSecret     = "wrong-secret-key-for-jwt-testing"
	testTokenDuration   = 1 * time.Hour
	testExpiredDuration = -1 * time.Hour
)

func newTokenUser(username string) *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
	}
}

func TestGenerateToken_RoundTrip(t *testing.T) {
	users := []*models.User{
		newTokenUser("alice"),
		newTokenUser("unicode_şef_ışık"),
		newTokenUser("special!@#$%"),
	}

	for _, user := range users {
		t.Run(user.Username, func(t *testing.T) {
			token, err := GenerateToken(user, testSecret, testTokenDuration)
			require.NoError(t, err)
			assert.Len(t, splitDots(token), 3, "JWT should be header.payload.signature")

			claims, err := ValidateToken(token, testSecret)
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, user.Username, claims.Username)
			assert.Equal(t, user.ID.String(), claims.Subject)
			assert.True(t, claims.ExpiresAt.Time.After(time.Now()))
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	user := newTokenUser("alice")

	for name, ttl := range map[string]time.Duration{"negative": testExpiredDuration, "zero": 0} {
		t.Run(name, func(t *testing.T) {
			token, err := GenerateToken(user, testSecret, ttl)
			require.NoError(t, err)

			claims, err := ValidateToken(token, testSecret)
			assert.ErrorIs(t, err, ErrExpiredToken)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateToken_Invalid(t *testing.T) {
	user := newTokenUser("alice")
	good, err := GenerateToken(user, testSecret, testTokenDuration)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: user.ID})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	testCases := []struct {
		name   string
		token  string
		secret string
	}{
		{"empty", "", testSecret},
		{"garbage", "not-a-jwt-token", testSecret},
		{"incomplete", "a.b", testSecret},
		{"wrong secret", good, testWrongSecret},
		{"empty secret", good, ""},
		{"tampered signature", good[:len(good)-5] + "XXXXX", testSecret},
		{"alg none", unsigned, testSecret},
		{"missing user id", noUser, testSecret},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := ValidateToken(tc.token, tc.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestToken_MultipleTokensSameUser(t *testing.T) {
	user := newTokenUser("alice")

	token1, err := GenerateToken(user, testSecret, testTokenDuration)
	require.NoError(t, err)
	token2, err := GenerateToken(user, testSecret, 2*testTokenDuration)
	require.NoError(t, err)

	for _, token := range []string{token1, token2} {
		claims, err := ValidateToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	}
}

func splitDots(s string) []string {
	parts := []string{""}
	for _, r := range s {
		if r == '.' {
			parts = append(parts, "")
			continue
		}
		parts[len(parts)-1] += string(r)
	}
	return parts
}

func BenchmarkValidateToken(b *testing.B) {
	user := newTokenUser("alice")
	token, _ := GenerateToken(user, testSecret, testTokenDuration)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ValidateToken(token, testSecret)
	}
}
