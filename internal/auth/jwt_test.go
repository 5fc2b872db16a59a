package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-jwt-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("office", RoleOperator, testSecret, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "office", claims.Subject)
	assert.Equal(t, RoleOperator, claims.Role)
}

func TestGenerateToken_EmptySubject(t *testing.T) {
	_, err := GenerateToken("", RoleOperator, testSecret, time.Hour)
	require.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	validToken, err := GenerateToken("office", RoleOperator, testSecret, 24*time.Hour)
	require.NoError(t, err)

	expiredToken, err := GenerateToken("office", RoleOperator, testSecret, -1*time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		secret    string
		wantErrIs error
	}{
		{
			name:      "expired token",
			token:     expiredToken,
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenExpired,
		},
		{
			name:      "wrong secret",
			token:     validToken,
			secret:    "wrong-secret",
			wantErrIs: jwt.ErrTokenSignatureInvalid,
		},
		{
			name:      "malformed token",
			token:     "not.a.valid.jwt",
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenMalformed,
		},
		{
			name:      "empty token",
			token:     "",
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenMalformed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateToken(tc.token, tc.secret)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErrIs)
		})
	}
}

func TestValidateToken_RejectsNonHMAC(t *testing.T) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "office",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: RoleOperator,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(signed, testSecret)
	require.Error(t, err)
}

func TestCheckPIN(t *testing.T) {
	hash, err := HashPIN("4821", bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name    string
		pin     string
		wantErr error
	}{
		{name: "correct pin", pin: "4821"},
		{name: "wrong pin", pin: "0000", wantErr: domain.ErrInvalidCredentials},
		{name: "empty pin", pin: "", wantErr: domain.ErrInvalidCredentials},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPIN(hash, tc.pin)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHashPIN_TooShort(t *testing.T) {
	_, err := HashPIN("12", bcrypt.MinCost)
	require.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, SubjectFromContext(ctx))

	ctx = ContextWithClaims(ctx, &Claims{Subject: "office", Role: RoleOperator})
	c, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, RoleOperator, c.Role)
	assert.Equal(t, "office", SubjectFromContext(ctx))
}
