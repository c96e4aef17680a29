package usecase

import (
	"context"
	"testing"
	"time"

	"projectflow-backend/internal/auth/repository"
	"projectflow-backend/internal/testutil"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuth(t *testing.T, mutate func(*config.Config)) (AuthUsecase, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := testutil.Config()
	if mutate != nil {
		mutate(cfg)
	}
	return NewAuthUsecase(repository.NewProfileRepository(db), repository.NewDeviceTokenRepository(db), cfg), db
}

func TestValidateTokenClaims(t *testing.T) {
	uc, _ := newAuth(t, nil)

	id, err := uc.ValidateToken(testutil.SignToken(t, "u1", jwt.MapClaims{"name": "Ann", "picture": "https://img/a.png"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "u1@example.com", id.Email)
	assert.Equal(t, "Ann", id.FullName)
	assert.Equal(t, "https://img/a.png", id.AvatarURL)

	id, err = uc.ValidateToken(testutil.SignToken(t, "", jwt.MapClaims{
		"user_id":       "u2",
		"user_metadata": map[string]interface{}{"full_name": "Bo", "avatar_url": "https://img/b.png"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "u2", id.UserID)
	assert.Equal(t, "Bo", id.FullName)
	assert.Equal(t, "https://img/b.png", id.AvatarURL)
}

func TestValidateTokenRejects(t *testing.T) {
	uc, _ := newAuth(t, nil)

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("other"))
	require.NoError(t, err)
	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{"sub": "u1"}).SignedString([]byte(testutil.JWTSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", otherSecret},
		{"wrong algorithm", wrongAlg},
		{"expired", testutil.SignToken(t, "u1", jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})},
		{"no subject", testutil.SignToken(t, "", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
		})
	}
}

func TestValidateTokenIssuerAndAudience(t *testing.T) {
	uc, _ := newAuth(t, func(cfg *config.Config) {
		cfg.JWTIssuer = "https://auth.example.com"
		cfg.JWTAudience = "authenticated"
	})

	_, err := uc.ValidateToken(testutil.SignToken(t, "u1", nil))
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	id, err := uc.ValidateToken(testutil.SignToken(t, "u1", jwt.MapClaims{
		"iss": "https://auth.example.com",
		"aud": "authenticated",
	}))
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
}

func TestAuthenticateSyncsProfile(t *testing.T) {
	uc, _ := newAuth(t, nil)
	ctx := context.Background()
	token := testutil.SignToken(t, "u1", jwt.MapClaims{"name": "Token Name"})

	profile, err := uc.Authenticate(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, profile.FullName)
	assert.Equal(t, "Token Name", *profile.FullName)

	local := "  Local Name "
	updated, err := uc.UpdateProfile(ctx, "u1", ProfileUpdateRequest{FullName: &local})
	require.NoError(t, err)
	assert.Equal(t, "Local Name", *updated.FullName)

	profile, err = uc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Local Name", *profile.FullName, "a local edit survives later logins")
}

func TestGetProfileNotFound(t *testing.T) {
	uc, _ := newAuth(t, nil)

	_, err := uc.GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeviceTokens(t *testing.T) {
	uc, db := newAuth(t, nil)
	ctx := context.Background()
	tokens := repository.NewDeviceTokenRepository(db)

	assert.ErrorIs(t, uc.RegisterDeviceToken(ctx, "u1", "  ", ""), apperror.ErrValidation)

	require.NoError(t, uc.RegisterDeviceToken(ctx, "u1", "tok-1", "Chrome"))
	require.NoError(t, uc.RegisterDeviceToken(ctx, "u2", "tok-1", "Firefox"))

	u1Tokens, err := tokens.GetTokensByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u1Tokens, "a re-registered token moves to the new user")

	require.NoError(t, uc.UnregisterDeviceToken(ctx, "u1", "tok-1"))
	u2Tokens, err := tokens.GetTokensByUserID(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, u2Tokens, 1)
	assert.Equal(t, "Firefox", u2Tokens[0].DeviceInfo)

	require.NoError(t, uc.UnregisterDeviceToken(ctx, "u2", "tok-1"))
	u2Tokens, err = tokens.GetTokensByUserID(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, u2Tokens)
}
