package usecase

import (
	"context"
	"strings"

	authdomain "projectflow-backend/internal/auth/domain"
	"projectflow-backend/internal/auth/repository"
	"projectflow-backend/pkg/apperror"
	"projectflow-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// AuthUsecase resolves callers from identity-provider tokens and manages
// their cached profile and push registrations
type AuthUsecase interface {
	// ValidateToken verifies a bearer token and returns the caller it names
	ValidateToken(tokenString string) (*authdomain.Identity, error)

	// Authenticate validates the token and keeps the caller's profile current
	Authenticate(ctx context.Context, tokenString string) (*authdomain.Profile, error)

	GetProfile(ctx context.Context, userID string) (*authdomain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, req ProfileUpdateRequest) (*authdomain.Profile, error)

	RegisterDeviceToken(ctx context.Context, userID, token, deviceInfo string) error
	UnregisterDeviceToken(ctx context.Context, userID, token string) error
}

// ProfileUpdateRequest represents the profile fields a user may change
type ProfileUpdateRequest struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type authUsecase struct {
	profileRepo repository.ProfileRepository
	tokenRepo   repository.DeviceTokenRepository
	config      *config.Config
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(profileRepo repository.ProfileRepository, tokenRepo repository.DeviceTokenRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		profileRepo: profileRepo,
		tokenRepo:   tokenRepo,
		config:      cfg,
	}
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.Identity, error) {
	if tokenString == "" {
		return nil, apperror.Unauthenticated("missing token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if u.config.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(u.config.JWTIssuer))
	}
	if u.config.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(u.config.JWTAudience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, apperror.Unauthenticated("invalid or expired token")
	}

	identity := &authdomain.Identity{
		UserID:    stringClaim(claims, "sub"),
		Email:     stringClaim(claims, "email"),
		FullName:  stringClaim(claims, "name"),
		AvatarURL: stringClaim(claims, "picture"),
	}
	if identity.UserID == "" {
		identity.UserID = stringClaim(claims, "user_id")
	}
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		if identity.FullName == "" {
			identity.FullName = stringClaim(meta, "full_name")
		}
		if identity.AvatarURL == "" {
			identity.AvatarURL = stringClaim(meta, "avatar_url")
		}
	}
	if identity.UserID == "" {
		return nil, apperror.Unauthenticated("token has no subject")
	}
	return identity, nil
}

func (u *authUsecase) Authenticate(ctx context.Context, tokenString string) (*authdomain.Profile, error) {
	identity, err := u.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	profile, err := u.profileRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, apperror.Store(err, "load profile")
	}
	if profile != nil && !profileStale(profile, identity) {
		return profile, nil
	}

	fresh := &authdomain.Profile{ID: identity.UserID, Email: identity.Email}
	if identity.FullName != "" {
		fresh.FullName = &identity.FullName
	}
	if identity.AvatarURL != "" {
		fresh.AvatarURL = &identity.AvatarURL
	}
	if err := u.profileRepo.Upsert(ctx, fresh); err != nil {
		return nil, apperror.Store(err, "save profile")
	}
	log.WithField("user", identity.UserID).Debug("[Auth] profile synced from token")
	return u.profileRepo.FindByID(ctx, identity.UserID)
}

func (u *authUsecase) GetProfile(ctx context.Context, userID string) (*authdomain.Profile, error) {
	profile, err := u.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.Store(err, "load profile")
	}
	if profile == nil {
		return nil, apperror.NotFound("profile not found")
	}
	return profile, nil
}

func (u *authUsecase) UpdateProfile(ctx context.Context, userID string, req ProfileUpdateRequest) (*authdomain.Profile, error) {
	profile, err := u.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		profile.FullName = &name
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		profile.AvatarURL = &avatar
	}
	if err := u.profileRepo.Update(ctx, profile); err != nil {
		return nil, apperror.Store(err, "update profile")
	}
	return profile, nil
}

func (u *authUsecase) RegisterDeviceToken(ctx context.Context, userID, token, deviceInfo string) error {
	if strings.TrimSpace(token) == "" {
		return apperror.Validation("token is required")
	}
	if err := u.tokenRepo.SaveToken(ctx, userID, token, deviceInfo); err != nil {
		return apperror.Store(err, "save device token")
	}
	return nil
}

func (u *authUsecase) UnregisterDeviceToken(ctx context.Context, userID, token string) error {
	if err := u.tokenRepo.DeleteUserToken(ctx, userID, token); err != nil {
		return apperror.Store(err, "delete device token")
	}
	return nil
}

// profileStale reports whether the token carries display data the cached
// profile lacks. Locally edited names are kept when the token has none.
func profileStale(p *authdomain.Profile, id *authdomain.Identity) bool {
	if id.Email != "" && p.Email != id.Email {
		return true
	}
	if id.FullName != "" && (p.FullName == nil || *p.FullName == "") {
		return true
	}
	if id.AvatarURL != "" && (p.AvatarURL == nil || *p.AvatarURL == "") {
		return true
	}
	return false
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
