package repository

import (
	"context"
	"time"

	authdomain "projectflow-backend/internal/auth/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceTokenRepository defines the interface for push token operations
type DeviceTokenRepository interface {
	SaveToken(ctx context.Context, userID, token, deviceInfo string) error
	GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.DeviceToken, error)
	DeleteToken(ctx context.Context, token string) error
	DeleteUserToken(ctx context.Context, userID, token string) error
}

type deviceTokenRepository struct {
	db *gorm.DB
}

// NewDeviceTokenRepository creates a new instance of deviceTokenRepository
func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// SaveToken registers a token for a user; a token seen before moves to the new user
func (r *deviceTokenRepository) SaveToken(ctx context.Context, userID, token, deviceInfo string) error {
	now := time.Now().UTC()
	row := &authdomain.DeviceToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
	}).Create(row).Error
}

func (r *deviceTokenRepository) GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.DeviceToken, error) {
	var tokens []authdomain.DeviceToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteToken removes a token regardless of owner; used to prune tokens FCM rejected
func (r *deviceTokenRepository) DeleteToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&authdomain.DeviceToken{}).Error
}

func (r *deviceTokenRepository) DeleteUserToken(ctx context.Context, userID, token string) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&authdomain.DeviceToken{}).Error
}
