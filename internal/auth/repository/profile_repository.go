package repository

import (
	"context"
	"errors"
	"time"

	authdomain "projectflow-backend/internal/auth/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository stores display data for identity-provider users
type ProfileRepository interface {
	// Upsert inserts the profile or refreshes its email, name and avatar
	Upsert(ctx context.Context, profile *authdomain.Profile) error
	FindByID(ctx context.Context, id string) (*authdomain.Profile, error)
	FindByEmail(ctx context.Context, email string) (*authdomain.Profile, error)
	// FindByIDs returns the profiles that exist, keyed by id
	FindByIDs(ctx context.Context, ids []string) (map[string]*authdomain.Profile, error)
	Update(ctx context.Context, profile *authdomain.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new instance of profileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *authdomain.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	columns := []string{"email", "updated_at"}
	if profile.FullName != nil {
		columns = append(columns, "full_name")
	}
	if profile.AvatarURL != nil {
		columns = append(columns, "avatar_url")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(profile).Error
}

func (r *profileRepository) FindByID(ctx context.Context, id string) (*authdomain.Profile, error) {
	var profile authdomain.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindByEmail(ctx context.Context, email string) (*authdomain.Profile, error) {
	var profile authdomain.Profile
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*authdomain.Profile, error) {
	out := make(map[string]*authdomain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []*authdomain.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *authdomain.Profile) error {
	profile.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(profile).Error
}
