package domain

import "time"

// Profile is the locally cached display data for an identity-provider user.
// ID is the provider's subject claim.
type Profile struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"index"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the full name when set, otherwise the email.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Email
}

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID    string
	Email     string
	FullName  string
	AvatarURL string
}
