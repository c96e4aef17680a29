package domain

import "time"

// DefaultColor is applied when a project is created without one.
const DefaultColor = "#3B82F6"

// DefaultColumns are created, in order, for every new project.
var DefaultColumns = []string{"To Do", "In Progress", "Review", "Done"}

// Project groups a board of columns and their tasks.
type Project struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description *string   `json:"description"`
	OwnerID     string    `json:"owner_id" gorm:"index;not null"`
	Color       string    `json:"color" gorm:"not null;default:'#3B82F6'"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Column is a fixed lane of the board; Position is its horizontal order.
type Column struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	ProjectID string    `json:"project_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Position  int       `json:"position" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
