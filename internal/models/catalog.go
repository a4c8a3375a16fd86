package models

import "time"

// Category groups offers. Its ID is a slug chosen by the admin (e.g. "fashion").
type Category struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Icon      string    `json:"icon,omitempty"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"-"`
}
