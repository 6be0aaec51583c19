package models

import "time"

// Event represents a single analytics event reported from the portfolio site.
// Events are append-only: nothing in this service updates or deletes them.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EventType   string    `gorm:"size:50;not null;index" json:"event_type"`
	PagePath    *string   `gorm:"size:255" json:"page_path"`
	ProjectName *string   `gorm:"size:100" json:"project_name"`
	Referrer    *string   `gorm:"size:500" json:"referrer"`
	Country     string    `gorm:"size:100" json:"country"`
	City        string    `gorm:"size:100" json:"city"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// AdminUser represents a dashboard administrator account.
type AdminUser struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;size:50;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	CreatedAt    time.Time
}
