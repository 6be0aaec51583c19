package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/LoneMagma/pacify-site/internal/models"
)

// EventStore wraps the events and admin_users tables. Events are write-once,
// read-many: no update or delete paths exist.
type EventStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *EventStore {
	return &EventStore{db: db}
}

// Migrate creates the schema.
func (s *EventStore) Migrate() error {
	return s.db.AutoMigrate(&models.Event{}, &models.AdminUser{})
}

// Append persists a new event. The store assigns the id; CreatedAt is set to
// the current UTC time when unset.
func (s *EventStore) Append(ctx context.Context, evt *models.Event) error {
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(evt).Error
}

// CountEvents counts events of the given type, optionally bounded below by
// since.
func (s *EventStore) CountEvents(ctx context.Context, eventType string, since *time.Time) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Event{}).Where("event_type = ?", eventType)
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ProjectClicks is one row of the top-projects grouping.
type ProjectClicks struct {
	Name   string `json:"name"`
	Clicks int64  `json:"clicks"`
}

// TopProjects groups project_click events by project name, most clicked
// first. Ties break on project name ascending so the order is deterministic.
func (s *EventStore) TopProjects(ctx context.Context, limit int) ([]ProjectClicks, error) {
	rows := make([]ProjectClicks, 0, limit)
	err := s.db.WithContext(ctx).Raw(`
        SELECT project_name AS name, COUNT(id) AS clicks
        FROM events
        WHERE event_type = 'project_click' AND project_name IS NOT NULL
        GROUP BY project_name
        ORDER BY clicks DESC, project_name ASC
        LIMIT ?
    `, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReferrerCount is one row of the raw traffic-sources grouping. Referrer is
// the stored value; bucket classification happens in the aggregator.
type ReferrerCount struct {
	Referrer *string
	Count    int64
}

// ReferrerCounts groups page_view events since the window start by raw
// referrer, most frequent first, ties on referrer ascending.
func (s *EventStore) ReferrerCounts(ctx context.Context, since time.Time, limit int) ([]ReferrerCount, error) {
	rows := make([]ReferrerCount, 0, limit)
	err := s.db.WithContext(ctx).Raw(`
        SELECT referrer, COUNT(id) AS count
        FROM events
        WHERE event_type = 'page_view' AND created_at >= ?
        GROUP BY referrer
        ORDER BY count DESC, referrer ASC
        LIMIT ?
    `, since, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentEvents returns the n newest events of any type, newest first.
func (s *EventStore) RecentEvents(ctx context.Context, n int) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(n).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// DistinctPagePaths counts distinct page_path values across events of any
// type since the window start.
func (s *EventStore) DistinctPagePaths(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("created_at >= ?", since).
		Distinct("page_path").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CreateAdminUser provisions an administrator account. Creation is
// idempotent: an existing username is a no-op, reported via created=false.
func (s *EventStore) CreateAdminUser(ctx context.Context, username, passwordHash string) (bool, error) {
	var existing models.AdminUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	user := models.AdminUser{Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}

// GetAdminUser looks up an administrator by username. Returns
// gorm.ErrRecordNotFound when no such user exists.
func (s *EventStore) GetAdminUser(ctx context.Context, username string) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
