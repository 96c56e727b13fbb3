package database

import (
	"strings"
	"time"

	"github.com/inputsum/inputsum/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all database operations for input events
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new input event into the database
func (r *Repository) Create(event *models.InputEvent) error {
	event.AppName = strings.ToLower(event.AppName)
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert input event")
	}
	return nil
}

// GetByID retrieves an input event by its ID
func (r *Repository) GetByID(id uint) (*models.InputEvent, error) {
	var event models.InputEvent
	result := r.db.First(&event, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get input event")
	}
	return &event, nil
}

// GetEventsSince retrieves all input events since a given time
// Simple query that returns raw events - runtime does the processing
func (r *Repository) GetEventsSince(since time.Time) ([]*models.InputEvent, error) {
	var events []*models.InputEvent
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&events)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query input events")
	}

	return events, nil
}

// GetRecent retrieves the most recent events, newest first
func (r *Repository) GetRecent(limit int) ([]*models.InputEvent, error) {
	var events []*models.InputEvent
	result := r.db.Order("timestamp DESC").Limit(limit).Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query recent events")
	}
	return events, nil
}

// GetAppSummarySince returns aggregated per-app activity since a given time
// Uses SQL aggregation for efficiency - runtime can do additional calculations
func (r *Repository) GetAppSummarySince(since time.Time) ([]models.AppSummary, error) {
	var summaries []models.AppSummary

	result := r.db.Model(&models.InputEvent{}).
		Select(`app_name,
			COUNT(*) as event_count,
			SUM(CASE WHEN kind = 'key_press' THEN 1 ELSE 0 END) as key_presses,
			SUM(CASE WHEN kind = 'pointer_press' THEN 1 ELSE 0 END) as pointer_press,
			SUM(CASE WHEN kind = 'pointer_move' THEN 1 ELSE 0 END) as pointer_moves,
			SUM(CASE WHEN kind IN ('focus_in', 'focus_out') THEN 1 ELSE 0 END) as focus_changes`).
		Where("timestamp >= ?", since).
		Group("app_name").
		Order("event_count DESC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app summary")
	}

	return summaries, nil
}

// DeleteOldEvents deletes events older than a specified date (soft delete)
func (r *Repository) DeleteOldEvents(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.InputEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old events")
	}
	return result.RowsAffected, nil
}

// GetLatest retrieves the most recent input event
func (r *Repository) GetLatest() (*models.InputEvent, error) {
	var event models.InputEvent
	result := r.db.Order("timestamp DESC").First(&event)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// Clear removes all input events from the database
func (r *Repository) Clear() error {
	result := r.db.Exec("DELETE FROM input_events")
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to clear input events")
	}
	return nil
}
