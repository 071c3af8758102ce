package repository

import (
	"context"
	"time"

	"geosm/internal/models"

	"gorm.io/gorm"
)

// EventRepository stores timer rows polled by the sweep.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Event, error)
	// Delete removes one event and reports whether it still existed.
	Delete(ctx context.Context, id uint) (bool, error)
	DeleteForUser(ctx context.Context, userID uint, eventType models.EventType) (int64, error)
	DeleteForReport(ctx context.Context, reportID uint) (int64, error)
	CountForUser(ctx context.Context, userID uint, eventType models.EventType, excludeID uint) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns an EventRepository bound to db.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return translate(err, "Event", event.UserID)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("event_id = ?", id).First(&event).Error; err != nil {
		return nil, translate(err, "Event", id)
	}
	return &event, nil
}

func (r *eventRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Event, error) {
	var events []models.Event
	q := r.db.WithContext(ctx).Where("valid_time <= ?", now).Order("valid_time ASC, event_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return events, nil
}

func (r *eventRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("event_id = ?", id).Delete(&models.Event{})
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *eventRepository) DeleteForUser(ctx context.Context, userID uint, eventType models.EventType) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND type = ?", userID, eventType).Delete(&models.Event{})
	if res.Error != nil {
		return 0, models.NewStoreError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *eventRepository) DeleteForReport(ctx context.Context, reportID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("report_id = ? AND type = ?", reportID, models.EventLockedReport).Delete(&models.Event{})
	if res.Error != nil {
		return 0, models.NewStoreError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *eventRepository) CountForUser(ctx context.Context, userID uint, eventType models.EventType, excludeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("user_id = ? AND type = ? AND event_id <> ?", userID, eventType, excludeID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewStoreError(err)
	}
	return count, nil
}
