package repository

import (
	"context"

	"geosm/internal/models"

	"gorm.io/gorm"
)

// claimOldestSQL locks the oldest active report of a type. SKIP LOCKED lets
// concurrent claimers move past a row another transaction is claiming.
const claimOldestSQL = `UPDATE reports SET status = ?, moderator_id = ?
WHERE report_id = (
	SELECT report_id FROM reports
	WHERE status = ? AND type = ?
	ORDER BY report_id
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING *`

// ReportRepository stores the moderation queue. Only the moderation engine
// and the sweep write reports.status.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	// ClaimOldest flips the oldest active report of reportType to locked for
	// moderatorID. NotFound when the queue is empty.
	ClaimOldest(ctx context.Context, reportType models.ReportType, moderatorID uint) (*models.Report, error)
	// DeleteHeld deletes the report only while moderatorID holds its lock.
	DeleteHeld(ctx context.Context, id, moderatorID uint) (bool, error)
	// ResolveHeld marks the report resolved only while moderatorID holds its lock.
	ResolveHeld(ctx context.Context, id, moderatorID uint) (bool, error)
	// ReleaseHeld returns a held report to the queue.
	ReleaseHeld(ctx context.Context, id, moderatorID uint) (bool, error)
	// Unlock returns a locked report to the queue regardless of holder.
	Unlock(ctx context.Context, id uint) (bool, error)
	// UnlockHeldBy returns every report moderatorID holds to the queue.
	UnlockHeldBy(ctx context.Context, moderatorID uint) (int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository returns a ReportRepository bound to db.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportActive
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return translate(err, "Report", report.ReportID)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).Where("report_id = ?", id).First(&report).Error; err != nil {
		return nil, translate(err, "Report", id)
	}
	return &report, nil
}

func (r *reportRepository) ClaimOldest(ctx context.Context, reportType models.ReportType, moderatorID uint) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Raw(claimOldestSQL, models.ReportLocked, moderatorID, models.ReportActive, reportType).
		Scan(&report).Error
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	if report.ReportID == 0 {
		return nil, models.NewNotFoundError("Report", reportType)
	}
	return &report, nil
}

func (r *reportRepository) held(ctx context.Context, id, moderatorID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("report_id = ? AND status = ? AND moderator_id = ?", id, models.ReportLocked, moderatorID)
}

func (r *reportRepository) DeleteHeld(ctx context.Context, id, moderatorID uint) (bool, error) {
	res := r.held(ctx, id, moderatorID).Delete(&models.Report{})
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *reportRepository) ResolveHeld(ctx context.Context, id, moderatorID uint) (bool, error) {
	res := r.held(ctx, id, moderatorID).Model(&models.Report{}).Updates(map[string]interface{}{
		"status":       models.ReportResolved,
		"moderator_id": nil,
	})
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *reportRepository) ReleaseHeld(ctx context.Context, id, moderatorID uint) (bool, error) {
	res := r.held(ctx, id, moderatorID).Model(&models.Report{}).Updates(map[string]interface{}{
		"status":       models.ReportActive,
		"moderator_id": nil,
	})
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *reportRepository) Unlock(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("report_id = ? AND status = ?", id, models.ReportLocked).
		Updates(map[string]interface{}{
			"status":       models.ReportActive,
			"moderator_id": nil,
		})
	if res.Error != nil {
		return false, models.NewStoreError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *reportRepository) UnlockHeldBy(ctx context.Context, moderatorID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("status = ? AND moderator_id = ?", models.ReportLocked, moderatorID).
		Updates(map[string]interface{}{
			"status":       models.ReportActive,
			"moderator_id": nil,
		})
	if res.Error != nil {
		return 0, models.NewStoreError(res.Error)
	}
	return res.RowsAffected, nil
}
