package service

import (
	"context"
	"strings"

	"geosm/internal/coordinator"
	"geosm/internal/models"
	"geosm/internal/observability"
	"geosm/internal/repository"

	"go.uber.org/zap"
)

const maxReportLen = 2000

// ModerationService runs the report queues. A claimed report is leased to
// one staff member until the lease event expires.
type ModerationService struct {
	clock
	coord    coordinator.Runner
	platform models.PlatformDefaults
	log      *zap.Logger
}

type CreateReportInput struct {
	Type        models.ReportType
	ContentType models.ContentType
	ContentID   uint
	Content     string
	Token       string
	Auto        bool
}

func NewModerationService(coord coordinator.Runner, platform models.PlatformDefaults, log *zap.Logger) *ModerationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModerationService{coord: coord, platform: platform, log: log}
}

// createReport checks that the target row exists and inserts the report.
func createReport(ctx context.Context, tx repository.Tx, report *models.Report) (uint, error) {
	kind, id := report.Target()
	var err error
	switch kind {
	case models.ContentPost:
		_, err = tx.Content().GetPost(ctx, id)
	case models.ContentComment:
		_, err = tx.Content().GetComment(ctx, id)
	case models.ContentMessage:
		_, err = tx.Messages().GetByID(ctx, id)
	default:
		err = models.NewValidationError("Report must point at content")
	}
	if err != nil {
		return 0, err
	}
	if err := tx.Reports().Create(ctx, report); err != nil {
		return 0, err
	}
	return report.ReportID, nil
}

func (s *ModerationService) CreateReport(ctx context.Context, in CreateReportInput) (uint, error) {
	if !in.Type.Valid() {
		return 0, models.NewValidationError("Unknown report type")
	}
	if !in.ContentType.Valid() {
		return 0, models.NewValidationError("Unknown content type")
	}
	content := strings.TrimSpace(in.Content)
	if runeLen(content) > maxReportLen {
		return 0, models.NewValidationError("Report too long (max 2000 characters)")
	}
	report := &models.Report{
		Status:    models.ReportActive,
		Type:      in.Type,
		Content:   content,
		Auto:      in.Auto,
		CreatedAt: s.Now(),
	}
	id := in.ContentID
	switch in.ContentType {
	case models.ContentPost:
		report.PostID = &id
	case models.ContentComment:
		report.CommentID = &id
	case models.ContentMessage:
		report.MessageID = &id
	}

	var reportID uint
	err := s.coord.Run(ctx, "create_report", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		if !in.Auto {
			caller, err := resolveCaller(ctx, u.Rel, in.Token)
			if err != nil {
				return err
			}
			if err := requireActive(caller); err != nil {
				return err
			}
			report.CreatorID = &caller.UserID
		}
		var err error
		reportID, err = createReport(ctx, u.Rel, report)
		return err
	})
	return reportID, err
}

// GetReport claims the oldest active report of reportType for the caller and
// returns it with its content and lease deadline.
func (s *ModerationService) GetReport(ctx context.Context, token string, reportType models.ReportType) (*models.ReportModel, error) {
	if !reportType.Valid() {
		return nil, models.NewValidationError("Unknown report type")
	}
	model := &models.ReportModel{}
	err := s.coord.Run(ctx, "claim_report", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		if err := requireRole(caller, reportType.RequiredRole()); err != nil {
			return err
		}
		report, err := u.Rel.Reports().ClaimOldest(ctx, reportType, caller.UserID)
		if err != nil {
			return err
		}
		model.Report = *report
		model.LeaseTo = s.Now().Add(s.platform.ReportLease)
		return u.Rel.Events().Create(ctx, &models.Event{
			Type:      models.EventLockedReport,
			ValidTime: model.LeaseTo,
			UserID:    caller.UserID,
			ReportID:  &report.ReportID,
		})
	})
	if err != nil {
		return nil, err
	}
	observability.ReportsClaimed.WithLabelValues(string(reportType)).Inc()

	if err := s.resolveContent(ctx, model); err != nil {
		s.releaseLease(ctx, model.Report.ReportID, model.Report.ModeratorID)
		return nil, err
	}
	return model, nil
}

// releaseLease hands a just-claimed report back when its content could not
// be loaded, so the caller is not left holding a lock they never saw.
func (s *ModerationService) releaseLease(ctx context.Context, reportID uint, holder *uint) {
	if holder == nil {
		return
	}
	err := s.coord.Run(ctx, "release_unresolved_report", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		ok, err := u.Rel.Reports().ReleaseHeld(ctx, reportID, *holder)
		if err != nil || !ok {
			return err
		}
		_, err = u.Rel.Events().DeleteForReport(ctx, reportID)
		return err
	})
	if err != nil {
		s.log.Warn("failed to release unresolved report", zap.Uint("report_id", reportID), zap.Error(err))
	}
}

func (s *ModerationService) resolveContent(ctx context.Context, model *models.ReportModel) error {
	kind, id := model.Report.Target()
	if kind == models.ContentMessage {
		return s.coord.Run(ctx, "report_message", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
			var err error
			model.Message, err = u.Rel.Messages().GetByID(ctx, id)
			return err
		})
	}
	return s.coord.Run(ctx, "report_content", coordinator.Graph, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		switch kind {
		case models.ContentPost:
			model.Post, err = u.Graph.GetPost(ctx, id)
		case models.ContentComment:
			model.Comment, err = u.Graph.GetComment(ctx, id)
		}
		return err
	})
}

// heldAction runs act on a report the caller holds. Missing reports are
// NotFound; reports held by someone else are Forbidden.
func (s *ModerationService) heldAction(ctx context.Context, op, token string, reportID uint, act func(ctx context.Context, tx repository.Tx, modID uint) (bool, error)) error {
	return s.coord.Run(ctx, op, coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		caller, err := resolveCaller(ctx, u.Rel, token)
		if err != nil {
			return err
		}
		ok, err := act(ctx, u.Rel, caller.UserID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if _, err := u.Rel.Reports().GetByID(ctx, reportID); err != nil {
			return err
		}
		return models.NewForbiddenError("Report is not held by you")
	})
}

// DeleteReport removes a held report. Its lease event goes with it.
func (s *ModerationService) DeleteReport(ctx context.Context, token string, reportID uint) error {
	return s.heldAction(ctx, "delete_report", token, reportID, func(ctx context.Context, tx repository.Tx, modID uint) (bool, error) {
		return tx.Reports().DeleteHeld(ctx, reportID, modID)
	})
}

func (s *ModerationService) ResolveReport(ctx context.Context, token string, reportID uint) error {
	return s.heldAction(ctx, "resolve_report", token, reportID, func(ctx context.Context, tx repository.Tx, modID uint) (bool, error) {
		ok, err := tx.Reports().ResolveHeld(ctx, reportID, modID)
		if err != nil || !ok {
			return ok, err
		}
		_, err = tx.Events().DeleteForReport(ctx, reportID)
		return true, err
	})
}

// ReleaseReport hands a held report back to the queue before its lease ends.
func (s *ModerationService) ReleaseReport(ctx context.Context, token string, reportID uint) error {
	return s.heldAction(ctx, "release_report", token, reportID, func(ctx context.Context, tx repository.Tx, modID uint) (bool, error) {
		ok, err := tx.Reports().ReleaseHeld(ctx, reportID, modID)
		if err != nil || !ok {
			return ok, err
		}
		_, err = tx.Events().DeleteForReport(ctx, reportID)
		return true, err
	})
}
