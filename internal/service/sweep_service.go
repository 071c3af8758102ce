package service

import (
	"context"
	"time"

	"geosm/internal/coordinator"
	"geosm/internal/models"
	"geosm/internal/observability"
	"geosm/internal/repository"

	"go.uber.org/zap"
)

// sweepBatch caps how many expired events one pass handles.
const sweepBatch = 500

// SweepReport counts what one pass removed.
type SweepReport struct {
	Registrations int `json:"registrations"`
	Bans          int `json:"bans"`
	Locks         int `json:"locks"`
	AuthCodes     int `json:"auth_codes"`
	Failed        int `json:"failed"`
}

// SweepService expires registrations, bans, report leases and auth codes.
type SweepService struct {
	coord coordinator.Runner
	log   *zap.Logger
}

func NewSweepService(coord coordinator.Runner, log *zap.Logger) *SweepService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SweepService{coord: coord, log: log}
}

// Sweep processes every event expired at now, each in its own unit. Only a
// failure to list events is returned; per-event failures are logged and
// counted.
func (s *SweepService) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport
	var events []models.Event
	err := s.coord.Run(ctx, "sweep_list", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		var err error
		events, err = u.Rel.Events().ListExpired(ctx, now, sweepBatch)
		return err
	})
	if err != nil {
		return report, err
	}

	for _, ev := range events {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		done, err := s.expire(ctx, ev, now)
		outcome := "skipped"
		switch {
		case err != nil:
			outcome = "failed"
			report.Failed++
			s.log.Warn("sweep event failed",
				zap.Uint("event_id", ev.EventID),
				zap.String("type", string(ev.Type)),
				zap.Error(err))
		case done:
			outcome = "expired"
			switch ev.Type {
			case models.EventRegistration:
				report.Registrations++
			case models.EventBan:
				report.Bans++
			case models.EventLockedReport:
				report.Locks++
			}
		}
		observability.SweepEvents.WithLabelValues(string(ev.Type), outcome).Inc()
	}

	err = s.coord.Run(ctx, "sweep_auth_codes", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		n, err := u.Rel.AuthCodes().DeleteExpired(ctx, now)
		report.AuthCodes = int(n)
		return err
	})
	if err != nil {
		report.Failed++
		s.log.Warn("sweep auth codes failed", zap.Error(err))
	}
	return report, nil
}

// expire applies the rule for one event. It re-reads the event so work
// already done by a request or a concurrent sweep is skipped.
func (s *SweepService) expire(ctx context.Context, ev models.Event, now time.Time) (bool, error) {
	var done bool
	err := s.coord.Run(ctx, "sweep_event", coordinator.Relational, func(ctx context.Context, u *coordinator.Unit) error {
		current, err := u.Rel.Events().GetByID(ctx, ev.EventID)
		if err != nil {
			if models.IsKind(err, models.CodeNotFound) {
				return nil
			}
			return err
		}
		if current.ValidTime.After(now) {
			return nil
		}
		switch current.Type {
		case models.EventRegistration:
			done, err = expireRegistration(ctx, u.Rel, current)
		case models.EventBan:
			done, err = expireBan(ctx, u.Rel, current)
		case models.EventLockedReport:
			done, err = expireLease(ctx, u.Rel, current)
		default:
			_, err = u.Rel.Events().Delete(ctx, current.EventID)
		}
		return err
	})
	return done, err
}

// expireRegistration deletes a user that never activated. The event goes
// with the user row.
func expireRegistration(ctx context.Context, tx repository.Tx, ev *models.Event) (bool, error) {
	deleted, err := tx.Users().DeleteIfRegistered(ctx, ev.UserID)
	if err != nil {
		return false, err
	}
	if !deleted {
		_, err = tx.Events().Delete(ctx, ev.EventID)
	}
	return deleted, err
}

// expireBan drops the ban and reactivates the user once no other ban is live.
func expireBan(ctx context.Context, tx repository.Tx, ev *models.Event) (bool, error) {
	if _, err := tx.Events().Delete(ctx, ev.EventID); err != nil {
		return false, err
	}
	if ev.BanID != nil {
		if err := tx.Bans().Delete(ctx, *ev.BanID); err != nil && !models.IsKind(err, models.CodeNotFound) {
			return false, err
		}
	}
	remaining, err := tx.Events().CountForUser(ctx, ev.UserID, models.EventBan, ev.EventID)
	if err != nil {
		return false, err
	}
	if remaining == 0 {
		if _, err := tx.Users().TransitionStatus(ctx, ev.UserID, models.StatusBanned, models.StatusActive); err != nil {
			return false, err
		}
	}
	return true, nil
}

// expireLease returns a claimed report to its queue.
func expireLease(ctx context.Context, tx repository.Tx, ev *models.Event) (bool, error) {
	if ev.ReportID != nil {
		if _, err := tx.Reports().Unlock(ctx, *ev.ReportID); err != nil {
			return false, err
		}
	}
	_, err := tx.Events().Delete(ctx, ev.EventID)
	return err == nil, err
}

// RunSweeper sweeps every interval until ctx is done.
func (s *SweepService) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			report, err := s.Sweep(ctx, t.UTC())
			if err != nil {
				s.log.Error("sweep failed", zap.Error(err))
				continue
			}
			if report != (SweepReport{}) {
				s.log.Info("sweep finished",
					zap.Int("registrations", report.Registrations),
					zap.Int("bans", report.Bans),
					zap.Int("locks", report.Locks),
					zap.Int("auth_codes", report.AuthCodes),
					zap.Int("failed", report.Failed))
			}
		}
	}
}
