package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"geosm/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRepository_ClaimOldest(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReportRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		mockBehavior func()
		expectedID   uint
		expectedKind string
	}{
		{
			name: "Claims oldest",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"report_id", "status", "type", "moderator_id", "post_id"}).
					AddRow(11, "locked", "moderator", 4, 9)
				mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
					WithArgs(models.ReportLocked, 4, models.ReportActive, models.ReportForModerator).
					WillReturnRows(rows)
			},
			expectedID: 11,
		},
		{
			name: "Empty queue",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET status = $1, moderator_id = $2")).
					WillReturnRows(sqlmock.NewRows([]string{"report_id"}))
			},
			expectedKind: models.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			report, err := repo.ClaimOldest(ctx, models.ReportForModerator, 4)
			if tt.expectedKind != "" {
				assert.Equal(t, tt.expectedKind, models.KindOf(err))
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.expectedID, report.ReportID)
				assert.Equal(t, models.ReportLocked, report.Status)
				kind, id := report.Target()
				assert.Equal(t, models.ContentPost, kind)
				assert.Equal(t, uint(9), id)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReportRepository_DeleteHeld(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "reports" WHERE report_id = $1 AND status = $2 AND moderator_id = $3`)).
		WithArgs(3, models.ReportLocked, 8).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	deleted, err := repo.DeleteHeld(context.Background(), 3, 8)
	require.NoError(t, err)
	assert.False(t, deleted, "non-holder must not delete")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_Unlock(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reports" SET "moderator_id"=$1,"status"=$2 WHERE report_id = $3 AND status = $4`)).
		WithArgs(nil, models.ReportActive, 3, models.ReportLocked).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	unlocked, err := repo.Unlock(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, unlocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepository_ListExpired(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewEventRepository(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"event_id", "type", "valid_time", "user_id", "report_id"}).
		AddRow(1, "registration", now.Add(-time.Hour), 5, nil).
		AddRow(2, "locked report", now.Add(-time.Minute), 6, 30)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "events" WHERE valid_time <= $1 ORDER BY valid_time ASC, event_id ASC LIMIT $2`)).
		WithArgs(now, 100).
		WillReturnRows(rows)

	events, err := repo.ListExpired(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventRegistration, events[0].Type)
	require.NotNil(t, events[1].ReportID)
	assert.Equal(t, uint(30), *events[1].ReportID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteUserTokens(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "access_tokens" WHERE user_id = $1`)).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.DeleteUserTokens(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetToken_Unknown(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "access_tokens" WHERE value = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"token_id"}))

	_, err := repo.GetToken(context.Background(), "nope/1")
	assert.True(t, models.IsKind(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthCodeRepository_Match(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAuthCodeRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "auth_codes" WHERE user_id = $1 AND value = $2 AND type = $3 AND valid_time > $4`)).
		WithArgs(2, "123456", models.AuthCodeEmail, now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.Match(context.Background(), 2, "123456", models.AuthCodeEmail, now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_GetFallback(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSettingsRepository(db)
	fallback := models.DefaultPlatform().Settings

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "settings" WHERE settings_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"settings_id"}))

	got, err := repo.Get(context.Background(), fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BeginCommitRollback(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewStore(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "events" WHERE event_id = $1`)).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	deleted, err := tx.Events().Delete(ctx, 4)
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, tx.Commit())

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_UnlockHeldBy(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "reports" SET "moderator_id"=$1,"status"=$2 WHERE status = $3 AND moderator_id = $4`)).
		WithArgs(nil, models.ReportActive, models.ReportLocked, 8).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.UnlockHeldBy(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
