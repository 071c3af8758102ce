package repository

import (
	"context"
	"database/sql"
	"errors"

	"geosm/internal/models"

	"gorm.io/gorm"
)

// Store opens relational transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one relational transaction. Repositories obtained from a Tx run
// inside it.
type Tx interface {
	Users() UserRepository
	Sessions() SessionRepository
	AuthCodes() AuthCodeRepository
	Bans() BanRepository
	Events() EventRepository
	Reports() ReportRepository
	Messages() MessageRepository
	Content() ContentRepository
	Settings() SettingsRepository
	Commit() error
	Rollback() error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store over db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Begin(ctx context.Context) (Tx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, models.NewStoreError(tx.Error)
	}
	return &gormTx{db: tx}, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Users() UserRepository { return NewUserRepository(t.db) }
func (t *gormTx) Sessions() SessionRepository { return NewSessionRepository(t.db) }
func (t *gormTx) AuthCodes() AuthCodeRepository { return NewAuthCodeRepository(t.db) }
func (t *gormTx) Bans() BanRepository { return NewBanRepository(t.db) }
func (t *gormTx) Events() EventRepository { return NewEventRepository(t.db) }
func (t *gormTx) Reports() ReportRepository { return NewReportRepository(t.db) }
func (t *gormTx) Messages() MessageRepository { return NewMessageRepository(t.db) }
func (t *gormTx) Content() ContentRepository { return NewContentRepository(t.db) }
func (t *gormTx) Settings() SettingsRepository { return NewSettingsRepository(t.db) }

func (t *gormTx) Commit() error {
	if err := t.db.Commit().Error; err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (t *gormTx) Rollback() error {
	if err := t.db.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return models.NewStoreError(err)
	}
	return nil
}
