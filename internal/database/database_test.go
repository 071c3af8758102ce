package database

import (
	"context"
	"testing"
	"time"

	"geosm/internal/config"
	"geosm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// Every :memory: connection is its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		env       string
		wantSQL   bool
		wantAuto  bool
		wantError bool
	}{
		{"default is sql", "", "development", true, false, false},
		{"sql", "SQL", "production", true, false, false},
		{"auto in development", "auto", "development", false, true, false},
		{"auto refused in production", "auto", "production", false, false, true},
		{"none", "none", "production", false, false, false},
		{"unknown", "hybrid", "development", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&config.Config{DBSchemaMode: tt.mode, Env: tt.env})
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAuto, runAuto)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init", all[0].Name)
	assert.Contains(t, all[0].UpScript, "CREATE TABLE IF NOT EXISTS reports")
	assert.Contains(t, all[0].UpScript, "reports_single_target")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS users")
	assert.Equal(t, "000001_init", all[0].String())
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestValidateAppliedVersions(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1}, registered))

	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")

	pending := pendingMigrations([]int{1}, registered)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func TestAutoMigrate_SeedsRoles(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, AutoMigrate(ctx, db))
	// Idempotent.
	require.NoError(t, AutoMigrate(ctx, db))

	var roles []models.RoleRecord
	require.NoError(t, db.Order("role_id").Find(&roles).Error)
	require.Len(t, roles, 4)
	assert.Equal(t, "user", roles[0].Name)
	assert.Equal(t, "admin", roles[3].Name)

	assert.True(t, db.Migrator().HasTable(&models.Event{}))
	assert.True(t, db.Migrator().HasTable("reports"))
}

func TestGetSchemaStatus_NoneMode(t *testing.T) {
	status, err := GetSchemaStatus(context.Background(), openSQLite(t), &config.Config{DBSchemaMode: "none", Env: "test"})
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.False(t, status.WillRunAuto)
	assert.Equal(t, "none", status.Mode)
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(zap.NewNop(), 100*time.Millisecond)
	quiet := l.LogMode(gormlogger.Silent)
	assert.NotSame(t, l, quiet)
	assert.Equal(t, gormlogger.Warn, l.Config.LogLevel)

	// Trace must not panic on any branch.
	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 1 }, nil)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, gorm.ErrRecordNotFound)
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "geosm"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=geosm sslmode=disable", dsn)
}
