package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLitePrefix selects the embedded SQLite driver, e.g. "sqlite:medvoice.db"
// or "sqlite:file::memory:?cache=shared".
const SQLitePrefix = "sqlite:"

// MemoryDSN names a private shared-cache in-memory SQLite database.
func MemoryDSN(name string) string {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	return SQLitePrefix + "file:" + name + "?mode=memory&cache=shared"
}

// Open connects to the database named by dsn. Anything without the sqlite
// prefix is handed to the Postgres driver.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	var dialector gorm.Dialector
	isSQLite := strings.HasPrefix(dsn, SQLitePrefix)
	if isSQLite {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, SQLitePrefix))
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := configureConnectionPool(db, isSQLite); err != nil {
		return nil, err
	}
	return db, nil
}

func newGormLogger(log *zap.Logger) gormlogger.Interface {
	if log == nil {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	return gormlogger.New(
		zap.NewStdLog(log.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)
}

func configureConnectionPool(db *gorm.DB, isSQLite bool) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if isSQLite {
		// a single writer keeps in-memory databases on one connection
		sqlDB.SetMaxOpenConns(1)
		return nil
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

// WaitReady pings the database with exponential backoff until it answers or
// maxWait elapses.
func WaitReady(ctx context.Context, db *gorm.DB, maxWait time.Duration, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = maxWait

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			if log != nil {
				log.Warn("database not ready", zap.Int("attempt", attempt), zap.Error(err))
			}
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
}

// Ping checks the connection once.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
