package db

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lendery/backend/internal/models"
	cfgpkg "github.com/lendery/backend/pkg/config"
	gormzap "github.com/lendery/backend/pkg/gormlog"
)

// NewDB opens the embedded SQLite datastore. The database is single-writer:
// concurrent writers serialize at the storage layer and surface as busy/locked
// errors, which the retry package absorbs. WAL keeps readers unblocked while a
// writer holds the lock; busy_timeout gives the driver a first line of defense
// before our own retries kick in.
func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.Path == "" {
		l.Error("database path is empty")
		return nil, gorm.ErrInvalidDB
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		cfg.Database.Path, cfg.Database.BusyTimeoutMS)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormzap.New(l),
		// TranslateError maps the driver's unique-constraint failure to
		// gorm.ErrDuplicatedKey, which the replay guard relies on.
		TranslateError: true,
	})
	if err != nil {
		l.Errorf("failed to open sqlite database: %v", err)
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// A single connection avoids writer-vs-writer lock storms inside the
	// process; cross-process contention still shows up as busy errors.
	sqlDB.SetMaxOpenConns(1)
	l.Infow("opened sqlite database", "path", cfg.Database.Path)
	return gdb, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.ProcessedEvent{},
		&models.ListingPaymentState{},
		&models.PaymentRecord{},
		&models.AuditEntry{},
		&models.Account{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing sqlite database")
			return sqlDB.Close()
		},
	})
}
