package database

import (
	"fmt"
	"strings"
	"time"

	"projectflow-backend/pkg/config"
	"projectflow-backend/pkg/logger"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewConnection opens the configured database and applies pool settings.
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logger.GormLevel(cfg.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case DriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	case DriverSQLite:
		db, err = gorm.Open(sqlite.Open(SQLiteDSN(cfg.DatabaseURL)), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == DriverSQLite {
		// SQLite allows a single writer; one connection keeps transactions from
		// failing with "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	log.WithField("driver", cfg.DBDriver).Info("[Database] connected")
	return db, nil
}

// SQLiteDSN enables foreign keys and a busy timeout on a SQLite file or
// memory DSN unless the caller already set pragmas.
func SQLiteDSN(dsn string) string {
	if dsn == "" {
		dsn = "file::memory:"
	}
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
