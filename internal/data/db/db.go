package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/lessongen/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	// DSN is a postgres URL, or a sqlite file path / "file::memory:?cache=shared".
	DSN           string
	SlowThreshold time.Duration
	MaxOpenConns  int
}

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func Open(logg *logger.Logger, cfg Config) (*Service, error) {
	serviceLog := logg.With("service", "DBService", "driver", cfg.Driver)

	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = time.Second
	}
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("missing postgres DSN")
		}
		conn, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
	case DriverSQLite:
		dsn := strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		conn, err = gorm.Open(sqlite.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		cfg.MaxOpenConns = 1
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("db handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	serviceLog.Info("Database connected")
	return &Service{db: conn, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error { return AutoMigrateAll(s.db) }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
