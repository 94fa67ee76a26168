package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Service owns the process-wide connection pool.
type Service struct {
	db      *gorm.DB
	log     *logger.Logger
	dialect string
}

// NewService opens DATABASE_URL. postgres:// and postgresql:// URLs use pgx
// (pgvector in production); sqlite:// and file: URLs use sqlite for local runs.
func NewService(logg *logger.Logger, databaseURL string) (*Service, error) {
	serviceLog := logg.With("service", "DatabaseService")

	dialector, dialect, err := dialectorFor(databaseURL)
	if err != nil {
		return nil, err
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}

	if dialect == DialectPostgres {
		if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
			return nil, fmt.Errorf("failed to enable vector extension: %w", err)
		}
	}

	serviceLog.Info("Database connected", "dialect", dialect, "database_url", databaseURL)
	return &Service{db: gdb, log: serviceLog, dialect: dialect}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Dialect() string { return s.dialect }

func (s *Service) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(databaseURL string) (gorm.Dialector, string, error) {
	raw := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(raw)
	switch {
	case raw == "":
		return nil, "", fmt.Errorf("missing DATABASE_URL")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return postgres.Open(raw), DialectPostgres, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return sqlite.Open(SQLiteDSN(raw[len("sqlite://"):])), DialectSQLite, nil
	case strings.HasPrefix(lower, "file:"):
		return sqlite.Open(SQLiteDSN(raw)), DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("unsupported DATABASE_URL scheme (want postgres://, postgresql://, sqlite:// or file:)")
	}
}

// SQLiteDSN turns a path into a DSN with foreign keys enforced, which the
// embeddings cascade depends on.
func SQLiteDSN(path string) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// OpenSQLite opens a sqlite database at path with the package defaults.
func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(SQLiteDSN(path)), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
}
