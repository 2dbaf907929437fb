package db

import (
	"fmt"
	stdlog "log"
	"os"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/types"
	"github.com/voxnote/voxnote-backend/internal/utils"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New opens the library store. SQLite is the default; DB_DRIVER=postgres
// switches to Postgres for a shared deployment.
func New(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	gormLog := gormLogger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	// TranslateError maps driver-specific unique violations onto
	// gorm.ErrDuplicatedKey for both backends.
	cfg := &gorm.Config{Logger: gormLog, TranslateError: true}

	driver := utils.GetEnv("DB_DRIVER", "sqlite", logg)

	var (
		database *gorm.DB
		err      error
	)
	switch driver {
	case "postgres":
		host := utils.GetEnv("POSTGRES_HOST", "localhost", logg)
		port := utils.GetEnv("POSTGRES_PORT", "5432", logg)
		user := utils.GetEnv("POSTGRES_USER", "postgres", logg)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", logg)
		name := utils.GetEnv("POSTGRES_NAME", "voxnote", logg)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		database, err = gorm.Open(postgres.Open(dsn), cfg)
	default:
		path := utils.GetEnv("SQLITE_PATH", "library.sqlite", logg)
		// _fk=1 enables foreign key enforcement (SET NULL / CASCADE).
		database, err = gorm.Open(sqlite.Open("file:"+path+"?_fk=1"), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	return &Service{db: database, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error {
	return s.db.AutoMigrate(
		&types.Tag{},
		&types.Transcript{},
		&types.Document{},
		&types.ChatThread{},
		&types.ChatMessage{},
	)
}

// memoryDBCounter names each OpenMemory database uniquely so separate
// calls stay isolated from each other.
var memoryDBCounter atomic.Int64

// OpenMemory opens a throwaway in-memory SQLite store with foreign keys on.
// Test helper. cache=shared plus a single pooled connection keeps every
// caller on the same database; without both, each pooled connection gets
// its own private empty one. A per-call unique name keeps callers from
// sharing state with each other.
func OpenMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:mem%d?mode=memory&cache=shared&_fk=1", memoryDBCounter.Add(1))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := (&Service{db: database}).AutoMigrateAll(); err != nil {
		return nil, err
	}
	return database, nil
}
