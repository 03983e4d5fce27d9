package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sessionRecord is the gorm model backing the sqlite session store.
type sessionRecord struct {
	Locator        string `gorm:"primaryKey"`
	Identity       string
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

func (sessionRecord) TableName() string { return "sessions" }

// SQLiteStore is the default durable session store.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) the session database under
// dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(dataDir, "sessions.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate session schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the context for a locator, or nil when absent.
func (s *SQLiteStore) Load(locator string) (*Context, error) {
	var rec sessionRecord
	err := s.db.Where("locator = ?", locator).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return &Context{
		Identity:       rec.Identity,
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
	}, nil
}

// Save persists the context for a locator.
func (s *SQLiteStore) Save(locator string, sc *Context) error {
	rec := sessionRecord{
		Locator:        locator,
		Identity:       sc.Identity,
		CreatedAt:      sc.CreatedAt,
		LastAccessedAt: sc.LastAccessedAt,
	}
	if err := s.db.Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
