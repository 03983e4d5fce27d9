package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memoryRecord is the gorm model backing the sqlite store.
type memoryRecord struct {
	ID        string `gorm:"primaryKey"`
	Identity  string `gorm:"index:idx_memories_identity"`
	Content   string
	CreatedAt time.Time
}

func (memoryRecord) TableName() string { return "memories" }

// SQLiteStore is the local memory store implementation.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (creating if needed) a sqlite-backed memory store
// at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	if err := db.AutoMigrate(&memoryRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate memory schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save persists content for the given identity.
func (s *SQLiteStore) Save(ctx context.Context, identity, content string) (*Entry, error) {
	rec := memoryRecord{
		ID:        uuid.New().String(),
		Identity:  identity,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("failed to save memory: %w", err)
	}

	return &Entry{
		ID:        rec.ID,
		Identity:  rec.Identity,
		Content:   rec.Content,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Search ranks the identity's entries against the query keywords. The
// candidate set is bounded by the per-identity quota, so ranking in
// process stays cheap.
func (s *SQLiteStore) Search(ctx context.Context, identity, query string, limit int) ([]Result, error) {
	var records []memoryRecord
	err := s.db.WithContext(ctx).
		Where("identity = ?", identity).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}

	keywords := ExtractKeywords(query)
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		score := ScoreContent(rec.Content, keywords)
		if score <= 0 {
			continue
		}
		results = append(results, Result{
			Entry: Entry{
				ID:        rec.ID,
				Identity:  rec.Identity,
				Content:   rec.Content,
				CreatedAt: rec.CreatedAt,
			},
			Score: score,
		})
	}

	return NormalizeScores(RankResults(results, limit)), nil
}

// Count returns the number of entries stored for the identity.
func (s *SQLiteStore) Count(ctx context.Context, identity string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&memoryRecord{}).
		Where("identity = ?", identity).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count memories: %w", err)
	}
	return int(n), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
