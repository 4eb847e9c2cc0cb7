package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultDBFile = "tunetrace.sqlite3"
const errDBClientNil = "db client is nil"

// DBClient wraps the tablature store database.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// TabRecord is one stored tablature, keyed by (artist, title). SQLite's
// default NOCASE-insensitive matching is applied explicitly in queries so
// lookups are case-insensitive exact matches.
type TabRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Artist    string `gorm:"uniqueIndex:idx_tab_unique,priority:1;index:idx_tab_meta,priority:1" json:"artist"`
	Title     string `gorm:"uniqueIndex:idx_tab_unique,priority:2;index:idx_tab_meta,priority:2" json:"title"`
	TabText   string `json:"tab_text"`
	SourceURL string `json:"source_url"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDBClient opens the store at the TAB_DB_PATH env location, or the
// default file.
func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("TAB_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

// NewDBClientWithPath opens (creating if needed) the store at dbPath.
func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !os.IsExist(err) {
		if filepath.Dir(dbPath) != "." {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&TabRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// GetTab returns the stored tab for (artist, title), matched
// case-insensitively. A nil record with nil error is a miss.
func (c *DBClient) GetTab(ctx context.Context, artist, title string) (*TabRecord, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rec TabRecord
	err := c.DB.WithContext(ctx).
		Where("artist = ? COLLATE NOCASE AND title = ? COLLATE NOCASE", artist, title).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying tab: %w", err)
	}
	return &rec, nil
}

// UpsertTab stores or replaces the tab for (artist, title). Used by the
// external population job; replace is whole-record, never partial.
func (c *DBClient) UpsertTab(ctx context.Context, artist, title, tabText, sourceURL string) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	existing, err := c.GetTab(ctx, artist, title)
	if err != nil {
		return "", err
	}
	if existing != nil {
		existing.TabText = tabText
		existing.SourceURL = sourceURL
		if err := c.DB.WithContext(ctx).Save(existing).Error; err != nil {
			return "", fmt.Errorf("updating tab: %w", err)
		}
		return existing.ID, nil
	}

	rec := TabRecord{
		ID:        uuid.NewString(),
		Artist:    artist,
		Title:     title,
		TabText:   tabText,
		SourceURL: sourceURL,
	}
	if err := c.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return "", fmt.Errorf("creating tab: %w", err)
	}
	return rec.ID, nil
}

// UpsertTabs stores a batch of tabs in one transaction, for the external
// population job. All-or-nothing; any failure rolls the batch back.
func (c *DBClient) UpsertTabs(ctx context.Context, tabs []TabRecord) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tabs {
			var existing TabRecord
			err := tx.Where("artist = ? COLLATE NOCASE AND title = ? COLLATE NOCASE", t.Artist, t.Title).
				First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				t.ID = uuid.NewString()
				if err := tx.Create(&t).Error; err != nil {
					return fmt.Errorf("creating tab %q/%q: %w", t.Artist, t.Title, err)
				}
			case err != nil:
				return fmt.Errorf("querying tab %q/%q: %w", t.Artist, t.Title, err)
			default:
				existing.TabText = t.TabText
				existing.SourceURL = t.SourceURL
				if err := tx.Save(&existing).Error; err != nil {
					return fmt.Errorf("updating tab %q/%q: %w", t.Artist, t.Title, err)
				}
			}
		}
		return nil
	})
}

// DeleteTab removes a stored tab by ID.
func (c *DBClient) DeleteTab(ctx context.Context, id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.WithContext(ctx).Where("id = ?", id).Delete(&TabRecord{}).Error
}

// CountTabs reports how many tabs the store holds.
func (c *DBClient) CountTabs(ctx context.Context) (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.WithContext(ctx).Model(&TabRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting tabs: %w", err)
	}
	return count, nil
}
