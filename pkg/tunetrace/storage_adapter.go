package tunetrace

import (
	"context"

	"github.com/tunetrace/tunetrace/pkg/tunetrace/enrich"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/storage"
)

// SQLiteTabStore adapts storage.DBClient to the enrich.TabStore
// capability the tab lookup consumes.
type SQLiteTabStore struct {
	db *storage.DBClient
}

// NewSQLiteTabStore opens the sqlite-backed tablature store at dbPath.
func NewSQLiteTabStore(dbPath string) (*SQLiteTabStore, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteTabStore{db: db}, nil
}

// FindTab returns the stored tab for (artist, title), nil on a miss.
func (s *SQLiteTabStore) FindTab(ctx context.Context, artist, title string) (*enrich.Tab, error) {
	rec, err := s.db.GetTab(ctx, artist, title)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return &enrich.Tab{
		Artist: rec.Artist,
		Title:  rec.Title,
		Text:   rec.TabText,
	}, nil
}

func (s *SQLiteTabStore) Close() error {
	return s.db.Close()
}
