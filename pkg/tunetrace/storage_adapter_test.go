package tunetrace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tunetrace/tunetrace/pkg/tunetrace/storage"
)

func TestSQLiteTabStoreFindTab(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tabs.sqlite3")

	// Populate through the storage layer directly, the way the external
	// population job does.
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	if _, err := db.UpsertTab(context.Background(), "Eagles", "Hotel California", "e|---0---|", ""); err != nil {
		t.Fatalf("UpsertTab failed: %v", err)
	}
	db.Close()

	store, err := NewSQLiteTabStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteTabStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tab, err := store.FindTab(context.Background(), "eagles", "HOTEL CALIFORNIA")
	if err != nil {
		t.Fatalf("FindTab failed: %v", err)
	}
	if tab == nil {
		t.Fatal("case-insensitive lookup missed a stored tab")
	}
	if tab.Text != "e|---0---|" {
		t.Errorf("Text = %q", tab.Text)
	}

	miss, err := store.FindTab(context.Background(), "Nobody", "Nothing")
	if err != nil {
		t.Fatalf("FindTab miss errored: %v", err)
	}
	if miss != nil {
		t.Errorf("got %+v, want nil for a miss", miss)
	}
}
