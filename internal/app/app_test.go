package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/catalog"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/logger"
	"github.com/cesargomez89/mediasync/internal/store"
)

const testUser = "user-1"

func setupTestDB(t *testing.T) (*store.DB, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test.db")
	db, err := store.NewSQLiteDB(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	cleanup := func() {
		if cErr := db.Close(); cErr != nil {
			t.Logf("db.Close error: %v", cErr)
		}
	}
	return db, cleanup
}

func score(f float64) *float64 { return &f }

// aniListEntry renders an AniList mediaList item.
func aniListEntry(id int, title, status string, s float64, progress int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"status":%q,"score":%v,"progress":%d,"media":{"id":%d,"title":{"romaji":%q},"coverImage":{"large":"https://img.test/%d.jpg"}}}`,
		status, s, progress, id, title, id))
}

func tmdbItem(id int, title string, rating float64) json.RawMessage {
	if rating == 0 {
		return json.RawMessage(fmt.Sprintf(`{"id":%d,"title":%q,"poster_path":"/%d.jpg"}`, id, title, id))
	}
	return json.RawMessage(fmt.Sprintf(`{"id":%d,"title":%q,"poster_path":"/%d.jpg","rating":%v}`, id, title, id, rating))
}

func newManager(sources ...*catalog.MockSource) *catalog.Manager {
	m := catalog.NewManager(nil, 0, logger.Discard())
	for _, s := range sources {
		m.Register(s)
	}
	return m
}

func connect(t *testing.T, db *store.DB, provider domain.Provider) {
	t.Helper()
	err := db.SaveCredential(context.Background(), &domain.Credential{
		UserID:      testUser,
		Provider:    provider,
		AccessToken: "token",
		TokenType:   "Bearer",
	})
	if err != nil {
		t.Fatalf("SaveCredential failed: %v", err)
	}
}

func setPreference(t *testing.T, db *store.DB, pref domain.SyncPreference) {
	t.Helper()
	if err := db.SetPreference(context.Background(), testUser, pref); err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}
}

func newSyncService(db *store.DB, catalogs Catalogs) *SyncService {
	s := NewSyncService(db, db, db, catalogs, logger.Discard())
	s.Timeout = 5 * time.Second
	return s
}

func entryFor(t *testing.T, db *store.DB, key domain.MediaKey) *domain.ActivityEntry {
	t.Helper()
	ctx := context.Background()
	m, err := db.GetMediaByKey(ctx, key)
	if err != nil {
		t.Fatalf("GetMediaByKey(%s) failed: %v", key, err)
	}
	e, err := db.GetActivityEntry(ctx, testUser, m.ID)
	if err != nil {
		t.Fatalf("GetActivityEntry(%s) failed: %v", key, err)
	}
	return e
}
