package app

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/catalog"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/fanout"
	"github.com/cesargomez89/mediasync/internal/metrics"
)

// Store is the persistence the services need. *store.DB implements it.
type Store interface {
	UpsertMedia(ctx context.Context, m *domain.CanonicalMedia) error
	GetActivityEntry(ctx context.Context, userID string, mediaID int64) (*domain.ActivityEntry, error)
	UpsertActivityEntry(ctx context.Context, e *domain.ActivityEntry) error
	ListActivityEntries(ctx context.Context, userID string) ([]domain.ActivityEntry, error)
}

// PreferenceSource supplies the per-user merge policy.
type PreferenceSource interface {
	GetPreference(ctx context.Context, userID string) (domain.SyncPreference, error)
}

// TokenSource supplies provider credentials obtained outside the engine.
type TokenSource interface {
	Token(ctx context.Context, userID string, provider domain.Provider) (*oauth2.Token, error)
}

// SyncRecorder remembers when a user last completed a sync.
type SyncRecorder interface {
	RecordSync(userID string, provider domain.Provider, at time.Time) error
}

// Catalogs resolves registered provider catalogs. *catalog.Manager
// implements it.
type Catalogs interface {
	Syncer(p domain.Provider) (catalog.Syncer, error)
	SourceFor(mt domain.MediaType, pref domain.SyncPreference) (catalog.Source, error)
}

func recordFanout[K comparable, V any](operation string, outcomes []fanout.Outcome[K, V]) {
	for _, o := range outcomes {
		result := "ok"
		if o.Err != nil {
			result = "failed"
		}
		metrics.FanoutTasks.WithLabelValues(operation, result).Inc()
	}
}
