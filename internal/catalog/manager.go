package catalog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cesargomez89/mediasync/internal/domain"
)

type Logger interface {
	With(keyValues ...interface{}) *slog.Logger
	Info(msg string, keyValues ...interface{})
	Error(msg string, keyValues ...interface{})
}

// Manager holds the configured catalogs keyed by provider and decides which
// one serves a media type.
type Manager struct {
	sources  map[domain.Provider]Source
	syncers  map[domain.Provider]Syncer
	cache    Cache
	logger   Logger
	cacheTTL time.Duration
	mu       sync.RWMutex
}

// NewManager returns an empty manager. A nil cache disables caching.
func NewManager(cache Cache, cacheTTL time.Duration, logger Logger) *Manager {
	return &Manager{
		sources:  make(map[domain.Provider]Source),
		syncers:  make(map[domain.Provider]Syncer),
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Register adds a catalog. It is indexed as a Source and as a Syncer
// depending on what it implements. Registering a provider twice replaces
// the previous catalog and clears the cache.
func (m *Manager) Register(c interface{ Provider() domain.Provider }) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := c.Provider()
	_, replaced := m.sources[p]
	if _, ok := m.syncers[p]; ok {
		replaced = true
	}

	delete(m.sources, p)
	delete(m.syncers, p)
	if src, ok := c.(Source); ok {
		if m.cache != nil {
			src = NewCachedSource(src, m.cache, m.cacheTTL)
		}
		m.sources[p] = src
	}
	if s, ok := c.(Syncer); ok {
		m.syncers[p] = s
	}

	if replaced && m.cache != nil {
		_ = m.cache.ClearCache()
	}
	if m.logger != nil {
		m.logger.Info("Registered catalog", "provider", p, "replaced", replaced)
	}
}

func (m *Manager) Source(p domain.Provider) (Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[p]
	if !ok {
		return nil, fmt.Errorf("%w: no catalog for %s", domain.ErrUnsupported, p)
	}
	return src, nil
}

func (m *Manager) Syncer(p domain.Provider) (Syncer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.syncers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s does not support list sync", domain.ErrUnsupported, p)
	}
	return s, nil
}

// Providers returns the registered search providers in priority order.
func (m *Manager) Providers() []domain.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Provider, 0, len(m.sources))
	for _, p := range domain.Providers {
		if _, ok := m.sources[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Route returns the provider that serves mt for a user.
func Route(mt domain.MediaType, pref domain.SyncPreference) (domain.Provider, error) {
	switch mt {
	case domain.MediaTypeAnime, domain.MediaTypeManga:
		return domain.ProviderAniList, nil
	case domain.MediaTypeMovie, domain.MediaTypeTVShow:
		return domain.ProviderTMDB, nil
	case domain.MediaTypeGame:
		if pref.UseRawgForGames {
			return domain.ProviderRAWG, nil
		}
		return domain.ProviderSteam, nil
	case domain.MediaTypeBook:
		return domain.ProviderGoogleBooks, nil
	}
	return "", fmt.Errorf("%w: media type %q", domain.ErrUnsupported, mt)
}

// SourceFor resolves Route and the registered catalog in one step.
func (m *Manager) SourceFor(mt domain.MediaType, pref domain.SyncPreference) (Source, error) {
	p, err := Route(mt, pref)
	if err != nil {
		return nil, err
	}
	return m.Source(p)
}

// ClearCache drops every cached catalog response.
func (m *Manager) ClearCache() error {
	if m.cache == nil {
		return nil
	}
	return m.cache.ClearCache()
}
