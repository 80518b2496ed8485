package app

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/catalog"
	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/dedupe"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/fanout"
	"github.com/cesargomez89/mediasync/internal/logger"
)

type SearchResult struct {
	Items    []domain.CanonicalMedia `json:"items"`
	Failures []fanout.Failure        `json:"failures,omitempty"`
}

// TrendingGroup is the trending list of one media type.
type TrendingGroup struct {
	MediaType domain.MediaType        `json:"media_type"`
	Provider  domain.Provider         `json:"provider"`
	Items     []domain.CanonicalMedia `json:"items"`
}

type TrendingResult struct {
	Groups   []TrendingGroup  `json:"groups"`
	Failures []fanout.Failure `json:"failures,omitempty"`
}

// SearchService answers interactive catalog queries across providers.
// Provider failures never fail a query; they are reported next to the
// results that did arrive.
type SearchService struct {
	Catalogs Catalogs
	Prefs    PreferenceSource
	Logger   *logger.Logger
	Limit    int
	Timeout  time.Duration
}

func NewSearchService(catalogs Catalogs, prefs PreferenceSource, log *logger.Logger) *SearchService {
	return &SearchService{
		Catalogs: catalogs,
		Prefs:    prefs,
		Logger:   log.WithComponent("search"),
		Limit:    constants.DefaultFanoutLimit,
		Timeout:  constants.DefaultSearchTimeout,
	}
}

// fetched is the raw output of one source for one media type.
type fetched struct {
	provider domain.Provider
	raw      []json.RawMessage
}

func (s *SearchService) preference(ctx context.Context, userID string) domain.SyncPreference {
	if s.Prefs == nil || userID == "" {
		return domain.DefaultSyncPreference()
	}
	pref, err := s.Prefs.GetPreference(ctx, userID)
	if err != nil {
		s.Logger.Warn("Falling back to default preference", "user_id", userID, "error", err)
		return domain.DefaultSyncPreference()
	}
	return pref
}

// fanOut calls fn on the source routed for every media type and returns
// one outcome per type, in the order of types.
func (s *SearchService) fanOut(ctx context.Context, userID, operation string, types []domain.MediaType,
	fn func(ctx context.Context, src catalog.Source, mt domain.MediaType) ([]json.RawMessage, error),
) []fanout.Outcome[domain.MediaType, fetched] {
	if len(types) == 0 {
		types = domain.MediaTypes
	}
	pref := s.preference(ctx, userID)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	tasks := make([]fanout.Task[domain.MediaType, fetched], 0, len(types))
	for _, mt := range types {
		mt := mt
		src, err := s.Catalogs.SourceFor(mt, pref)
		tasks = append(tasks, fanout.Task[domain.MediaType, fetched]{
			Key: mt,
			Run: func(ctx context.Context) (fetched, error) {
				if err != nil {
					return fetched{}, err
				}
				raw, err := fn(ctx, src, mt)
				return fetched{provider: src.Provider(), raw: raw}, err
			},
		})
	}

	outcomes := fanout.Run(ctx, s.Limit, tasks)
	recordFanout(operation, outcomes)
	for _, o := range outcomes {
		if o.Err != nil {
			s.Logger.Warn("Provider call failed", "operation", operation, "media_type", o.Key, "provider", o.Value.provider, "error", o.Err)
		}
	}
	return outcomes
}

// normalizeAll maps raw payloads to media. Malformed items are dropped and,
// when requireImage is set, so are items without a cover.
func (s *SearchService) normalizeAll(f fetched, mt domain.MediaType, requireImage bool) []domain.CanonicalMedia {
	n, err := catalog.NormalizerFor(f.provider)
	if err != nil {
		s.Logger.Error("No normalizer", "provider", f.provider, "error", err)
		return nil
	}
	out := make([]domain.CanonicalMedia, 0, len(f.raw))
	for _, raw := range f.raw {
		m, err := n.NormalizeMedia(raw, mt)
		if err != nil {
			s.Logger.Debug("Dropping malformed item", "provider", f.provider, "error", err)
			continue
		}
		if requireImage && m.CoverImageURL == "" {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// Search queries the catalog of every requested media type concurrently.
// Results keep only items with a cover image and are deduplicated across
// providers in provider priority order.
func (s *SearchService) Search(ctx context.Context, userID, query string, types []domain.MediaType) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &SearchResult{Items: []domain.CanonicalMedia{}}, nil
	}

	outcomes := s.fanOut(ctx, userID, "search", types, func(ctx context.Context, src catalog.Source, mt domain.MediaType) ([]json.RawMessage, error) {
		return src.Search(ctx, query, mt)
	})

	byProvider := make(map[domain.Provider][]domain.CanonicalMedia)
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		byProvider[o.Value.provider] = append(byProvider[o.Value.provider], s.normalizeAll(o.Value, o.Key, true)...)
	}

	groups := make([][]domain.CanonicalMedia, 0, len(byProvider))
	for _, p := range domain.Providers {
		if items, ok := byProvider[p]; ok {
			groups = append(groups, items)
		}
	}
	items := dedupe.Merge(groups...)
	if items == nil {
		items = []domain.CanonicalMedia{}
	}
	if len(items) > constants.MaxSearchResults {
		items = items[:constants.MaxSearchResults]
	}

	result := &SearchResult{Items: items}
	if partial := fanout.Partial(outcomes); partial != nil {
		result.Failures = partial.Failures
	}
	return result, nil
}

// Trending returns each requested media type's trending list as reported
// by its provider. Lists are not deduplicated.
func (s *SearchService) Trending(ctx context.Context, userID string, types []domain.MediaType) (*TrendingResult, error) {
	outcomes := s.fanOut(ctx, userID, "trending", types, func(ctx context.Context, src catalog.Source, mt domain.MediaType) ([]json.RawMessage, error) {
		return src.Trending(ctx, mt)
	})

	result := &TrendingResult{Groups: []TrendingGroup{}}
	for _, o := range outcomes {
		if !o.OK() {
			continue
		}
		result.Groups = append(result.Groups, TrendingGroup{
			MediaType: o.Key,
			Provider:  o.Value.provider,
			Items:     s.normalizeAll(o.Value, o.Key, false),
		})
	}
	if partial := fanout.Partial(outcomes); partial != nil {
		result.Failures = partial.Failures
	}
	return result, nil
}
