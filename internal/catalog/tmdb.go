package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/httpclient"
)

// errNoAPIKey is returned by catalogs that were configured without a key.
var errNoAPIKey = errors.New("api key not configured")

// TMDB talks to The Movie Database v3 API. User lists are read with a
// session id passed as the token's AccessToken.
type TMDB struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func NewTMDB(client *httpclient.Client, baseURL, apiKey string) *TMDB {
	return &TMDB{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (t *TMDB) Provider() domain.Provider {
	return domain.ProviderTMDB
}

type tmdbPage struct {
	Results    []json.RawMessage `json:"results"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
}

func tmdbKind(mt domain.MediaType) (string, error) {
	switch mt {
	case domain.MediaTypeMovie:
		return "movie", nil
	case domain.MediaTypeTVShow:
		return "tv", nil
	}
	return "", fmt.Errorf("%w: tmdb has no %s", domain.ErrUnsupported, mt)
}

func (t *TMDB) get(ctx context.Context, path string, q url.Values, target interface{}) error {
	if t.apiKey == "" {
		return httpclient.Permanent(t.client.Name(), errNoAPIKey)
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", t.apiKey)
	q.Set("language", "en-US")
	return t.client.GetJSON(ctx, t.baseURL+path+"?"+q.Encode(), nil, target)
}

func (t *TMDB) Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error) {
	kind, err := tmdbKind(mt)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("query", query)
	if mt == domain.MediaTypeTVShow {
		// Animation is served by the anime catalog.
		q.Set("without_genres", "16")
	}
	var page tmdbPage
	if err := t.get(ctx, "/search/"+kind, q, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (t *TMDB) Trending(ctx context.Context, mt domain.MediaType) ([]json.RawMessage, error) {
	kind, err := tmdbKind(mt)
	if err != nil {
		return nil, err
	}
	var page tmdbPage
	if err := t.get(ctx, "/trending/"+kind+"/week", nil, &page); err != nil {
		return nil, err
	}
	if len(page.Results) > constants.TMDBTrendingLimit {
		page.Results = page.Results[:constants.TMDBTrendingLimit]
	}
	return page.Results, nil
}

// UserLists returns watchlists before rated lists so that, when both hold
// a title, the rated entry is applied last.
func (t *TMDB) UserLists(ctx context.Context, tok *oauth2.Token) ([]UserList, error) {
	if err := httpclient.ValidToken(t.client.Name(), tok); err != nil {
		return nil, err
	}
	session := tok.AccessToken

	q := url.Values{}
	q.Set("session_id", session)
	var account struct {
		ID int64 `json:"id"`
	}
	if err := t.get(ctx, "/account", q, &account); err != nil {
		return nil, fmt.Errorf("failed to resolve tmdb account: %w", err)
	}
	if account.ID == 0 {
		return nil, httpclient.Permanent(t.client.Name(), errors.New("tmdb account has no id"))
	}
	accountID := strconv.FormatInt(account.ID, 10)

	kinds := []struct {
		list string
		kind ListKind
		path string
		mt   domain.MediaType
	}{
		{"watchlist", ListKindWatchlist, "movies", domain.MediaTypeMovie},
		{"watchlist", ListKindWatchlist, "tv", domain.MediaTypeTVShow},
		{"rated", ListKindRated, "movies", domain.MediaTypeMovie},
		{"rated", ListKindRated, "tv", domain.MediaTypeTVShow},
	}

	lists := make([]UserList, 0, len(kinds))
	for _, s := range kinds {
		lists = append(lists, UserList{
			Name:      fmt.Sprintf("tmdb-%s-%s", s.list, s.path),
			MediaType: s.mt,
			Kind:      s.kind,
			Fetch:     t.listFetcher(fmt.Sprintf("/account/%s/%s/%s", accountID, s.list, s.path), session),
		})
	}
	return lists, nil
}

func (t *TMDB) listFetcher(path, session string) func(context.Context) ([]json.RawMessage, error) {
	return func(ctx context.Context) ([]json.RawMessage, error) {
		return CollectAll(ctx, func(ctx context.Context, page int) ([]json.RawMessage, bool, error) {
			q := url.Values{}
			q.Set("session_id", session)
			q.Set("page", strconv.Itoa(page))
			var resp tmdbPage
			if err := t.get(ctx, path, q, &resp); err != nil {
				return nil, false, err
			}
			return resp.Results, page < resp.TotalPages, nil
		})
	}
}

type tmdbItem struct {
	Rating        *float64 `json:"rating"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	Name          string   `json:"name"`
	OriginalName  string   `json:"original_name"`
	PosterPath    string   `json:"poster_path"`
	Overview      string   `json:"overview"`
	ID            int64    `json:"id"`
}

// TMDBNormalizer maps TMDB movie and tv payloads.
type TMDBNormalizer struct{}

func (TMDBNormalizer) Provider() domain.Provider {
	return domain.ProviderTMDB
}

func (n TMDBNormalizer) NormalizeMedia(raw json.RawMessage, mt domain.MediaType) (*domain.CanonicalMedia, error) {
	var it tmdbItem
	if err := decode(domain.ProviderTMDB, raw, &it); err != nil {
		return nil, err
	}
	return n.media(&it, mt)
}

func (TMDBNormalizer) media(it *tmdbItem, mt domain.MediaType) (*domain.CanonicalMedia, error) {
	var primary, secondary string
	if mt == domain.MediaTypeTVShow {
		primary, secondary = pickTitles(it.Name, it.OriginalName, it.Title)
	} else {
		primary, secondary = pickTitles(it.Title, it.OriginalTitle, it.Name)
	}
	media, err := newMedia(domain.ProviderTMDB, mt, idString(it.ID), primary, secondary)
	if err != nil {
		return nil, err
	}
	media.CoverImageURL = absoluteURL(constants.TMDBImageBase, it.PosterPath)
	media.Description = it.Overview
	return media, nil
}

func (n TMDBNormalizer) NormalizeEntry(item ListItem) (*domain.RemoteEntry, error) {
	var it tmdbItem
	if err := decode(domain.ProviderTMDB, item.Raw, &it); err != nil {
		return nil, err
	}
	media, err := n.media(&it, item.MediaType)
	if err != nil {
		return nil, err
	}

	entry := &domain.RemoteEntry{Media: *media, Status: domain.StatusPlanned}
	if item.Kind == ListKindRated {
		entry.Status = domain.StatusCompleted
		if it.Rating != nil {
			entry.Score = NormalizeScore(*it.Rating)
		}
	}
	return entry, nil
}

var (
	_ Searcher   = (*TMDB)(nil)
	_ Trender    = (*TMDB)(nil)
	_ Syncer     = (*TMDB)(nil)
	_ Normalizer = TMDBNormalizer{}
)
