package catalog

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/httpclient"
)

// RAWG is an alternative games catalog. It has no user lists.
type RAWG struct {
	client  *httpclient.Client
	now     func() time.Time
	baseURL string
	apiKey  string
}

func NewRAWG(client *httpclient.Client, baseURL, apiKey string) *RAWG {
	return &RAWG{client: client, baseURL: baseURL, apiKey: apiKey, now: time.Now}
}

func (r *RAWG) Provider() domain.Provider {
	return domain.ProviderRAWG
}

func (r *RAWG) games(ctx context.Context, q url.Values) ([]json.RawMessage, error) {
	if r.apiKey == "" {
		return nil, httpclient.Permanent(r.client.Name(), errNoAPIKey)
	}
	q.Set("key", r.apiKey)
	q.Set("page_size", strconv.Itoa(constants.RAWGPageSize))
	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := r.client.GetJSON(ctx, r.baseURL+"/games?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (r *RAWG) Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error) {
	if err := requireGame(domain.ProviderRAWG, mt); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("search", query)
	return r.games(ctx, q)
}

// Trending returns the most added games released in the recent window.
func (r *RAWG) Trending(ctx context.Context, mt domain.MediaType) ([]json.RawMessage, error) {
	if err := requireGame(domain.ProviderRAWG, mt); err != nil {
		return nil, err
	}
	end := r.now().UTC()
	start := end.AddDate(0, 0, -constants.RAWGTrendingDays)
	q := url.Values{}
	q.Set("dates", start.Format("2006-01-02")+","+end.Format("2006-01-02"))
	q.Set("ordering", "-added")
	return r.games(ctx, q)
}

type rawgGame struct {
	Name            string `json:"name"`
	BackgroundImage string `json:"background_image"`
	DescriptionRaw  string `json:"description_raw"`
	ID              int64  `json:"id"`
}

// RAWGNormalizer maps RAWG game payloads.
type RAWGNormalizer struct{}

func (RAWGNormalizer) Provider() domain.Provider {
	return domain.ProviderRAWG
}

func (RAWGNormalizer) NormalizeMedia(raw json.RawMessage, mt domain.MediaType) (*domain.CanonicalMedia, error) {
	var g rawgGame
	if err := decode(domain.ProviderRAWG, raw, &g); err != nil {
		return nil, err
	}
	media, err := newMedia(domain.ProviderRAWG, mt, idString(g.ID), g.Name, "")
	if err != nil {
		return nil, err
	}
	media.CoverImageURL = g.BackgroundImage
	media.Description = g.DescriptionRaw
	return media, nil
}

func (RAWGNormalizer) NormalizeEntry(item ListItem) (*domain.RemoteEntry, error) {
	return nil, domain.Malformed(domain.ProviderRAWG, "rawg has no user lists", domain.ErrUnsupported)
}

var (
	_ Searcher   = (*RAWG)(nil)
	_ Trender    = (*RAWG)(nil)
	_ Normalizer = RAWGNormalizer{}
)
