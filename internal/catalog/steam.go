package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/fanout"
	"github.com/cesargomez89/mediasync/internal/httpclient"
)

// Steam searches the Steam store and reads a user's owned games. The token
// carries the user's Steam id; the Web API key comes from configuration.
type Steam struct {
	client   *httpclient.Client
	apiURL   string
	storeURL string
	apiKey   string
}

func NewSteam(client *httpclient.Client, apiURL, storeURL, apiKey string) *Steam {
	return &Steam{client: client, apiURL: apiURL, storeURL: storeURL, apiKey: apiKey}
}

func (s *Steam) Provider() domain.Provider {
	return domain.ProviderSteam
}

func requireGame(p domain.Provider, mt domain.MediaType) error {
	if mt != domain.MediaTypeGame {
		return fmt.Errorf("%w: %s has no %s", domain.ErrUnsupported, p, mt)
	}
	return nil
}

func (s *Steam) Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error) {
	if err := requireGame(domain.ProviderSteam, mt); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("term", query)
	q.Set("cc", "us")
	q.Set("l", "english")
	q.Set("category1", "998")

	var resp struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := s.client.GetJSON(ctx, s.storeURL+"/api/storesearch/?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, constants.SteamSearchLimit)
	for _, raw := range resp.Items {
		var peek struct {
			Type string `json:"type"`
		}
		// Undecodable items are passed through and rejected by the normalizer.
		if err := json.Unmarshal(raw, &peek); err == nil && peek.Type != "app" {
			continue
		}
		out = append(out, raw)
		if len(out) == constants.SteamSearchLimit {
			break
		}
	}
	return out, nil
}

type steamApp struct {
	Name        string `json:"name"`
	HeaderImage string `json:"header_image"`
	Description string `json:"short_description,omitempty"`
	AppID       int64  `json:"appid"`
}

// Trending returns the most played games enriched with store details.
func (s *Steam) Trending(ctx context.Context, mt domain.MediaType) ([]json.RawMessage, error) {
	if err := requireGame(domain.ProviderSteam, mt); err != nil {
		return nil, err
	}
	var charts struct {
		Response struct {
			Ranks []struct {
				AppID int64 `json:"appid"`
			} `json:"ranks"`
		} `json:"response"`
	}
	if err := s.client.GetJSON(ctx, s.apiURL+"/ISteamChartsService/GetMostPlayedGames/v1/", nil, &charts); err != nil {
		return nil, err
	}

	ranks := charts.Response.Ranks
	if len(ranks) > constants.SteamPopularLimit {
		ranks = ranks[:constants.SteamPopularLimit]
	}

	tasks := make([]fanout.Task[int64, *steamApp], 0, len(ranks))
	for _, r := range ranks {
		appID := r.AppID
		tasks = append(tasks, fanout.Task[int64, *steamApp]{
			Key: appID,
			Run: func(ctx context.Context) (*steamApp, error) { return s.appDetails(ctx, appID) },
		})
	}

	var out []json.RawMessage
	var firstErr error
	for _, o := range fanout.Run(ctx, 4, tasks) {
		if o.Err != nil {
			if firstErr == nil {
				firstErr = o.Err
			}
			continue
		}
		if o.Value == nil {
			continue
		}
		raw, err := json.Marshal(o.Value)
		if err != nil {
			continue
		}
		out = append(out, raw)
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// appDetails returns nil without error for apps that are not games.
func (s *Steam) appDetails(ctx context.Context, appID int64) (*steamApp, error) {
	id := strconv.FormatInt(appID, 10)
	q := url.Values{}
	q.Set("appids", id)
	q.Set("cc", "us")
	q.Set("l", "english")

	var resp map[string]struct {
		Data struct {
			Type             string `json:"type"`
			Name             string `json:"name"`
			HeaderImage      string `json:"header_image"`
			ShortDescription string `json:"short_description"`
		} `json:"data"`
		Success bool `json:"success"`
	}
	if err := s.client.GetJSON(ctx, s.storeURL+"/api/appdetails?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	detail, ok := resp[id]
	if !ok || !detail.Success || detail.Data.Type != "game" {
		return nil, nil
	}
	return &steamApp{
		AppID:       appID,
		Name:        detail.Data.Name,
		HeaderImage: detail.Data.HeaderImage,
		Description: detail.Data.ShortDescription,
	}, nil
}

// UserLists returns the owned games library. Steam reports it in one page.
func (s *Steam) UserLists(ctx context.Context, tok *oauth2.Token) ([]UserList, error) {
	if err := httpclient.ValidToken(s.client.Name(), tok); err != nil {
		return nil, err
	}
	if s.apiKey == "" {
		return nil, httpclient.Permanent(s.client.Name(), errNoAPIKey)
	}
	steamID := tok.AccessToken

	fetch := func(ctx context.Context) ([]json.RawMessage, error) {
		return CollectAll(ctx, func(ctx context.Context, page int) ([]json.RawMessage, bool, error) {
			q := url.Values{}
			q.Set("key", s.apiKey)
			q.Set("steamid", steamID)
			q.Set("include_appinfo", "1")
			q.Set("format", "json")
			var resp struct {
				Response struct {
					Games []json.RawMessage `json:"games"`
				} `json:"response"`
			}
			if err := s.client.GetJSON(ctx, s.apiURL+"/IPlayerService/GetOwnedGames/v1/?"+q.Encode(), nil, &resp); err != nil {
				return nil, false, err
			}
			return resp.Response.Games, false, nil
		})
	}

	return []UserList{{Name: "steam-library", MediaType: domain.MediaTypeGame, Kind: ListKindLibrary, Fetch: fetch}}, nil
}

type steamItem struct {
	Name             string `json:"name"`
	TinyImage        string `json:"tiny_image"`
	HeaderImage      string `json:"header_image"`
	ShortDescription string `json:"short_description"`
	ID               int64  `json:"id"`
	AppID            int64  `json:"appid"`
	PlaytimeForever  int    `json:"playtime_forever"`
}

// SteamNormalizer maps store search items, app details and owned games.
type SteamNormalizer struct{}

func (SteamNormalizer) Provider() domain.Provider {
	return domain.ProviderSteam
}

func (SteamNormalizer) item(raw json.RawMessage, mt domain.MediaType) (*steamItem, *domain.CanonicalMedia, error) {
	var it steamItem
	if err := decode(domain.ProviderSteam, raw, &it); err != nil {
		return nil, nil, err
	}
	id := it.AppID
	if id == 0 {
		id = it.ID
	}
	media, err := newMedia(domain.ProviderSteam, mt, idString(id), it.Name, "")
	if err != nil {
		return nil, nil, err
	}
	switch {
	case it.HeaderImage != "":
		media.CoverImageURL = it.HeaderImage
	case it.TinyImage != "":
		media.CoverImageURL = it.TinyImage
	}
	media.Description = it.ShortDescription
	return &it, media, nil
}

func (n SteamNormalizer) NormalizeMedia(raw json.RawMessage, mt domain.MediaType) (*domain.CanonicalMedia, error) {
	_, media, err := n.item(raw, mt)
	return media, err
}

// NormalizeEntry uses lifetime playtime in minutes as progress.
func (n SteamNormalizer) NormalizeEntry(item ListItem) (*domain.RemoteEntry, error) {
	it, media, err := n.item(item.Raw, domain.MediaTypeGame)
	if err != nil {
		return nil, err
	}
	if it.PlaytimeForever < 0 {
		return nil, domain.Malformed(domain.ProviderSteam, "negative playtime for app "+media.ProviderID, nil)
	}
	if media.CoverImageURL == "" {
		// Owned games carry no image urls; the store header is derived from the app id.
		media.CoverImageURL = fmt.Sprintf("%s/%s/header.jpg", constants.SteamHeaderBase, media.ProviderID)
	}
	status := domain.StatusPlanned
	if it.PlaytimeForever > 0 {
		status = domain.StatusInProgress
	}
	return &domain.RemoteEntry{Media: *media, Status: status, Progress: it.PlaytimeForever}, nil
}

var (
	_ Searcher   = (*Steam)(nil)
	_ Trender    = (*Steam)(nil)
	_ Syncer     = (*Steam)(nil)
	_ Normalizer = SteamNormalizer{}
)
