package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/httpclient"
)

// MAL reads a user's MyAnimeList anime and manga lists.
type MAL struct {
	client  *httpclient.Client
	baseURL string
}

func NewMAL(client *httpclient.Client, baseURL string) *MAL {
	return &MAL{client: client, baseURL: baseURL}
}

func (m *MAL) Provider() domain.Provider {
	return domain.ProviderMAL
}

type malPage struct {
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
	Data []json.RawMessage `json:"data"`
}

func (m *MAL) UserLists(ctx context.Context, tok *oauth2.Token) ([]UserList, error) {
	header, err := httpclient.AuthHeader(m.client.Name(), tok)
	if err != nil {
		return nil, err
	}
	return []UserList{
		{Name: "mal-animelist", MediaType: domain.MediaTypeAnime, Fetch: m.listFetcher(header, "animelist")},
		{Name: "mal-mangalist", MediaType: domain.MediaTypeManga, Fetch: m.listFetcher(header, "mangalist")},
	}, nil
}

func (m *MAL) listFetcher(header http.Header, list string) func(context.Context) ([]json.RawMessage, error) {
	return func(ctx context.Context) ([]json.RawMessage, error) {
		return CollectAll(ctx, func(ctx context.Context, page int) ([]json.RawMessage, bool, error) {
			q := url.Values{}
			q.Set("fields", "list_status,alternative_titles")
			q.Set("limit", strconv.Itoa(constants.MALPageSize))
			q.Set("offset", strconv.Itoa((page-1)*constants.MALPageSize))
			q.Set("nsfw", "true")
			u := fmt.Sprintf("%s/users/@me/%s?%s", m.baseURL, list, q.Encode())

			var resp malPage
			if err := m.client.GetJSON(ctx, u, header, &resp); err != nil {
				return nil, false, err
			}
			return resp.Data, resp.Paging.Next != "", nil
		})
	}
}

type malNode struct {
	MainPicture struct {
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"main_picture"`
	AlternativeTitles struct {
		En string `json:"en"`
	} `json:"alternative_titles"`
	Title    string `json:"title"`
	Synopsis string `json:"synopsis"`
	ID       int64  `json:"id"`
}

type malEntry struct {
	Node       json.RawMessage `json:"node"`
	ListStatus struct {
		Score              *float64 `json:"score"`
		NumEpisodesWatched *int     `json:"num_episodes_watched"`
		NumChaptersRead    *int     `json:"num_chapters_read"`
		Status             string   `json:"status"`
	} `json:"list_status"`
}

// MALNormalizer maps MyAnimeList node and list entry payloads.
type MALNormalizer struct{}

func (MALNormalizer) Provider() domain.Provider {
	return domain.ProviderMAL
}

func (MALNormalizer) NormalizeMedia(raw json.RawMessage, mt domain.MediaType) (*domain.CanonicalMedia, error) {
	var n malNode
	if err := decode(domain.ProviderMAL, raw, &n); err != nil {
		return nil, err
	}
	primary, secondary := pickTitles(n.Title, n.AlternativeTitles.En)
	media, err := newMedia(domain.ProviderMAL, mt, idString(n.ID), primary, secondary)
	if err != nil {
		return nil, err
	}
	media.CoverImageURL = n.MainPicture.Large
	if media.CoverImageURL == "" {
		media.CoverImageURL = n.MainPicture.Medium
	}
	media.Description = n.Synopsis
	return media, nil
}

func (n MALNormalizer) NormalizeEntry(item ListItem) (*domain.RemoteEntry, error) {
	var e malEntry
	if err := decode(domain.ProviderMAL, item.Raw, &e); err != nil {
		return nil, err
	}
	media, err := n.NormalizeMedia(e.Node, item.MediaType)
	if err != nil {
		return nil, err
	}

	progress := e.ListStatus.NumEpisodesWatched
	if item.MediaType == domain.MediaTypeManga {
		progress = e.ListStatus.NumChaptersRead
	}
	return &domain.RemoteEntry{
		Media:    *media,
		Status:   MapStatus(malStatuses, e.ListStatus.Status),
		Score:    nonZeroScore(e.ListStatus.Score),
		Progress: progressOf(progress),
	}, nil
}

var (
	_ Syncer     = (*MAL)(nil)
	_ Normalizer = MALNormalizer{}
)
