package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/httpclient"
)

const aniListMediaFields = `id title { romaji english native } coverImage { large } description(asHtml: false)`

const (
	aniListSearchQuery = `query ($search: String, $type: MediaType) {
  Page(perPage: 20) { media(search: $search, type: $type) { ` + aniListMediaFields + ` } }
}`
	aniListTrendingQuery = `query ($type: MediaType) {
  Page(perPage: 10) { media(sort: TRENDING_DESC, type: $type) { ` + aniListMediaFields + ` } }
}`
	aniListViewerQuery = `query { Viewer { id name } }`
	aniListListQuery   = `query ($userName: String, $type: MediaType, $page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage }
    mediaList(userName: $userName, type: $type) {
      status score(format: POINT_10_DECIMAL) progress
      media { ` + aniListMediaFields + ` }
    }
  }
}`
)

// AniList talks to the AniList GraphQL API.
type AniList struct {
	client   *httpclient.Client
	endpoint string
}

func NewAniList(client *httpclient.Client, endpoint string) *AniList {
	return &AniList{client: client, endpoint: endpoint}
}

func (a *AniList) Provider() domain.Provider {
	return domain.ProviderAniList
}

type graphQLRequest struct {
	Variables map[string]interface{} `json:"variables,omitempty"`
	Query     string                 `json:"query"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"errors"`
}

func (a *AniList) query(ctx context.Context, header http.Header, query string, vars map[string]interface{}, data interface{}) error {
	return a.client.Retry(ctx, http.MethodPost, func() error {
		var resp graphQLResponse
		if err := a.client.PostJSON(ctx, a.endpoint, header, graphQLRequest{Query: query, Variables: vars}, &resp); err != nil {
			return err
		}
		if len(resp.Errors) > 0 {
			e := resp.Errors[0]
			gqlErr := fmt.Errorf("graphql: %s", e.Message)
			if e.Status != 0 {
				return a.client.StatusError(e.Status, gqlErr)
			}
			return httpclient.Permanent(a.client.Name(), gqlErr)
		}
		if err := json.Unmarshal(resp.Data, data); err != nil {
			return httpclient.Permanent(a.client.Name(), fmt.Errorf("failed to decode graphql data: %w", err))
		}
		return nil
	})
}

func aniListType(mt domain.MediaType) (string, error) {
	switch mt {
	case domain.MediaTypeAnime:
		return "ANIME", nil
	case domain.MediaTypeManga:
		return "MANGA", nil
	}
	return "", fmt.Errorf("%w: anilist has no %s", domain.ErrUnsupported, mt)
}

type aniListPage struct {
	Page struct {
		PageInfo struct {
			HasNextPage bool `json:"hasNextPage"`
		} `json:"pageInfo"`
		Media     []json.RawMessage `json:"media"`
		MediaList []json.RawMessage `json:"mediaList"`
	} `json:"Page"`
}

func (a *AniList) Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error) {
	t, err := aniListType(mt)
	if err != nil {
		return nil, err
	}
	var data aniListPage
	if err := a.query(ctx, nil, aniListSearchQuery, map[string]interface{}{"search": query, "type": t}, &data); err != nil {
		return nil, err
	}
	return data.Page.Media, nil
}

func (a *AniList) Trending(ctx context.Context, mt domain.MediaType) ([]json.RawMessage, error) {
	t, err := aniListType(mt)
	if err != nil {
		return nil, err
	}
	var data aniListPage
	if err := a.query(ctx, nil, aniListTrendingQuery, map[string]interface{}{"type": t}, &data); err != nil {
		return nil, err
	}
	return data.Page.Media, nil
}

// UserLists resolves the viewer behind the token and returns the anime and
// manga lists.
func (a *AniList) UserLists(ctx context.Context, tok *oauth2.Token) ([]UserList, error) {
	header, err := httpclient.AuthHeader(a.client.Name(), tok)
	if err != nil {
		return nil, err
	}

	var viewer struct {
		Viewer struct {
			Name string `json:"name"`
			ID   int64  `json:"id"`
		} `json:"Viewer"`
	}
	if err := a.query(ctx, header, aniListViewerQuery, nil, &viewer); err != nil {
		return nil, fmt.Errorf("failed to resolve anilist viewer: %w", err)
	}
	if viewer.Viewer.Name == "" {
		return nil, httpclient.Permanent(a.client.Name(), fmt.Errorf("anilist viewer has no name"))
	}

	lists := make([]UserList, 0, 2)
	for _, mt := range []domain.MediaType{domain.MediaTypeAnime, domain.MediaTypeManga} {
		lists = append(lists, UserList{
			Name:      "anilist-" + string(mt),
			MediaType: mt,
			Fetch:     a.listFetcher(header, viewer.Viewer.Name, mt),
		})
	}
	return lists, nil
}

func (a *AniList) listFetcher(header http.Header, userName string, mt domain.MediaType) func(context.Context) ([]json.RawMessage, error) {
	t, _ := aniListType(mt)
	return func(ctx context.Context) ([]json.RawMessage, error) {
		return CollectAll(ctx, func(ctx context.Context, page int) ([]json.RawMessage, bool, error) {
			var data aniListPage
			vars := map[string]interface{}{
				"userName": userName,
				"type":     t,
				"page":     page,
				"perPage":  constants.AniListPageSize,
			}
			if err := a.query(ctx, header, aniListListQuery, vars, &data); err != nil {
				return nil, false, err
			}
			return data.Page.MediaList, data.Page.PageInfo.HasNextPage, nil
		})
	}
}

type aniListMedia struct {
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	CoverImage struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	Description string `json:"description"`
	ID          int64  `json:"id"`
}

type aniListEntry struct {
	Score    *float64        `json:"score"`
	Progress *int            `json:"progress"`
	Status   string          `json:"status"`
	Media    json.RawMessage `json:"media"`
}

// AniListNormalizer maps AniList media and mediaList payloads.
type AniListNormalizer struct{}

func (AniListNormalizer) Provider() domain.Provider {
	return domain.ProviderAniList
}

func (n AniListNormalizer) NormalizeMedia(raw json.RawMessage, mt domain.MediaType) (*domain.CanonicalMedia, error) {
	var m aniListMedia
	if err := decode(domain.ProviderAniList, raw, &m); err != nil {
		return nil, err
	}
	primary, secondary := pickTitles(m.Title.Romaji, m.Title.English, m.Title.Native)
	media, err := newMedia(domain.ProviderAniList, mt, idString(m.ID), primary, secondary)
	if err != nil {
		return nil, err
	}
	media.CoverImageURL = m.CoverImage.Large
	media.Description = m.Description
	return media, nil
}

func (n AniListNormalizer) NormalizeEntry(item ListItem) (*domain.RemoteEntry, error) {
	var e aniListEntry
	if err := decode(domain.ProviderAniList, item.Raw, &e); err != nil {
		return nil, err
	}
	media, err := n.NormalizeMedia(e.Media, item.MediaType)
	if err != nil {
		return nil, err
	}
	return &domain.RemoteEntry{
		Media:    *media,
		Status:   MapStatus(aniListStatuses, e.Status),
		Score:    nonZeroScore(e.Score),
		Progress: progressOf(e.Progress),
	}, nil
}

var (
	_ Searcher   = (*AniList)(nil)
	_ Trender    = (*AniList)(nil)
	_ Syncer     = (*AniList)(nil)
	_ Normalizer = AniListNormalizer{}
)
