package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/httpclient"
)

// GoogleBooks queries the Google Books volumes API. The key is optional.
type GoogleBooks struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
}

func NewGoogleBooks(client *httpclient.Client, baseURL, apiKey string) *GoogleBooks {
	return &GoogleBooks{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (g *GoogleBooks) Provider() domain.Provider {
	return domain.ProviderGoogleBooks
}

func requireBook(mt domain.MediaType) error {
	if mt != domain.MediaTypeBook {
		return fmt.Errorf("%w: google books has no %s", domain.ErrUnsupported, mt)
	}
	return nil
}

func (g *GoogleBooks) volumes(ctx context.Context, q url.Values) ([]json.RawMessage, error) {
	if g.apiKey != "" {
		q.Set("key", g.apiKey)
	}
	q.Set("maxResults", strconv.Itoa(constants.BooksMaxResults))
	q.Set("printType", "books")
	var resp struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := g.client.GetJSON(ctx, g.baseURL+"/volumes?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (g *GoogleBooks) Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error) {
	if err := requireBook(mt); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", query)
	return g.volumes(ctx, q)
}

// Trending has no native endpoint; newest fiction stands in for it.
func (g *GoogleBooks) Trending(ctx context.Context, mt domain.MediaType) ([]json.RawMessage, error) {
	if err := requireBook(mt); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", "subject:fiction")
	q.Set("orderBy", "newest")
	return g.volumes(ctx, q)
}

type bookVolume struct {
	VolumeInfo struct {
		ImageLinks struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
		Title       string   `json:"title"`
		Subtitle    string   `json:"subtitle"`
		Description string   `json:"description"`
		Authors     []string `json:"authors"`
	} `json:"volumeInfo"`
	ID string `json:"id"`
}

// BooksNormalizer maps Google Books volumes. Authors become the secondary
// title.
type BooksNormalizer struct{}

func (BooksNormalizer) Provider() domain.Provider {
	return domain.ProviderGoogleBooks
}

func (BooksNormalizer) NormalizeMedia(raw json.RawMessage, mt domain.MediaType) (*domain.CanonicalMedia, error) {
	var v bookVolume
	if err := decode(domain.ProviderGoogleBooks, raw, &v); err != nil {
		return nil, err
	}
	info := v.VolumeInfo
	secondary := strings.Join(info.Authors, ", ")
	if secondary == "" {
		secondary = info.Subtitle
	}
	media, err := newMedia(domain.ProviderGoogleBooks, mt, strings.TrimSpace(v.ID), strings.TrimSpace(info.Title), secondary)
	if err != nil {
		return nil, err
	}
	thumb := info.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = info.ImageLinks.SmallThumbnail
	}
	media.CoverImageURL = forceHTTPS(thumb)
	media.Description = info.Description
	return media, nil
}

func (BooksNormalizer) NormalizeEntry(item ListItem) (*domain.RemoteEntry, error) {
	return nil, domain.Malformed(domain.ProviderGoogleBooks, "google books has no user lists", domain.ErrUnsupported)
}

var (
	_ Searcher   = (*GoogleBooks)(nil)
	_ Trender    = (*GoogleBooks)(nil)
	_ Normalizer = BooksNormalizer{}
)
