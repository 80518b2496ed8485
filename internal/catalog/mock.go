package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// MockSource serves canned raw payloads. It is used by tests and by the
// server when started with MOCK_CATALOGS.
type MockSource struct {
	Err      error
	Items    map[domain.MediaType][]json.RawMessage
	Lists    []UserList
	provider domain.Provider
	mu       sync.Mutex
	calls    int
}

func NewMockSource(p domain.Provider) *MockSource {
	return &MockSource{provider: p, Items: make(map[domain.MediaType][]json.RawMessage)}
}

func (m *MockSource) Provider() domain.Provider {
	return m.provider
}

// Calls reports how many Search, Trending and UserLists calls were served.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSource) hit() error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Err
}

func (m *MockSource) Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error) {
	if err := m.hit(); err != nil {
		return nil, err
	}
	return m.Items[mt], nil
}

func (m *MockSource) Trending(ctx context.Context, mt domain.MediaType) ([]json.RawMessage, error) {
	if err := m.hit(); err != nil {
		return nil, err
	}
	return m.Items[mt], nil
}

func (m *MockSource) UserLists(ctx context.Context, tok *oauth2.Token) ([]UserList, error) {
	if err := m.hit(); err != nil {
		return nil, err
	}
	return m.Lists, nil
}

// StaticList returns a UserList whose Fetch always yields items.
func StaticList(name string, mt domain.MediaType, kind ListKind, items ...json.RawMessage) UserList {
	return UserList{
		Name:      name,
		MediaType: mt,
		Kind:      kind,
		Fetch: func(ctx context.Context) ([]json.RawMessage, error) {
			return items, nil
		},
	}
}

// FailingList returns a UserList whose Fetch always fails with err.
func FailingList(name string, mt domain.MediaType, err error) UserList {
	return UserList{
		Name:      name,
		MediaType: mt,
		Fetch: func(ctx context.Context) ([]json.RawMessage, error) {
			return nil, err
		},
	}
}

// MockCatalogs returns one mock per provider, seeded with a few titles in
// each provider's own payload shape.
func MockCatalogs() []*MockSource {
	anilist := NewMockSource(domain.ProviderAniList)
	anilist.Items[domain.MediaTypeAnime] = mockPayloads(
		`{"id":%d,"title":{"romaji":%q,"english":%q},"coverImage":{"large":"https://img.example/anilist/%d.jpg"}}`,
		[][2]string{{"Shingeki no Kyojin", "Attack on Titan"}, {"Fullmetal Alchemist: Brotherhood", ""}},
	)
	anilist.Items[domain.MediaTypeManga] = mockPayloads(
		`{"id":%d,"title":{"romaji":%q,"english":%q},"coverImage":{"large":"https://img.example/anilist/%d.jpg"}}`,
		[][2]string{{"Berserk", ""}, {"Vagabond", ""}},
	)

	tmdb := NewMockSource(domain.ProviderTMDB)
	tmdb.Items[domain.MediaTypeMovie] = mockPayloads(
		`{"id":%d,"title":%q,"original_title":%q,"poster_path":"/%d.jpg"}`,
		[][2]string{{"Spirited Away", "Sen to Chihiro no Kamikakushi"}, {"Arrival", ""}},
	)
	tmdb.Items[domain.MediaTypeTVShow] = mockPayloads(
		`{"id":%d,"name":%q,"original_name":%q,"poster_path":"/%d.jpg"}`,
		[][2]string{{"Severance", ""}, {"Dark", ""}},
	)

	steam := NewMockSource(domain.ProviderSteam)
	steam.Items[domain.MediaTypeGame] = mockPayloads(
		`{"id":%d,"name":%q,"type":"app","tiny_image":"https://img.example/steam/%[4]d.jpg"}`,
		[][2]string{{"Hades", ""}, {"Celeste", ""}},
	)

	rawg := NewMockSource(domain.ProviderRAWG)
	rawg.Items[domain.MediaTypeGame] = mockPayloads(
		`{"id":%d,"name":%q,"background_image":"https://img.example/rawg/%[4]d.jpg"}`,
		[][2]string{{"Hollow Knight", ""}, {"Outer Wilds", ""}},
	)

	books := NewMockSource(domain.ProviderGoogleBooks)
	books.Items[domain.MediaTypeBook] = mockPayloads(
		`{"id":"vol%d","volumeInfo":{"title":%q,"authors":[%q],"imageLinks":{"thumbnail":"http://img.example/books/%d.jpg"}}}`,
		[][2]string{{"Dune", "Frank Herbert"}, {"The Left Hand of Darkness", "Ursula K. Le Guin"}},
	)

	return []*MockSource{anilist, tmdb, steam, rawg, books}
}

// mockPayloads renders format with (id, primary, secondary, id) per title.
// Formats without a secondary title skip it with %[4]d.
func mockPayloads(format string, titles [][2]string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(titles))
	for i, t := range titles {
		id := i + 1
		out = append(out, json.RawMessage(fmt.Sprintf(format, id, t[0], t[1], id)))
	}
	return out
}

var (
	_ Source = (*MockSource)(nil)
	_ Syncer = (*MockSource)(nil)
)
