package catalog

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want *float64
	}{
		{"nil", nil, nil},
		{"nil pointer", (*float64)(nil), nil},
		{"ten scale", 7.5, ptr(7.5)},
		{"zero", 0, ptr(0)},
		{"hundred scale", 85, ptr(8.5)},
		{"hundred", 100.0, ptr(10)},
		{"above range", 250, ptr(10)},
		{"negative", -3, ptr(0)},
		{"rounding", 7.46, ptr(7.5)},
		{"true", true, ptr(8)},
		{"false", false, ptr(3)},
		{"thumbs up", "Thumbs_Up", ptr(8)},
		{"dislike", "dislike", ptr(3)},
		{"numeric string", " 92 ", ptr(9.2)},
		{"empty string", "", nil},
		{"garbage", "meh", nil},
		{"json number", json.Number("6.25"), ptr(6.3)},
		{"int32", int32(70), ptr(7)},
		{"int8", int8(9), ptr(9)},
		{"uint", uint(85), ptr(8.5)},
		{"uint64", uint64(100), ptr(10)},
		{"float32", float32(7.5), ptr(7.5)},
		{"unsupported type", []int{1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeScore(tt.in)
			if tt.want == nil {
				if got != nil {
					t.Errorf("Expected nil, got %v", *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Expected %v, got nil", *tt.want)
			}
			if *got != *tt.want {
				t.Errorf("Expected %v, got %v", *tt.want, *got)
			}
		})
	}
}

func TestNonZeroScore(t *testing.T) {
	if got := nonZeroScore(ptr(0)); got != nil {
		t.Errorf("Expected 0 to mean unscored, got %v", *got)
	}
	if got := nonZeroScore(ptr(82)); got == nil || *got != 8.2 {
		t.Errorf("Expected 8.2, got %v", got)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		table map[string]domain.Status
		in    string
		want  domain.Status
	}{
		{aniListStatuses, "CURRENT", domain.StatusInProgress},
		{aniListStatuses, "REPEATING", domain.StatusInProgress},
		{aniListStatuses, "PAUSED", domain.StatusPaused},
		{aniListStatuses, "SOMETHING_NEW", domain.StatusPlanned},
		{malStatuses, "on_hold", domain.StatusPaused},
		{malStatuses, "plan_to_read", domain.StatusPlanned},
		{malStatuses, "completed", domain.StatusCompleted},
		{malStatuses, "", domain.StatusPlanned},
	}
	for _, tt := range tests {
		if got := MapStatus(tt.table, tt.in); got != tt.want {
			t.Errorf("MapStatus(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestPickTitles(t *testing.T) {
	p, s := pickTitles("", " Shingeki no Kyojin ", "shingeki no kyojin", "Attack on Titan")
	if p != "Shingeki no Kyojin" {
		t.Errorf("Expected primary 'Shingeki no Kyojin', got %q", p)
	}
	if s != "Attack on Titan" {
		t.Errorf("Expected secondary 'Attack on Titan', got %q", s)
	}

	p, s = pickTitles("", "")
	if p != "" || s != "" {
		t.Errorf("Expected empty titles, got %q/%q", p, s)
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"/abc.jpg", "https://img.test/abc.jpg"},
		{"abc.jpg", "https://img.test/abc.jpg"},
		{"https://cdn.test/x.jpg", "https://cdn.test/x.jpg"},
	}
	for _, tt := range tests {
		if got := absoluteURL("https://img.test", tt.in); got != tt.want {
			t.Errorf("absoluteURL(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestNormalizers_Media(t *testing.T) {
	tests := []struct {
		name      string
		n         Normalizer
		mt        domain.MediaType
		raw       string
		id        string
		primary   string
		secondary string
		cover     string
	}{
		{
			name: "anilist", n: AniListNormalizer{}, mt: domain.MediaTypeAnime,
			raw:     `{"id":16498,"title":{"romaji":"Shingeki no Kyojin","english":"Attack on Titan","native":"進撃の巨人"},"coverImage":{"large":"https://a.test/16498.jpg"}}`,
			id:      "16498",
			primary: "Shingeki no Kyojin", secondary: "Attack on Titan", cover: "https://a.test/16498.jpg",
		},
		{
			name: "mal", n: MALNormalizer{}, mt: domain.MediaTypeManga,
			raw:     `{"id":2,"title":"Berserk","alternative_titles":{"en":"Berserk"},"main_picture":{"medium":"https://m.test/2.jpg"}}`,
			id:      "2",
			primary: "Berserk", cover: "https://m.test/2.jpg",
		},
		{
			name: "tmdb movie", n: TMDBNormalizer{}, mt: domain.MediaTypeMovie,
			raw:     `{"id":129,"title":"Spirited Away","original_title":"千と千尋の神隠し","poster_path":"/p.jpg"}`,
			id:      "129",
			primary: "Spirited Away", secondary: "千と千尋の神隠し", cover: "https://image.tmdb.org/t/p/w500/p.jpg",
		},
		{
			name: "tmdb tv", n: TMDBNormalizer{}, mt: domain.MediaTypeTVShow,
			raw:     `{"id":95396,"name":"Severance","original_name":"Severance"}`,
			id:      "95396",
			primary: "Severance",
		},
		{
			name: "steam search", n: SteamNormalizer{}, mt: domain.MediaTypeGame,
			raw:     `{"id":1145360,"name":"Hades","tiny_image":"https://s.test/tiny.jpg"}`,
			id:      "1145360",
			primary: "Hades", cover: "https://s.test/tiny.jpg",
		},
		{
			name: "rawg", n: RAWGNormalizer{}, mt: domain.MediaTypeGame,
			raw:     `{"id":3328,"name":"The Witcher 3: Wild Hunt","background_image":"https://r.test/w3.jpg"}`,
			id:      "3328",
			primary: "The Witcher 3: Wild Hunt", cover: "https://r.test/w3.jpg",
		},
		{
			name: "google books", n: BooksNormalizer{}, mt: domain.MediaTypeBook,
			raw:     `{"id":"B1","volumeInfo":{"title":"Good Omens","authors":["Terry Pratchett","Neil Gaiman"],"imageLinks":{"thumbnail":"http://b.test/go.jpg"}}}`,
			id:      "B1",
			primary: "Good Omens", secondary: "Terry Pratchett, Neil Gaiman", cover: "https://b.test/go.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.n.NormalizeMedia(json.RawMessage(tt.raw), tt.mt)
			if err != nil {
				t.Fatalf("NormalizeMedia failed: %v", err)
			}
			if m.ProviderID != tt.id {
				t.Errorf("Expected id %q, got %q", tt.id, m.ProviderID)
			}
			if m.PrimaryTitle != tt.primary {
				t.Errorf("Expected primary %q, got %q", tt.primary, m.PrimaryTitle)
			}
			if m.SecondaryTitle != tt.secondary {
				t.Errorf("Expected secondary %q, got %q", tt.secondary, m.SecondaryTitle)
			}
			if m.CoverImageURL != tt.cover {
				t.Errorf("Expected cover %q, got %q", tt.cover, m.CoverImageURL)
			}
			if m.Provider != tt.n.Provider() || m.MediaType != tt.mt {
				t.Errorf("Unexpected provider/type %s/%s", m.Provider, m.MediaType)
			}
			if m.ProviderKeys[m.Provider] != tt.id {
				t.Errorf("Expected provider key %q, got %v", tt.id, m.ProviderKeys)
			}
		})
	}
}

func TestNormalizers_Malformed(t *testing.T) {
	tests := []struct {
		name string
		n    Normalizer
		raw  string
	}{
		{"empty", AniListNormalizer{}, ``},
		{"not json", MALNormalizer{}, `{"id":`},
		{"missing id", TMDBNormalizer{}, `{"title":"No Id"}`},
		{"missing title", RAWGNormalizer{}, `{"id":5}`},
		{"wrong type", BooksNormalizer{}, `{"id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.n.NormalizeMedia(json.RawMessage(tt.raw), domain.MediaTypeMovie)
			if !domain.IsMalformed(err) {
				t.Errorf("Expected malformed payload error, got %v", err)
			}
		})
	}
}

func TestNormalizers_Entry(t *testing.T) {
	tests := []struct {
		name     string
		n        Normalizer
		item     ListItem
		status   domain.Status
		score    *float64
		progress int
	}{
		{
			name: "anilist scored",
			n:    AniListNormalizer{},
			item: ListItem{MediaType: domain.MediaTypeAnime, Raw: json.RawMessage(
				`{"status":"CURRENT","score":8.5,"progress":12,"media":{"id":1,"title":{"romaji":"Frieren"}}}`)},
			status: domain.StatusInProgress, score: ptr(8.5), progress: 12,
		},
		{
			name: "anilist unscored",
			n:    AniListNormalizer{},
			item: ListItem{MediaType: domain.MediaTypeManga, Raw: json.RawMessage(
				`{"status":"PLANNING","score":0,"media":{"id":2,"title":{"romaji":"Berserk"}}}`)},
			status: domain.StatusPlanned,
		},
		{
			name: "mal manga chapters",
			n:    MALNormalizer{},
			item: ListItem{MediaType: domain.MediaTypeManga, Raw: json.RawMessage(
				`{"node":{"id":2,"title":"Berserk"},"list_status":{"status":"reading","score":9,"num_chapters_read":350,"num_episodes_watched":4}}`)},
			status: domain.StatusInProgress, score: ptr(9), progress: 350,
		},
		{
			name: "tmdb watchlist",
			n:    TMDBNormalizer{},
			item: ListItem{MediaType: domain.MediaTypeMovie, Kind: ListKindWatchlist, Raw: json.RawMessage(
				`{"id":1,"title":"Arrival","rating":7}`)},
			status: domain.StatusPlanned,
		},
		{
			name: "tmdb rated",
			n:    TMDBNormalizer{},
			item: ListItem{MediaType: domain.MediaTypeTVShow, Kind: ListKindRated, Raw: json.RawMessage(
				`{"id":1,"name":"Dark","rating":9.5}`)},
			status: domain.StatusCompleted, score: ptr(9.5),
		},
		{
			name: "steam played",
			n:    SteamNormalizer{},
			item: ListItem{MediaType: domain.MediaTypeGame, Kind: ListKindLibrary, Raw: json.RawMessage(
				`{"appid":620,"name":"Portal 2","playtime_forever":540}`)},
			status: domain.StatusInProgress, progress: 540,
		},
		{
			name: "steam unplayed",
			n:    SteamNormalizer{},
			item: ListItem{MediaType: domain.MediaTypeGame, Kind: ListKindLibrary, Raw: json.RawMessage(
				`{"appid":400,"name":"Portal","playtime_forever":0}`)},
			status: domain.StatusPlanned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.n.NormalizeEntry(tt.item)
			if err != nil {
				t.Fatalf("NormalizeEntry failed: %v", err)
			}
			if e.Status != tt.status {
				t.Errorf("Expected status %s, got %s", tt.status, e.Status)
			}
			if e.Progress != tt.progress {
				t.Errorf("Expected progress %d, got %d", tt.progress, e.Progress)
			}
			switch {
			case tt.score == nil && e.Score != nil:
				t.Errorf("Expected no score, got %v", *e.Score)
			case tt.score != nil && (e.Score == nil || *e.Score != *tt.score):
				t.Errorf("Expected score %v, got %v", *tt.score, e.Score)
			}
		})
	}
}

func TestSteamNormalizer_LibraryCover(t *testing.T) {
	e, err := SteamNormalizer{}.NormalizeEntry(ListItem{
		MediaType: domain.MediaTypeGame,
		Raw:       json.RawMessage(`{"appid":620,"name":"Portal 2"}`),
	})
	if err != nil {
		t.Fatalf("NormalizeEntry failed: %v", err)
	}
	want := "https://cdn.cloudflare.steamstatic.com/steam/apps/620/header.jpg"
	if e.Media.CoverImageURL != want {
		t.Errorf("Expected %s, got %s", want, e.Media.CoverImageURL)
	}

	_, err = SteamNormalizer{}.NormalizeEntry(ListItem{
		MediaType: domain.MediaTypeGame,
		Raw:       json.RawMessage(`{"appid":620,"name":"Portal 2","playtime_forever":-1}`),
	})
	if !domain.IsMalformed(err) {
		t.Errorf("Expected negative playtime to be malformed, got %v", err)
	}
}

func TestNormalizerFor(t *testing.T) {
	for _, p := range domain.Providers {
		n, err := NormalizerFor(p)
		if err != nil {
			t.Fatalf("NormalizerFor(%s) failed: %v", p, err)
		}
		if n.Provider() != p {
			t.Errorf("Expected %s, got %s", p, n.Provider())
		}
	}
	if _, err := NormalizerFor("NETFLIX"); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
