package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/httpclient"
	"github.com/cesargomez89/mediasync/internal/logger"
)

func newTestHTTPClient(name string) *httpclient.Client {
	p := httpclient.DefaultRetryPolicy().WithMethods(http.MethodPost)
	p.BaseInterval = time.Millisecond
	p.MaxInterval = 5 * time.Millisecond
	return httpclient.NewClient(httpclient.Options{
		Name:              name,
		Policy:            &p,
		RequestsPerSecond: 1000,
		Burst:             100,
		Logger:            logger.Discard(),
	})
}

func validToken(access string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
}

func fetchAll(t *testing.T, lists []UserList) map[string][]json.RawMessage {
	t.Helper()
	out := make(map[string][]json.RawMessage, len(lists))
	for _, l := range lists {
		items, err := l.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch(%s) failed: %v", l.Name, err)
		}
		out[l.Name] = items
	}
	return out
}

func TestAniList_Search(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Write([]byte(`{"data":{"Page":{"media":[{"id":1,"title":{"romaji":"Frieren"}},{"id":2,"title":{"romaji":"Dandadan"}}]}}}`))
	}))
	defer srv.Close()

	a := NewAniList(newTestHTTPClient("ANILIST"), srv.URL)
	items, err := a.Search(context.Background(), "fri", domain.MediaTypeAnime)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(items))
	}
	if !strings.Contains(body, `"search":"fri"`) || !strings.Contains(body, `"type":"ANIME"`) {
		t.Errorf("Unexpected request body: %s", body)
	}

	if _, err := a.Search(context.Background(), "x", domain.MediaTypeBook); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}

func TestAniList_GraphQLErrorIsPermanent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"data":null,"errors":[{"message":"Invalid token","status":400}]}`))
	}))
	defer srv.Close()

	a := NewAniList(newTestHTTPClient("ANILIST"), srv.URL)
	_, err := a.UserLists(context.Background(), validToken("tok"))
	if !httpclient.IsPermanent(err) {
		t.Errorf("Expected permanent error, got %v", err)
	}
	if hits != 1 {
		t.Errorf("Expected 1 request, got %d", hits)
	}
}

func TestAniList_GraphQLRateLimitIsRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Write([]byte(`{"data":null,"errors":[{"message":"Too Many Requests.","status":429}]}`))
			return
		}
		w.Write([]byte(`{"data":{"Page":{"media":[{"id":1,"title":{"romaji":"Frieren"}}]}}}`))
	}))
	defer srv.Close()

	a := NewAniList(newTestHTTPClient("ANILIST"), srv.URL)
	items, err := a.Search(context.Background(), "fri", domain.MediaTypeAnime)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 1 || hits != 2 {
		t.Errorf("Expected 1 item after 2 requests, got %d items after %d requests", len(items), hits)
	}
}

func TestAniList_GraphQLServerErrorExhausts(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"data":null,"errors":[{"message":"Internal Server Error","status":500}]}`))
	}))
	defer srv.Close()

	a := NewAniList(newTestHTTPClient("ANILIST"), srv.URL)
	_, err := a.Search(context.Background(), "fri", domain.MediaTypeAnime)
	if !httpclient.IsUnavailable(err) {
		t.Errorf("Expected unavailable error, got %v", err)
	}
	if hits != 3 {
		t.Errorf("Expected 3 requests, got %d", hits)
	}
}

func TestAniList_UserListsPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Variables map[string]interface{} `json:"variables"`
			Query     string                 `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "Viewer") {
			w.Write([]byte(`{"data":{"Viewer":{"id":7,"name":"alice"}}}`))
			return
		}
		page := int(req.Variables["page"].(float64))
		hasNext := page < 3
		fmt.Fprintf(w, `{"data":{"Page":{"pageInfo":{"hasNextPage":%t},"mediaList":[{"status":"CURRENT","media":{"id":%d,"title":{"romaji":"T%d"}}}]}}}`, hasNext, page, page)
	}))
	defer srv.Close()

	a := NewAniList(newTestHTTPClient("ANILIST"), srv.URL)
	lists, err := a.UserLists(context.Background(), validToken("tok"))
	if err != nil {
		t.Fatalf("UserLists failed: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("Expected anime and manga lists, got %d", len(lists))
	}
	got := fetchAll(t, lists)
	if n := len(got["anilist-ANIME"]); n != 3 {
		t.Errorf("Expected 3 anime items over 3 pages, got %d", n)
	}
}

func TestAniList_ExpiredToken(t *testing.T) {
	a := NewAniList(newTestHTTPClient("ANILIST"), "http://unused.invalid")
	tok := &oauth2.Token{AccessToken: "tok", Expiry: time.Now().Add(-time.Minute)}
	if _, err := a.UserLists(context.Background(), tok); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
	if _, err := a.UserLists(context.Background(), nil); !errors.Is(err, domain.ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential, got %v", err)
	}
}

func TestMAL_UserListsPaginates(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/users/@me/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		next := ""
		if r.URL.Query().Get("offset") == "0" {
			next = srv.URL + r.URL.Path + "?offset=100"
		}
		fmt.Fprintf(w, `{"data":[{"node":{"id":1,"title":"A"},"list_status":{"status":"watching"}},{"node":{"id":2,"title":"B"},"list_status":{"status":"completed","score":8}}],"paging":{"next":%q}}`, next)
	}))
	defer srv.Close()

	m := NewMAL(newTestHTTPClient("MAL"), srv.URL)
	lists, err := m.UserLists(context.Background(), validToken("tok"))
	if err != nil {
		t.Fatalf("UserLists failed: %v", err)
	}
	got := fetchAll(t, lists)
	if n := len(got["mal-animelist"]); n != 4 {
		t.Errorf("Expected 4 anime items over 2 pages, got %d", n)
	}
	if n := len(got["mal-mangalist"]); n != 4 {
		t.Errorf("Expected 4 manga items over 2 pages, got %d", n)
	}
}

func TestTMDB_SearchAndTrending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/search/tv":
			if r.URL.Query().Get("without_genres") != "16" {
				t.Errorf("Expected animation excluded from tv search")
			}
			w.Write([]byte(`{"page":1,"total_pages":1,"results":[{"id":1,"name":"Dark"}]}`))
		case "/trending/movie/week":
			var results []string
			for i := 1; i <= 8; i++ {
				results = append(results, fmt.Sprintf(`{"id":%d,"title":"M%d"}`, i, i))
			}
			fmt.Fprintf(w, `{"page":1,"total_pages":1,"results":[%s]}`, strings.Join(results, ","))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tm := NewTMDB(newTestHTTPClient("TMDB"), srv.URL, "key")
	items, err := tm.Search(context.Background(), "dark", domain.MediaTypeTVShow)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}

	trending, err := tm.Trending(context.Background(), domain.MediaTypeMovie)
	if err != nil {
		t.Fatalf("Trending failed: %v", err)
	}
	if len(trending) != 5 {
		t.Errorf("Expected trending capped at 5, got %d", len(trending))
	}

	noKey := NewTMDB(newTestHTTPClient("TMDB"), srv.URL, "")
	if _, err := noKey.Search(context.Background(), "dark", domain.MediaTypeMovie); !httpclient.IsPermanent(err) {
		t.Errorf("Expected permanent error without api key, got %v", err)
	}
}

func TestTMDB_UserLists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session_id") != "sess" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path == "/account" {
			w.Write([]byte(`{"id":42}`))
			return
		}
		if !strings.HasPrefix(r.URL.Path, "/account/42/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		page := r.URL.Query().Get("page")
		fmt.Fprintf(w, `{"page":%s,"total_pages":2,"results":[{"id":%s,"title":"T","name":"T"}]}`, page, page)
	}))
	defer srv.Close()

	tm := NewTMDB(newTestHTTPClient("TMDB"), srv.URL, "key")
	lists, err := tm.UserLists(context.Background(), validToken("sess"))
	if err != nil {
		t.Fatalf("UserLists failed: %v", err)
	}
	wantOrder := []ListKind{ListKindWatchlist, ListKindWatchlist, ListKindRated, ListKindRated}
	if len(lists) != len(wantOrder) {
		t.Fatalf("Expected %d lists, got %d", len(wantOrder), len(lists))
	}
	for i, l := range lists {
		if l.Kind != wantOrder[i] {
			t.Errorf("List %d: expected %s, got %s", i, wantOrder[i], l.Kind)
		}
	}
	for name, items := range fetchAll(t, lists) {
		if len(items) != 2 {
			t.Errorf("%s: expected 2 items over 2 pages, got %d", name, len(items))
		}
	}

	if _, err := tm.UserLists(context.Background(), validToken("wrong")); !httpclient.IsAuthFailure(err) {
		t.Errorf("Expected auth failure for a bad session, got %v", err)
	}
}

func TestSteam_SearchFiltersNonApps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"type":"app","id":1,"name":"Hades"},{"type":"sub","id":2,"name":"Bundle"},{"type":"app","id":3,"name":"Celeste"}]}`))
	}))
	defer srv.Close()

	s := NewSteam(newTestHTTPClient("STEAM"), srv.URL, srv.URL, "")
	items, err := s.Search(context.Background(), "h", domain.MediaTypeGame)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 apps, got %d", len(items))
	}
}

func TestSteam_TrendingSkipsNonGames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/ISteamChartsService/"):
			w.Write([]byte(`{"response":{"ranks":[{"appid":10},{"appid":20},{"appid":30}]}}`))
		case r.URL.Path == "/api/appdetails":
			id := r.URL.Query().Get("appids")
			kind := "game"
			if id == "20" {
				kind = "dlc"
			}
			if id == "30" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprintf(w, `{"%s":{"success":true,"data":{"type":%q,"name":"App %s","header_image":"https://h.test/%s.jpg"}}}`, id, kind, id, id)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := NewSteam(newTestHTTPClient("STEAM"), srv.URL, srv.URL, "")
	items, err := s.Trending(context.Background(), domain.MediaTypeGame)
	if err != nil {
		t.Fatalf("Trending failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 game, got %d", len(items))
	}
	m, err := SteamNormalizer{}.NormalizeMedia(items[0], domain.MediaTypeGame)
	if err != nil {
		t.Fatalf("NormalizeMedia failed: %v", err)
	}
	if m.ProviderID != "10" || m.CoverImageURL != "https://h.test/10.jpg" {
		t.Errorf("Unexpected media %+v", m)
	}
}

func TestSteam_UserLists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("steamid") != "7656" || r.URL.Query().Get("key") != "key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"response":{"game_count":2,"games":[{"appid":620,"name":"Portal 2","playtime_forever":540},{"appid":400,"name":"Portal"}]}}`))
	}))
	defer srv.Close()

	s := NewSteam(newTestHTTPClient("STEAM"), srv.URL, srv.URL, "key")
	lists, err := s.UserLists(context.Background(), validToken("7656"))
	if err != nil {
		t.Fatalf("UserLists failed: %v", err)
	}
	if len(lists) != 1 || lists[0].Kind != ListKindLibrary {
		t.Fatalf("Expected a single library list, got %+v", lists)
	}
	got := fetchAll(t, lists)
	if n := len(got["steam-library"]); n != 2 {
		t.Errorf("Expected 2 games, got %d", n)
	}
}

func TestRAWG_Trending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("dates") != "2024-03-03,2024-06-01" {
			t.Errorf("Unexpected dates %q", q.Get("dates"))
		}
		if q.Get("ordering") != "-added" || q.Get("page_size") != "15" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"results":[{"id":1,"name":"G1"},{"id":2,"name":"G2"}]}`))
	}))
	defer srv.Close()

	rw := NewRAWG(newTestHTTPClient("RAWG"), srv.URL, "key")
	rw.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	items, err := rw.Trending(context.Background(), domain.MediaTypeGame)
	if err != nil {
		t.Fatalf("Trending failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(items))
	}
}

func TestGoogleBooks_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/volumes" || r.URL.Query().Get("q") != "dune" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("key") != "" {
			t.Errorf("Expected no key parameter when unconfigured")
		}
		w.Write([]byte(`{"items":[{"id":"a","volumeInfo":{"title":"Dune"}}]}`))
	}))
	defer srv.Close()

	g := NewGoogleBooks(newTestHTTPClient("GOOGLE_BOOKS"), srv.URL, "")
	items, err := g.Search(context.Background(), "dune", domain.MediaTypeBook)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}
}
