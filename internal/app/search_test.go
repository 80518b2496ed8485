package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/catalog"
	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/logger"
)

func searchMocks() (anilist, tmdb, steam, rawg *catalog.MockSource) {
	anilist = catalog.NewMockSource(domain.ProviderAniList)
	anilist.Items[domain.MediaTypeAnime] = []json.RawMessage{
		json.RawMessage(`{"id":16498,"title":{"romaji":"Shingeki no Kyojin","english":"Attack on Titan"},"coverImage":{"large":"https://img.test/aot.jpg"}}`),
		json.RawMessage(`{"id":99,"title":{"romaji":"Coverless"}}`),
	}

	tmdb = catalog.NewMockSource(domain.ProviderTMDB)
	tmdb.Items[domain.MediaTypeTVShow] = []json.RawMessage{
		json.RawMessage(`{"id":1429,"name":"Attack on Titan","poster_path":"/aot.jpg"}`),
		json.RawMessage(`{"id":1430,"name":"Attack on Titan: Final Season","poster_path":"/final.jpg"}`),
	}

	steam = catalog.NewMockSource(domain.ProviderSteam)
	steam.Items[domain.MediaTypeGame] = []json.RawMessage{
		json.RawMessage(`{"id":1145360,"name":"Hades","type":"app","tiny_image":"https://img.test/hades.jpg"}`),
	}

	rawg = catalog.NewMockSource(domain.ProviderRAWG)
	rawg.Items[domain.MediaTypeGame] = []json.RawMessage{
		json.RawMessage(`{"id":9767,"name":"Hollow Knight","background_image":"https://img.test/hk.jpg"}`),
	}
	return anilist, tmdb, steam, rawg
}

func titles(items []domain.CanonicalMedia) []string {
	out := make([]string, 0, len(items))
	for _, m := range items {
		out = append(out, m.PrimaryTitle)
	}
	return out
}

func TestSearch_DedupesAcrossProviders(t *testing.T) {
	anilist, tmdb, steam, _ := searchMocks()
	svc := NewSearchService(newManager(anilist, tmdb, steam), nil, logger.Discard())

	result, err := svc.Search(context.Background(), testUser, "attack on titan",
		[]domain.MediaType{domain.MediaTypeTVShow, domain.MediaTypeAnime})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	got := titles(result.Items)
	want := []string{"Shingeki no Kyojin", "Attack on Titan: Final Season"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
	if len(result.Failures) != 0 {
		t.Errorf("Expected no failures, got %+v", result.Failures)
	}
	if result.Items[1].CoverImageURL != "https://image.tmdb.org/t/p/w500/final.jpg" {
		t.Errorf("Expected absolute poster url, got %q", result.Items[1].CoverImageURL)
	}
}

func TestSearch_PartialFailure(t *testing.T) {
	anilist, tmdb, steam, _ := searchMocks()
	steam.Err = errors.New("steam is down")
	svc := NewSearchService(newManager(anilist, tmdb, steam), nil, logger.Discard())

	result, err := svc.Search(context.Background(), "", "hades", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Items) == 0 {
		t.Error("Expected results from the healthy providers")
	}
	// BOOK has no registered catalog and GAME fails.
	failed := make(map[string]bool)
	for _, f := range result.Failures {
		failed[f.Key] = true
	}
	if len(failed) != 2 || !failed["GAME"] || !failed["BOOK"] {
		t.Errorf("Expected GAME and BOOK failures, got %+v", result.Failures)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	anilist, _, _, _ := searchMocks()
	svc := NewSearchService(newManager(anilist), nil, logger.Discard())
	result, err := svc.Search(context.Background(), testUser, "   ", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Items == nil || len(result.Items) != 0 {
		t.Errorf("Expected an empty item list, got %+v", result.Items)
	}
	if anilist.Calls() != 0 {
		t.Errorf("Expected no provider calls, got %d", anilist.Calls())
	}
}

func TestSearch_Deadline(t *testing.T) {
	slow := &slowSource{MockSource: catalog.NewMockSource(domain.ProviderAniList), delay: time.Second}
	m := catalog.NewManager(nil, 0, logger.Discard())
	m.Register(slow)

	svc := NewSearchService(m, nil, logger.Discard())
	svc.Timeout = 20 * time.Millisecond

	start := time.Now()
	result, err := svc.Search(context.Background(), testUser, "mushishi", []domain.MediaType{domain.MediaTypeAnime})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Expected search to stop at its deadline, took %v", time.Since(start))
	}
	if len(result.Items) != 0 || len(result.Failures) != 1 {
		t.Errorf("Expected one incomplete task, got %+v", result)
	}
}

type slowSource struct {
	*catalog.MockSource
	delay time.Duration
}

func (s *slowSource) Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error) {
	select {
	case <-time.After(s.delay):
		return s.MockSource.Search(ctx, query, mt)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestTrending_GroupsPerMediaType(t *testing.T) {
	anilist, tmdb, steam, rawg := searchMocks()
	db, cleanup := setupTestDB(t)
	defer cleanup()
	svc := NewSearchService(newManager(anilist, tmdb, steam, rawg), db, logger.Discard())

	types := []domain.MediaType{domain.MediaTypeAnime, domain.MediaTypeTVShow, domain.MediaTypeGame}
	result, err := svc.Trending(context.Background(), testUser, types)
	if err != nil {
		t.Fatalf("Trending failed: %v", err)
	}
	if len(result.Groups) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(result.Groups))
	}

	// Trending is neither deduplicated nor filtered by image.
	if got := len(result.Groups[0].Items); got != 2 {
		t.Errorf("Expected 2 anime items, got %d", got)
	}
	if got := len(result.Groups[1].Items); got != 2 {
		t.Errorf("Expected 2 tv items, got %d", got)
	}
	if result.Groups[2].Provider != domain.ProviderSteam {
		t.Errorf("Expected games from STEAM, got %s", result.Groups[2].Provider)
	}

	setPreference(t, db, domain.SyncPreference{UseRawgForGames: true})
	result, err = svc.Trending(context.Background(), testUser, []domain.MediaType{domain.MediaTypeGame})
	if err != nil {
		t.Fatalf("Trending failed: %v", err)
	}
	if len(result.Groups) != 1 || result.Groups[0].Provider != domain.ProviderRAWG {
		t.Fatalf("Expected games from RAWG, got %+v", result.Groups)
	}
	if result.Groups[0].Items[0].PrimaryTitle != "Hollow Knight" {
		t.Errorf("Expected Hollow Knight, got %q", result.Groups[0].Items[0].PrimaryTitle)
	}
}
