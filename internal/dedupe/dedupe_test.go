package dedupe

import (
	"math"
	"testing"

	"github.com/cesargomez89/mediasync/internal/domain"
)

func media(p domain.Provider, title, secondary string) domain.CanonicalMedia {
	return domain.CanonicalMedia{Provider: p, PrimaryTitle: title, SecondaryTitle: secondary}
}

func titles(list []domain.CanonicalMedia) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.PrimaryTitle
	}
	return out
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Attack on Titan", "Attack on Titan", 1},
		{"ATTACK ON TITAN", "attack on titan", 1},
		{"", "", 1},
		{"abc", "", 0},
		{"kitten", "sitting", 1 - 3.0/7.0},
		{"Pokémon", "Pokemon", 1 - 1.0/7.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDedupe_DropsNearDuplicates(t *testing.T) {
	primary := []domain.CanonicalMedia{media(domain.ProviderAniList, "Attack on Titan", "")}
	secondary := []domain.CanonicalMedia{
		media(domain.ProviderTMDB, "Attack on Titan", ""),
		media(domain.ProviderTMDB, "Attack on Titan: Final Season", ""),
	}

	got := Dedupe(primary, secondary)
	if len(got) != 1 || got[0].PrimaryTitle != "Attack on Titan: Final Season" {
		t.Errorf("Expected only the final season to survive, got %v", titles(got))
	}
}

func TestDedupe_MatchesSecondaryTitle(t *testing.T) {
	primary := []domain.CanonicalMedia{media(domain.ProviderAniList, "Shingeki no Kyojin", "Attack on Titan")}
	secondary := []domain.CanonicalMedia{media(domain.ProviderTMDB, "attack on titan", "")}

	if got := Dedupe(primary, secondary); len(got) != 0 {
		t.Errorf("Expected match against primary's secondary title, got %v", titles(got))
	}
}

func TestDedupe_Threshold(t *testing.T) {
	base := "abcdefghijklmnopqrst"
	primary := []domain.CanonicalMedia{media(domain.ProviderAniList, base, "")}

	tests := []struct {
		name  string
		title string
		kept  bool
	}{
		{"two edits is 0.90", "XYcdefghijklmnopqrst", false},
		{"four edits is 0.80", "WXYZefghijklmnopqrst", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(primary, []domain.CanonicalMedia{media(domain.ProviderTMDB, tt.title, "")})
			if (len(got) == 1) != tt.kept {
				t.Errorf("Expected kept=%v for %q", tt.kept, tt.title)
			}
		})
	}
}

func TestDedupe_EmptyPrimaryKeepsAll(t *testing.T) {
	secondary := []domain.CanonicalMedia{media(domain.ProviderSteam, "Portal", ""), media(domain.ProviderSteam, "Portal 2", "")}
	if got := Dedupe(nil, secondary); len(got) != 2 {
		t.Errorf("Expected both candidates kept, got %v", titles(got))
	}
}

func TestMerge_FirstSeenWins(t *testing.T) {
	anilist := []domain.CanonicalMedia{media(domain.ProviderAniList, "Cowboy Bebop", "")}
	tmdb := []domain.CanonicalMedia{
		media(domain.ProviderTMDB, "Cowboy Bebop", ""),
		media(domain.ProviderTMDB, "Trigun", ""),
	}
	steam := []domain.CanonicalMedia{
		media(domain.ProviderSteam, "Trigun", ""),
		media(domain.ProviderSteam, "Hades", ""),
	}

	got := titles(Merge(anilist, tmdb, steam))
	want := []string{"Cowboy Bebop", "Trigun", "Hades"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
}

func TestMerge_KeepsSameProviderDuplicates(t *testing.T) {
	group := []domain.CanonicalMedia{
		media(domain.ProviderRAWG, "Doom", ""),
		media(domain.ProviderRAWG, "Doom", ""),
	}
	if got := Merge(group); len(got) != 2 {
		t.Errorf("Expected titles within one provider to be left alone, got %v", titles(got))
	}
}
