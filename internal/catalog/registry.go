package catalog

import (
	"fmt"

	"github.com/cesargomez89/mediasync/internal/domain"
)

var normalizers = map[domain.Provider]Normalizer{
	domain.ProviderAniList:     AniListNormalizer{},
	domain.ProviderMAL:         MALNormalizer{},
	domain.ProviderTMDB:        TMDBNormalizer{},
	domain.ProviderSteam:       SteamNormalizer{},
	domain.ProviderRAWG:        RAWGNormalizer{},
	domain.ProviderGoogleBooks: BooksNormalizer{},
}

// NormalizerFor returns the payload normalizer for p.
func NormalizerFor(p domain.Provider) (Normalizer, error) {
	n, ok := normalizers[p]
	if !ok {
		return nil, fmt.Errorf("%w: no normalizer for %q", domain.ErrUnsupported, p)
	}
	return n, nil
}
