// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort          = "8080"
	DefaultDBPath        = "mediasync.db"
	DefaultHTTPTimeout   = 15 * time.Second
	DefaultRetryCount    = 3
	DefaultRetryBase     = 1 * time.Second
	DefaultCacheTTL      = 12 * time.Hour
	DefaultSearchTimeout = 10 * time.Second
	DefaultSyncTimeout   = 5 * time.Minute
	DefaultFanoutLimit   = 6
	DefaultProviderRPS   = 5.0
	DefaultProviderBurst = 5
)

// Circuit breaker
const (
	BreakerMaxRequests      = 1
	BreakerInterval         = time.Minute
	BreakerTimeout          = 30 * time.Second
	BreakerFailureThreshold = 5
)

// Provider endpoints
const (
	DefaultAniListURL     = "https://graphql.anilist.co"
	DefaultMALURL         = "https://api.myanimelist.net/v2"
	DefaultTMDBURL        = "https://api.themoviedb.org/3"
	DefaultSteamAPIURL    = "https://api.steampowered.com"
	DefaultSteamStoreURL  = "https://store.steampowered.com"
	DefaultRAWGURL        = "https://api.rawg.io/api"
	DefaultGoogleBooksURL = "https://www.googleapis.com/books/v1"
)

// Image bases
const (
	TMDBImageBase   = "https://image.tmdb.org/t/p/w500"
	SteamHeaderBase = "https://cdn.cloudflare.steamstatic.com/steam/apps"
)

// Paging
const (
	AniListPageSize   = 50
	MALPageSize       = 100
	MaxSyncPages      = 500
	TMDBTrendingLimit = 5
	SteamSearchLimit  = 10
	SteamPopularLimit = 15
	RAWGPageSize      = 15
	RAWGTrendingDays  = 90
	BooksMaxResults   = 20
)

// Dedupe
const (
	DedupeThreshold = 0.85
)

// HTTP
const (
	UserIDHeader     = "X-User-ID"
	MaxSearchResults = 50
	MaxRequestBody   = 1 << 20
)
