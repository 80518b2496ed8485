package domain

import (
	"fmt"
	"strings"
	"time"
)

type MediaType string

const (
	MediaTypeAnime  MediaType = "ANIME"
	MediaTypeManga  MediaType = "MANGA"
	MediaTypeMovie  MediaType = "MOVIE"
	MediaTypeTVShow MediaType = "TV_SHOW"
	MediaTypeBook   MediaType = "BOOK"
	MediaTypeGame   MediaType = "GAME"
)

// MediaTypes lists every media type in display order.
var MediaTypes = []MediaType{
	MediaTypeAnime,
	MediaTypeManga,
	MediaTypeMovie,
	MediaTypeTVShow,
	MediaTypeBook,
	MediaTypeGame,
}

func (m MediaType) Valid() bool {
	for _, mt := range MediaTypes {
		if mt == m {
			return true
		}
	}
	return false
}

// ParseMediaType accepts the canonical names case-insensitively.
func ParseMediaType(s string) (MediaType, error) {
	mt := MediaType(strings.ToUpper(strings.TrimSpace(s)))
	if !mt.Valid() {
		return "", fmt.Errorf("unknown media type %q", s)
	}
	return mt, nil
}

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusPaused     Status = "PAUSED"
	StatusDropped    Status = "DROPPED"
	StatusPlanned    Status = "PLANNED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusPaused, StatusDropped, StatusPlanned:
		return true
	}
	return false
}

// Provider identifies an external catalog or tracker.
type Provider string

const (
	ProviderAniList     Provider = "ANILIST"
	ProviderMAL         Provider = "MAL"
	ProviderTMDB        Provider = "TMDB"
	ProviderSteam       Provider = "STEAM"
	ProviderRAWG        Provider = "RAWG"
	ProviderGoogleBooks Provider = "GOOGLE_BOOKS"
)

// Providers is the fixed priority order used when search results from
// several providers are deduplicated: earlier providers win.
var Providers = []Provider{
	ProviderAniList,
	ProviderMAL,
	ProviderTMDB,
	ProviderGoogleBooks,
	ProviderRAWG,
	ProviderSteam,
}

func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Providers {
		if known == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Priority returns the provider's position in Providers, or len(Providers)
// for unknown values.
func (p Provider) Priority() int {
	for i, known := range Providers {
		if known == p {
			return i
		}
	}
	return len(Providers)
}

// CanonicalMedia is a provider-agnostic catalog entry.
type CanonicalMedia struct {
	CreatedAt      time.Time    `json:"-" db:"created_at"`
	UpdatedAt      time.Time    `json:"-" db:"updated_at"`
	ProviderKeys   ProviderKeys `json:"provider_keys" db:"provider_keys"`
	MediaType      MediaType    `json:"media_type" db:"media_type"`
	Provider       Provider     `json:"provider" db:"provider"`
	ProviderID     string       `json:"provider_id" db:"provider_id"`
	PrimaryTitle   string       `json:"primary_title" db:"primary_title"`
	SecondaryTitle string       `json:"secondary_title,omitempty" db:"secondary_title"`
	CoverImageURL  string       `json:"cover_image_url,omitempty" db:"cover_image_url"`
	Description    string       `json:"description,omitempty" db:"description"`
	ID             int64        `json:"id,omitempty" db:"id"`
}

// Key returns the uniqueness key of the record.
func (m *CanonicalMedia) Key() MediaKey {
	return MediaKey{MediaType: m.MediaType, Provider: m.Provider, ProviderID: m.ProviderID}
}

// MediaKey identifies a CanonicalMedia by (media type, provider, provider id).
type MediaKey struct {
	MediaType  MediaType
	Provider   Provider
	ProviderID string
}

func (k MediaKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.MediaType, k.Provider, k.ProviderID)
}

// ActivityEntry is one user's relationship to one CanonicalMedia.
type ActivityEntry struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Score     *float64  `json:"score" db:"score"`
	UserID    string    `json:"user_id" db:"user_id"`
	Status    Status    `json:"status" db:"status"`
	MediaType MediaType `json:"media_type" db:"media_type"`
	ID        int64     `json:"id" db:"id"`
	MediaID   int64     `json:"media_id" db:"media_id"`
	Progress  int       `json:"progress" db:"progress"`
}

// SameActivity reports whether two entries carry the same personal fields.
func (a *ActivityEntry) SameActivity(b *ActivityEntry) bool {
	if a.Status != b.Status || a.Progress != b.Progress {
		return false
	}
	if a.Score == nil || b.Score == nil {
		return a.Score == nil && b.Score == nil
	}
	return *a.Score == *b.Score
}

// ListItem is an activity entry joined with its media, as shown to the user.
type ListItem struct {
	ActivityEntry
	Media CanonicalMedia `json:"media" db:"media"`
}

// RemoteEntry is a normalized list item fetched from a provider.
type RemoteEntry struct {
	Score    *float64       `json:"score"`
	Media    CanonicalMedia `json:"media"`
	Status   Status         `json:"status"`
	Progress int            `json:"progress"`
}

// SyncPreference is the merge policy configured on a user's profile.
type SyncPreference struct {
	PreserveLocalOnSync bool `json:"preserve_local_on_sync" db:"preserve_local_on_sync"`
	UseRawgForGames     bool `json:"use_rawg_for_games" db:"use_rawg_for_games"`
}

// DefaultSyncPreference is used for users without a stored profile.
func DefaultSyncPreference() SyncPreference {
	return SyncPreference{PreserveLocalOnSync: true}
}

// Credential is a provider access token stored for a user.
type Credential struct {
	Expiry      *time.Time `json:"expiry,omitempty" db:"expiry"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	UserID      string     `json:"user_id" db:"user_id"`
	Provider    Provider   `json:"provider" db:"provider"`
	AccessToken string     `json:"-" db:"access_token"`
	TokenType   string     `json:"token_type" db:"token_type"`
}
