package catalog

import (
	"context"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// Catalog payloads stay raw until normalized so one bad item can be
// rejected without losing the rest of its page.

// Searcher finds catalog entries for a free-text query.
type Searcher interface {
	Provider() domain.Provider
	Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error)
}

// Trender lists currently popular catalog entries.
type Trender interface {
	Provider() domain.Provider
	Trending(ctx context.Context, mt domain.MediaType) ([]json.RawMessage, error)
}

// Syncer exposes the lists a user keeps on a provider. Resolving the lists
// may call the provider (for example to look up the account id); fetching
// each list is deferred to UserList.Fetch.
type Syncer interface {
	Provider() domain.Provider
	UserLists(ctx context.Context, tok *oauth2.Token) ([]UserList, error)
}

// ListKind distinguishes lists whose items carry no status of their own.
type ListKind string

const (
	ListKindDefault   ListKind = ""
	ListKindWatchlist ListKind = "watchlist"
	ListKindRated     ListKind = "rated"
	ListKindLibrary   ListKind = "library"
)

// UserList is one complete list on a provider. Fetch returns every item
// or an error, never a partial list.
type UserList struct {
	Fetch     func(ctx context.Context) ([]json.RawMessage, error)
	Name      string
	MediaType domain.MediaType
	Kind      ListKind
}

// ListItem is a raw list entry with the context needed to normalize it.
type ListItem struct {
	Raw       json.RawMessage
	MediaType domain.MediaType
	Kind      ListKind
}

// Normalizer maps one provider's payloads onto canonical records. It is
// pure and safe for concurrent use.
type Normalizer interface {
	Provider() domain.Provider
	NormalizeMedia(raw json.RawMessage, mt domain.MediaType) (*domain.CanonicalMedia, error)
	NormalizeEntry(item ListItem) (*domain.RemoteEntry, error)
}
