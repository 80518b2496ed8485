package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/logger"
)

// ErrInvalidEntry is returned for list edits with out-of-range values.
var ErrInvalidEntry = errors.New("invalid list entry")

// ListStore adds the explicit list operations to Store.
type ListStore interface {
	Store
	GetActivityEntryByID(ctx context.Context, userID string, id int64) (*domain.ActivityEntry, error)
	DeleteActivityEntry(ctx context.Context, userID string, id int64) error
	ListItems(ctx context.Context, userID string, mediaType domain.MediaType) ([]domain.ListItem, error)
}

// AddRequest adds a search candidate to a user's list. Zero values default
// to PLANNED with no score and no progress.
type AddRequest struct {
	Score    *float64
	Media    domain.CanonicalMedia
	Status   domain.Status
	Progress int
}

// EntryUpdate is an explicit user edit. Nil fields are left alone and
// ClearScore removes the score.
type EntryUpdate struct {
	Status     *domain.Status
	Score      *float64
	Progress   *int
	ClearScore bool
}

// ListService manages the user's own list. Explicit edits always apply,
// regardless of the sync preference.
type ListService struct {
	Repo   ListStore
	Logger *logger.Logger
}

func NewListService(repo ListStore, log *logger.Logger) *ListService {
	return &ListService{Repo: repo, Logger: log.WithComponent("list")}
}

func validateEntry(status domain.Status, score *float64, progress int) (*float64, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, status)
	}
	if progress < 0 {
		return nil, fmt.Errorf("%w: negative progress %d", ErrInvalidEntry, progress)
	}
	if score == nil {
		return nil, nil
	}
	if math.IsNaN(*score) || *score < 0 || *score > 10 {
		return nil, fmt.Errorf("%w: score %v outside [0,10]", ErrInvalidEntry, *score)
	}
	v := math.Round(*score*10) / 10
	return &v, nil
}

func validateCandidate(m *domain.CanonicalMedia) error {
	switch {
	case !m.MediaType.Valid():
		return fmt.Errorf("%w: unknown media type %q", ErrInvalidEntry, m.MediaType)
	case m.Provider.Priority() == len(domain.Providers):
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidEntry, m.Provider)
	case strings.TrimSpace(m.ProviderID) == "":
		return fmt.Errorf("%w: provider id is required", ErrInvalidEntry)
	case strings.TrimSpace(m.PrimaryTitle) == "":
		return fmt.Errorf("%w: primary title is required", ErrInvalidEntry)
	}
	return nil
}

// Add stores the candidate media and creates the user's entry for it. An
// existing entry is returned untouched with created set to false.
func (s *ListService) Add(ctx context.Context, userID string, req AddRequest) (item *domain.ListItem, created bool, err error) {
	media := req.Media
	if err := validateCandidate(&media); err != nil {
		return nil, false, err
	}
	if media.ProviderKeys == nil {
		media.ProviderKeys = domain.ProviderKeys{}
	}
	media.ProviderKeys[media.Provider] = media.ProviderID

	status := req.Status
	if status == "" {
		status = domain.StatusPlanned
	}
	score, err := validateEntry(status, req.Score, req.Progress)
	if err != nil {
		return nil, false, err
	}

	if err := s.Repo.UpsertMedia(ctx, &media); err != nil {
		return nil, false, err
	}

	existing, err := s.Repo.GetActivityEntry(ctx, userID, media.ID)
	if err == nil {
		return &domain.ListItem{ActivityEntry: *existing, Media: media}, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load activity entry: %w", err)
	}

	entry := domain.ActivityEntry{
		UserID:    userID,
		MediaID:   media.ID,
		MediaType: media.MediaType,
		Status:    status,
		Score:     score,
		Progress:  req.Progress,
	}
	if err := s.Repo.UpsertActivityEntry(ctx, &entry); err != nil {
		return nil, false, err
	}
	s.Logger.Info("Added to list", "user_id", userID, "media", media.Key().String(), "title", media.PrimaryTitle)
	return &domain.ListItem{ActivityEntry: entry, Media: media}, true, nil
}

// Edit applies an explicit user edit to the entry with the given id.
func (s *ListService) Edit(ctx context.Context, userID string, id int64, upd EntryUpdate) (*domain.ActivityEntry, error) {
	entry, err := s.Repo.GetActivityEntryByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil {
		entry.Status = *upd.Status
	}
	if upd.Progress != nil {
		entry.Progress = *upd.Progress
	}
	switch {
	case upd.ClearScore:
		entry.Score = nil
	case upd.Score != nil:
		entry.Score = upd.Score
	}

	score, err := validateEntry(entry.Status, entry.Score, entry.Progress)
	if err != nil {
		return nil, err
	}
	entry.Score = score

	if err := s.Repo.UpsertActivityEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ListService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.Repo.DeleteActivityEntry(ctx, userID, id); err != nil {
		return err
	}
	s.Logger.Info("Removed from list", "user_id", userID, "entry_id", id)
	return nil
}

// List returns the user's entries with their media, best scored first. An
// empty mediaType lists every type.
func (s *ListService) List(ctx context.Context, userID string, mediaType domain.MediaType) ([]domain.ListItem, error) {
	if mediaType != "" && !mediaType.Valid() {
		return nil, fmt.Errorf("%w: unknown media type %q", ErrInvalidEntry, mediaType)
	}
	return s.Repo.ListItems(ctx, userID, mediaType)
}
