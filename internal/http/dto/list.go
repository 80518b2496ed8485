package dto

import (
	"github.com/cesargomez89/mediasync/internal/app"
	"github.com/cesargomez89/mediasync/internal/domain"
)

// MediaCandidate is a search result posted back to be added to a list.
type MediaCandidate struct {
	MediaType      string `json:"media_type" validate:"required,oneof=ANIME MANGA MOVIE TV_SHOW BOOK GAME"`
	Provider       string `json:"provider" validate:"required,oneof=ANILIST MAL TMDB GOOGLE_BOOKS RAWG STEAM"`
	ProviderID     string `json:"provider_id" validate:"required"`
	PrimaryTitle   string `json:"primary_title" validate:"required"`
	SecondaryTitle string `json:"secondary_title"`
	CoverImageURL  string `json:"cover_image_url" validate:"omitempty,url"`
	Description    string `json:"description"`
}

type AddItemRequest struct {
	Media    *MediaCandidate `json:"media" validate:"required"`
	Score    *float64        `json:"score" validate:"omitempty,gte=0,lte=10"`
	Status   string          `json:"status" validate:"omitempty,oneof=IN_PROGRESS COMPLETED PAUSED DROPPED PLANNED"`
	Progress int             `json:"progress" validate:"gte=0"`
}

func (r *AddItemRequest) Validate() []ValidationError {
	return check(r)
}

func (r *AddItemRequest) ToAddRequest() app.AddRequest {
	m := r.Media
	return app.AddRequest{
		Media: domain.CanonicalMedia{
			MediaType:      domain.MediaType(m.MediaType),
			Provider:       domain.Provider(m.Provider),
			ProviderID:     m.ProviderID,
			PrimaryTitle:   m.PrimaryTitle,
			SecondaryTitle: m.SecondaryTitle,
			CoverImageURL:  m.CoverImageURL,
			Description:    m.Description,
		},
		Status:   domain.Status(r.Status),
		Score:    r.Score,
		Progress: r.Progress,
	}
}

// UpdateItemRequest is a partial edit. Absent fields are left alone and
// clear_score removes the score.
type UpdateItemRequest struct {
	Status     *string  `json:"status" validate:"omitempty,oneof=IN_PROGRESS COMPLETED PAUSED DROPPED PLANNED"`
	Score      *float64 `json:"score" validate:"omitempty,gte=0,lte=10"`
	Progress   *int     `json:"progress" validate:"omitempty,gte=0"`
	ClearScore bool     `json:"clear_score"`
}

func (r *UpdateItemRequest) Validate() []ValidationError {
	errs := check(r)
	if r.Status == nil && r.Score == nil && r.Progress == nil && !r.ClearScore {
		errs = append(errs, ValidationError{Field: "body", Message: "no fields to update"})
	}
	if r.ClearScore && r.Score != nil {
		errs = append(errs, ValidationError{Field: "clear_score", Message: "cannot be combined with score"})
	}
	return errs
}

func (r *UpdateItemRequest) ToUpdate() app.EntryUpdate {
	upd := app.EntryUpdate{Score: r.Score, Progress: r.Progress, ClearScore: r.ClearScore}
	if r.Status != nil {
		s := domain.Status(*r.Status)
		upd.Status = &s
	}
	return upd
}

// ListResponse is one page of a user's list.
type ListResponse struct {
	Items      []domain.ListItem `json:"items"`
	Pagination *Pagination       `json:"pagination"`
}

// NewListResponse slices items to the requested page.
func NewListResponse(items []domain.ListItem, page, pageSize int) ListResponse {
	p := NewPagination(page, pageSize, len(items))
	start := (p.CurrentPage - 1) * p.PageSize
	end := start + p.PageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	return ListResponse{Items: items[start:end], Pagination: p}
}
