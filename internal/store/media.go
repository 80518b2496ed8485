package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// UpsertMedia inserts m or refreshes the existing row with the same
// (media_type, provider, provider_id). Descriptive fields are replaced
// wholesale; provider keys are merged. m is replaced by the stored row.
func (db *DB) UpsertMedia(ctx context.Context, m *domain.CanonicalMedia) error {
	if m.ProviderKeys == nil {
		m.ProviderKeys = domain.ProviderKeys{m.Provider: m.ProviderID}
	}
	now := time.Now().UTC()

	query := `INSERT INTO media (
		media_type, provider, provider_id, provider_keys,
		primary_title, secondary_title, cover_image_url, description,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(media_type, provider, provider_id) DO UPDATE SET
		provider_keys = json_patch(media.provider_keys, excluded.provider_keys),
		primary_title = excluded.primary_title,
		secondary_title = excluded.secondary_title,
		cover_image_url = excluded.cover_image_url,
		description = excluded.description,
		updated_at = excluded.updated_at`

	if _, err := db.ExecContext(ctx, query,
		m.MediaType, m.Provider, m.ProviderID, m.ProviderKeys,
		m.PrimaryTitle, m.SecondaryTitle, m.CoverImageURL, m.Description,
		now, now,
	); err != nil {
		return fmt.Errorf("failed to upsert media %s: %w", m.Key(), err)
	}

	stored, err := db.GetMediaByKey(ctx, m.Key())
	if err != nil {
		return fmt.Errorf("failed to reload media %s: %w", m.Key(), err)
	}
	*m = *stored
	return nil
}

func (db *DB) GetMedia(ctx context.Context, id int64) (*domain.CanonicalMedia, error) {
	var m domain.CanonicalMedia
	err := db.GetContext(ctx, &m, "SELECT * FROM media WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (db *DB) GetMediaByKey(ctx context.Context, key domain.MediaKey) (*domain.CanonicalMedia, error) {
	var m domain.CanonicalMedia
	err := db.GetContext(ctx, &m,
		"SELECT * FROM media WHERE media_type = ? AND provider = ? AND provider_id = ?",
		key.MediaType, key.Provider, key.ProviderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
