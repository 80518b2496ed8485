package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// GetActivityEntry returns the entry of userID for mediaID, or
// domain.ErrNotFound.
func (db *DB) GetActivityEntry(ctx context.Context, userID string, mediaID int64) (*domain.ActivityEntry, error) {
	var e domain.ActivityEntry
	err := db.GetContext(ctx, &e, "SELECT * FROM activity_entries WHERE user_id = ? AND media_id = ?", userID, mediaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetActivityEntryByID scopes the lookup to userID so users cannot read
// each other's entries.
func (db *DB) GetActivityEntryByID(ctx context.Context, userID string, id int64) (*domain.ActivityEntry, error) {
	var e domain.ActivityEntry
	err := db.GetContext(ctx, &e, "SELECT * FROM activity_entries WHERE user_id = ? AND id = ?", userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertActivityEntry writes e keyed by (user_id, media_id) and sets its id
// and timestamps.
func (db *DB) UpsertActivityEntry(ctx context.Context, e *domain.ActivityEntry) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	query := `INSERT INTO activity_entries (
		user_id, media_id, media_type, status, score, progress, created_at, updated_at
	) VALUES (
		:user_id, :media_id, :media_type, :status, :score, :progress, :created_at, :updated_at
	)
	ON CONFLICT(user_id, media_id) DO UPDATE SET
		media_type = excluded.media_type,
		status = excluded.status,
		score = excluded.score,
		progress = excluded.progress,
		updated_at = excluded.updated_at`

	if _, err := db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("failed to upsert activity entry: %w", err)
	}

	stored, err := db.GetActivityEntry(ctx, e.UserID, e.MediaID)
	if err != nil {
		return fmt.Errorf("failed to reload activity entry: %w", err)
	}
	*e = *stored
	return nil
}

// DeleteActivityEntry removes the entry id owned by userID.
func (db *DB) DeleteActivityEntry(ctx context.Context, userID string, id int64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM activity_entries WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) ListActivityEntries(ctx context.Context, userID string) ([]domain.ActivityEntry, error) {
	var entries []domain.ActivityEntry
	err := db.SelectContext(ctx, &entries, "SELECT * FROM activity_entries WHERE user_id = ? ORDER BY id", userID)
	return entries, err
}

const listItemsQuery = `SELECT
	a.id, a.user_id, a.media_id, a.media_type, a.status, a.score, a.progress, a.created_at, a.updated_at,
	m.id AS "media.id",
	m.media_type AS "media.media_type",
	m.provider AS "media.provider",
	m.provider_id AS "media.provider_id",
	m.provider_keys AS "media.provider_keys",
	m.primary_title AS "media.primary_title",
	m.secondary_title AS "media.secondary_title",
	m.cover_image_url AS "media.cover_image_url",
	m.description AS "media.description",
	m.created_at AS "media.created_at",
	m.updated_at AS "media.updated_at"
FROM activity_entries a
JOIN media m ON m.id = a.media_id
WHERE a.user_id = ?`

// ListItems returns the user's entries joined with their media, highest
// score first and unscored entries last. An empty mediaType lists all.
func (db *DB) ListItems(ctx context.Context, userID string, mediaType domain.MediaType) ([]domain.ListItem, error) {
	query := listItemsQuery
	args := []interface{}{userID}
	if mediaType != "" {
		query += " AND a.media_type = ?"
		args = append(args, mediaType)
	}
	query += " ORDER BY a.score IS NULL, a.score DESC, a.updated_at DESC"

	var items []domain.ListItem
	if err := db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}
