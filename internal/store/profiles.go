package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// GetPreference returns the user's sync preference, or the defaults when
// no profile was stored.
func (db *DB) GetPreference(ctx context.Context, userID string) (domain.SyncPreference, error) {
	var pref domain.SyncPreference
	err := db.GetContext(ctx, &pref,
		"SELECT preserve_local_on_sync, use_rawg_for_games FROM profiles WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSyncPreference(), nil
	}
	if err != nil {
		return domain.SyncPreference{}, err
	}
	return pref, nil
}

func (db *DB) SetPreference(ctx context.Context, userID string, pref domain.SyncPreference) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, preserve_local_on_sync, use_rawg_for_games, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			preserve_local_on_sync = excluded.preserve_local_on_sync,
			use_rawg_for_games = excluded.use_rawg_for_games,
			updated_at = excluded.updated_at
	`, userID, pref.PreserveLocalOnSync, pref.UseRawgForGames, time.Now().UTC())
	return err
}
