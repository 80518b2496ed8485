package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/mediasync/internal/domain"
)

type SettingsRepo struct {
	db *DB
}

func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(key string) (string, error) {
	var value string
	err := r.db.Get(&value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (r *SettingsRepo) Set(key, value string) error {
	_, err := r.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	return err
}

func (r *SettingsRepo) Delete(key string) error {
	_, err := r.db.Exec("DELETE FROM settings WHERE key = ?", key)
	return err
}

const SettingLastSyncPrefix = "last_sync"

func lastSyncKey(userID string, provider domain.Provider) string {
	return SettingLastSyncPrefix + ":" + userID + ":" + string(provider)
}

// RecordSync stores when userID last completed a sync with provider.
func (r *SettingsRepo) RecordSync(userID string, provider domain.Provider, at time.Time) error {
	return r.Set(lastSyncKey(userID, provider), at.UTC().Format(time.RFC3339))
}

// LastSync returns the zero time when the provider was never synced.
func (r *SettingsRepo) LastSync(userID string, provider domain.Provider) (time.Time, error) {
	v, err := r.Get(lastSyncKey(userID, provider))
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
