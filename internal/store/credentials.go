package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// SaveCredential stores or replaces the user's token for a provider.
func (db *DB) SaveCredential(ctx context.Context, c *domain.Credential) error {
	c.UpdatedAt = time.Now().UTC()
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO credentials (user_id, provider, access_token, token_type, expiry, updated_at)
		VALUES (:user_id, :provider, :access_token, :token_type, :expiry, :updated_at)
		ON CONFLICT(user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`, c)
	if err != nil {
		return fmt.Errorf("failed to save %s credential: %w", c.Provider, err)
	}
	return nil
}

func (db *DB) GetCredential(ctx context.Context, userID string, provider domain.Provider) (*domain.Credential, error) {
	var c domain.Credential
	err := db.GetContext(ctx, &c, "SELECT * FROM credentials WHERE user_id = ? AND provider = ?", userID, provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoCredential
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCredentials returns the user's stored credentials ordered by provider.
func (db *DB) ListCredentials(ctx context.Context, userID string) ([]domain.Credential, error) {
	var creds []domain.Credential
	err := db.SelectContext(ctx, &creds, "SELECT * FROM credentials WHERE user_id = ? ORDER BY provider", userID)
	return creds, err
}

func (db *DB) DeleteCredential(ctx context.Context, userID string, provider domain.Provider) error {
	_, err := db.ExecContext(ctx, "DELETE FROM credentials WHERE user_id = ? AND provider = ?", userID, provider)
	return err
}

// Token returns the stored credential as an oauth2 token. It returns
// domain.ErrNoCredential when the user never connected the provider.
func (db *DB) Token(ctx context.Context, userID string, provider domain.Provider) (*oauth2.Token, error) {
	c, err := db.GetCredential(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{AccessToken: c.AccessToken, TokenType: c.TokenType}
	if c.Expiry != nil {
		tok.Expiry = *c.Expiry
	}
	return tok, nil
}
