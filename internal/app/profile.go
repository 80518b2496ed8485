package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/logger"
)

type ProfileStore interface {
	PreferenceSource
	SetPreference(ctx context.Context, userID string, pref domain.SyncPreference) error
	SaveCredential(ctx context.Context, c *domain.Credential) error
	ListCredentials(ctx context.Context, userID string) ([]domain.Credential, error)
	DeleteCredential(ctx context.Context, userID string, provider domain.Provider) error
}

// LastSyncSource reports when a provider was last synced. The zero time
// means never.
type LastSyncSource interface {
	LastSync(userID string, provider domain.Provider) (time.Time, error)
}

// Connection describes a provider link without exposing its token.
type Connection struct {
	Expiry    *time.Time      `json:"expiry,omitempty"`
	LastSync  *time.Time      `json:"last_sync,omitempty"`
	Provider  domain.Provider `json:"provider"`
	Connected bool            `json:"connected"`
	Expired   bool            `json:"expired"`
}

// ConnectRequest carries a token obtained by an external OAuth flow.
type ConnectRequest struct {
	Expiry      *time.Time
	AccessToken string
	TokenType   string
}

// ProfileService owns the per-user options and provider connections.
type ProfileService struct {
	Repo     ProfileStore
	LastSync LastSyncSource
	Logger   *logger.Logger
	now      func() time.Time
}

func NewProfileService(repo ProfileStore, lastSync LastSyncSource, log *logger.Logger) *ProfileService {
	return &ProfileService{
		Repo:     repo,
		LastSync: lastSync,
		Logger:   log.WithComponent("profile"),
		now:      time.Now,
	}
}

func (s *ProfileService) Options(ctx context.Context, userID string) (domain.SyncPreference, error) {
	return s.Repo.GetPreference(ctx, userID)
}

func (s *ProfileService) SetOptions(ctx context.Context, userID string, pref domain.SyncPreference) error {
	if err := s.Repo.SetPreference(ctx, userID, pref); err != nil {
		return fmt.Errorf("failed to save options: %w", err)
	}
	s.Logger.Info("Options updated", "user_id", userID,
		"preserve_local_on_sync", pref.PreserveLocalOnSync,
		"use_rawg_for_games", pref.UseRawgForGames)
	return nil
}

// Connect stores the credential used by later syncs with provider.
func (s *ProfileService) Connect(ctx context.Context, userID string, provider domain.Provider, req ConnectRequest) error {
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		return fmt.Errorf("%w: access token is required", ErrInvalidEntry)
	}
	tokenType := req.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	c := &domain.Credential{
		UserID:      userID,
		Provider:    provider,
		AccessToken: token,
		TokenType:   tokenType,
		Expiry:      req.Expiry,
	}
	if err := s.Repo.SaveCredential(ctx, c); err != nil {
		return err
	}
	s.Logger.Info("Provider connected", "user_id", userID, "provider", provider)
	return nil
}

func (s *ProfileService) Disconnect(ctx context.Context, userID string, provider domain.Provider) error {
	if err := s.Repo.DeleteCredential(ctx, userID, provider); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", provider, err)
	}
	s.Logger.Info("Provider disconnected", "user_id", userID, "provider", provider)
	return nil
}

// Connections lists every syncable provider with its link state.
func (s *ProfileService) Connections(ctx context.Context, userID string, providers []domain.Provider) ([]Connection, error) {
	creds, err := s.Repo.ListCredentials(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	byProvider := make(map[domain.Provider]domain.Credential, len(creds))
	for _, c := range creds {
		byProvider[c.Provider] = c
	}

	now := s.now()
	out := make([]Connection, 0, len(providers))
	for _, p := range providers {
		conn := Connection{Provider: p}
		if c, ok := byProvider[p]; ok {
			conn.Connected = true
			conn.Expiry = c.Expiry
			conn.Expired = c.Expiry != nil && !c.Expiry.After(now)
		}
		if s.LastSync != nil {
			at, err := s.LastSync.LastSync(userID, p)
			if err != nil {
				s.Logger.Warn("Failed to read last sync", "user_id", userID, "provider", p, "error", err)
			} else if !at.IsZero() {
				conn.LastSync = &at
			}
		}
		out = append(out, conn)
	}
	return out, nil
}
