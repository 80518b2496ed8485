package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/logger"
	"github.com/cesargomez89/mediasync/internal/store"
)

func TestProfileService_Options(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	svc := NewProfileService(db, store.NewSettingsRepo(db), logger.Discard())
	ctx := context.Background()

	pref, err := svc.Options(ctx, testUser)
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if !pref.PreserveLocalOnSync || pref.UseRawgForGames {
		t.Errorf("Expected defaults, got %+v", pref)
	}

	want := domain.SyncPreference{PreserveLocalOnSync: false, UseRawgForGames: true}
	if err := svc.SetOptions(ctx, testUser, want); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}
	pref, err = svc.Options(ctx, testUser)
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if pref != want {
		t.Errorf("Expected %+v, got %+v", want, pref)
	}
}

func TestProfileService_Connections(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	settings := store.NewSettingsRepo(db)
	svc := NewProfileService(db, settings, logger.Discard())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	if err := svc.Connect(ctx, testUser, domain.ProviderAniList, ConnectRequest{AccessToken: " "}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry for empty token, got %v", err)
	}

	expired := now.Add(-time.Hour)
	if err := svc.Connect(ctx, testUser, domain.ProviderAniList, ConnectRequest{AccessToken: "a"}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := svc.Connect(ctx, testUser, domain.ProviderMAL, ConnectRequest{AccessToken: "m", Expiry: &expired}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := settings.RecordSync(testUser, domain.ProviderAniList, now); err != nil {
		t.Fatalf("RecordSync failed: %v", err)
	}

	providers := []domain.Provider{domain.ProviderAniList, domain.ProviderMAL, domain.ProviderTMDB}
	conns, err := svc.Connections(ctx, testUser, providers)
	if err != nil {
		t.Fatalf("Connections failed: %v", err)
	}
	if len(conns) != 3 {
		t.Fatalf("Expected 3 connections, got %d", len(conns))
	}
	if !conns[0].Connected || conns[0].Expired || conns[0].LastSync == nil || !conns[0].LastSync.Equal(now) {
		t.Errorf("Unexpected AniList connection %+v", conns[0])
	}
	if !conns[1].Connected || !conns[1].Expired || conns[1].LastSync != nil {
		t.Errorf("Unexpected MAL connection %+v", conns[1])
	}
	if conns[2].Connected {
		t.Errorf("Expected TMDB not connected, got %+v", conns[2])
	}

	tok, err := db.Token(ctx, testUser, domain.ProviderAniList)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok.AccessToken != "a" || tok.TokenType != "Bearer" {
		t.Errorf("Unexpected token %+v", tok)
	}

	if err := svc.Disconnect(ctx, testUser, domain.ProviderAniList); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if _, err := db.Token(ctx, testUser, domain.ProviderAniList); !errors.Is(err, domain.ErrNoCredential) {
		t.Errorf("Expected ErrNoCredential, got %v", err)
	}
}
