package dto

import (
	"time"

	"github.com/cesargomez89/mediasync/internal/app"
	"github.com/cesargomez89/mediasync/internal/domain"
)

// OptionsRequest updates only the options it carries.
type OptionsRequest struct {
	PreserveLocalOnSync *bool `json:"preserve_local_on_sync"`
	UseRawgForGames     *bool `json:"use_rawg_for_games"`
}

func (r *OptionsRequest) Validate() []ValidationError {
	if r.PreserveLocalOnSync == nil && r.UseRawgForGames == nil {
		return []ValidationError{{Field: "body", Message: "no options to update"}}
	}
	return nil
}

func (r *OptionsRequest) Apply(pref domain.SyncPreference) domain.SyncPreference {
	if r.PreserveLocalOnSync != nil {
		pref.PreserveLocalOnSync = *r.PreserveLocalOnSync
	}
	if r.UseRawgForGames != nil {
		pref.UseRawgForGames = *r.UseRawgForGames
	}
	return pref
}

// ConnectRequest carries a token from an OAuth flow completed elsewhere.
// expires_in, in seconds, is used when expiry is absent.
type ConnectRequest struct {
	Expiry      *time.Time `json:"expiry"`
	AccessToken string     `json:"access_token" validate:"required"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in" validate:"gte=0"`
}

func (r *ConnectRequest) Validate() []ValidationError {
	return check(r)
}

func (r *ConnectRequest) ToConnectRequest(now time.Time) app.ConnectRequest {
	expiry := r.Expiry
	if expiry == nil && r.ExpiresIn > 0 {
		at := now.Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
		expiry = &at
	}
	return app.ConnectRequest{AccessToken: r.AccessToken, TokenType: r.TokenType, Expiry: expiry}
}
