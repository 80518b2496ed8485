package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/cesargomez89/mediasync/internal/domain"
)

// GetJSON issues a GET and decodes the response body into target.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Permanent(c.name, err)
	}
	return c.doJSON(ctx, req, header, target)
}

// PostJSON encodes body as JSON, issues a POST and decodes the response into target.
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, body, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return Permanent(c.name, fmt.Errorf("failed to encode request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Permanent(c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req, header, target)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, header http.Header, target interface{}) error {
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	c.logger.Debug("API request", "method", req.Method, "url", req.URL.Redacted())
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return Permanent(c.name, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// AuthHeader builds the Authorization header for an issued token. A missing
// or expired token is a permanent error.
func AuthHeader(provider string, tok *oauth2.Token) (http.Header, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, Permanent(provider, domain.ErrNoCredential)
	}
	if !tok.Valid() {
		return nil, Permanent(provider, domain.ErrTokenExpired)
	}
	h := http.Header{}
	h.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	return h, nil
}

// ValidToken checks a token whose value is used as a query parameter
// rather than a header.
func ValidToken(provider string, tok *oauth2.Token) error {
	_, err := AuthHeader(provider, tok)
	return err
}
