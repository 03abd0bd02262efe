package trakt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// refreshMargin is how long before expiry a stored token is renewed
const refreshMargin = 24 * time.Hour

var (
	// ErrNoToken means no token has been stored yet; requests go out unauthenticated
	ErrNoToken = errors.New("no stored token")
	// ErrAuthorizationDenied means the user rejected the device code
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrDeviceCodeExpired means the device code ran out before it was approved
	ErrDeviceCodeExpired = errors.New("device code expired")
)

// TokenStore loads and persists the OAuth token used for private profiles
type TokenStore interface {
	GetToken() (*Token, error)
	SaveToken(token *Token) error
}

// Token is an OAuth access token with its refresh token
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the token expires before now+d
func (t *Token) ExpiresWithin(now time.Time, d time.Duration) bool {
	return t.ExpiresAt.Before(now.Add(d))
}

// FileTokenStore keeps the token as JSON in the config directory
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store backed by path; the file is created on first save
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path is empty")
	}
	return &FileTokenStore{path: path}, nil
}

// GetToken reads the stored token, or returns ErrNoToken when none was saved
func (s *FileTokenStore) GetToken() (*Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}
	if token.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &token, nil
}

// SaveToken writes the token through a temporary file so a crash never leaves half a token
func (s *FileTokenStore) SaveToken(token *Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// DeviceCode is the code pair issued at the start of the device flow
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// TokenResponse is the body of a successful token or refresh request
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

func (r *TokenResponse) token(now time.Time) *Token {
	issued := now
	if r.CreatedAt > 0 {
		issued = time.Unix(r.CreatedAt, 0)
	}
	return &Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    issued.Add(time.Duration(r.ExpiresIn) * time.Second),
	}
}

// GetToken returns the stored token
func (c *Client) GetToken() (*Token, error) {
	return c.tokenStore.GetToken()
}

// Authenticate runs the device-code flow: it writes the verification URL and
// user code to prompt, polls until the user approves, and stores the token.
func (c *Client) Authenticate(ctx context.Context, prompt io.Writer) error {
	var code DeviceCode
	data, err := c.do(ctx, http.MethodPost, "/oauth/device/code", map[string]string{"client_id": c.clientID})
	if err != nil {
		return fmt.Errorf("failed to get device code: %w", err)
	}
	if err := decode(data, &code); err != nil {
		return fmt.Errorf("failed to get device code: %w", err)
	}

	c.logger.WithField("url", code.VerificationURL).Info("Waiting for device authorization")
	fmt.Fprintf(prompt, "\nOpen %s and enter the code %s\n\n", code.VerificationURL, code.UserCode)

	interval := time.Duration(code.Interval) * c.pollUnit
	if interval <= 0 {
		interval = 5 * c.pollUnit
	}
	deadline := time.Now().Add(time.Duration(code.ExpiresIn) * c.pollUnit)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if time.Now().After(deadline) {
			return ErrDeviceCodeExpired
		}

		token, slowDown, err := c.pollDeviceToken(ctx, code.DeviceCode)
		if err != nil {
			return err
		}
		if token == nil {
			if slowDown {
				interval += c.pollUnit
			}
			timer.Reset(interval)
			continue
		}

		if err := c.tokenStore.SaveToken(token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		c.logger.Info("Device authorized, token stored")
		return nil
	}
}

// pollDeviceToken asks once for the token of a device code. A nil token
// without error means the user has not answered yet; slowDown asks for a
// longer interval.
func (c *Client) pollDeviceToken(ctx context.Context, deviceCode string) (*Token, bool, error) {
	data, err := c.do(ctx, http.MethodPost, "/oauth/device/token", map[string]string{
		"code":          deviceCode,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})

	var apiErr *APIError
	switch {
	case err == nil:
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest:
		c.logger.Debug("Device authorization pending")
		return nil, false, nil
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests:
		return nil, true, nil
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusGone:
		return nil, false, ErrDeviceCodeExpired
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTeapot:
		return nil, false, ErrAuthorizationDenied
	default:
		return nil, false, fmt.Errorf("device authorization failed: %w", err)
	}

	var resp TokenResponse
	if err := decode(data, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to decode token: %w", err)
	}
	return resp.token(time.Now()), false, nil
}

// RefreshToken exchanges the stored refresh token for a new token
func (c *Client) RefreshToken(ctx context.Context) error {
	current, err := c.tokenStore.GetToken()
	if err != nil {
		return fmt.Errorf("no token to refresh: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/oauth/token", map[string]string{
		"refresh_token": current.RefreshToken,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"redirect_uri":  "urn:ietf:wg:oauth:2.0:oob",
		"grant_type":    "refresh_token",
	})
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	var resp TokenResponse
	if err := decode(data, &resp); err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	if err := c.tokenStore.SaveToken(resp.token(time.Now())); err != nil {
		return fmt.Errorf("failed to save refreshed token: %w", err)
	}

	c.logger.Info("Token refreshed")
	return nil
}

// ensureValidToken renews a stored token close to expiry. Without a stored
// token requests go out unauthenticated, which public profiles allow.
func (c *Client) ensureValidToken(ctx context.Context) error {
	token, err := c.tokenStore.GetToken()
	if errors.Is(err, ErrNoToken) {
		c.logger.Debug("No stored token, using public access")
		return nil
	}
	if err != nil {
		return err
	}

	if token.ExpiresWithin(time.Now(), refreshMargin) {
		c.logger.WithField("expires_at", token.ExpiresAt).Info("Token expires soon, refreshing")
		return c.RefreshToken(ctx)
	}
	return nil
}
