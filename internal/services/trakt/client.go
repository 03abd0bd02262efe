package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amaumene/traktdb/internal/config"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	baseURL    = "https://api.trakt.tv"
	apiVersion = "2"
	userAgent  = "traktdb"
)

// Client handles communication with Trakt API
type Client struct {
	baseURL          string
	clientID         string
	clientSecret     string
	tokenStore       TokenStore
	httpClient       *http.Client
	cache            *cache.Cache
	backupMaxElapsed time.Duration
	pollUnit         time.Duration // unit of the device flow's interval and expiry
	logger           *logrus.Logger
}

// NewClient creates a new Trakt API client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	tokenStore, err := NewFileTokenStore(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		baseURL:          baseURL,
		clientID:         cfg.TraktClientID,
		clientSecret:     cfg.TraktClientSecret,
		tokenStore:       tokenStore,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		cache:            cache.New(ttl, 2*ttl),
		backupMaxElapsed: cfg.BackupMaxElapsed,
		pollUnit:         time.Second,
		logger:           logger,
	}, nil
}

// doRequest performs an authenticated HTTP request to Trakt API and decodes the JSON response
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	// Check and refresh token if needed
	if err := c.ensureValidToken(ctx); err != nil {
		return fmt.Errorf("failed to ensure valid token: %w", err)
	}

	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}

	return decode(data, result)
}

// getCached performs a GET request, serving repeated paths from the response cache
func (c *Client) getCached(ctx context.Context, path string, result interface{}) error {
	if cached, ok := c.cache.Get(path); ok {
		c.logger.WithField("path", path).Debug("Trakt response served from cache")
		return decode(cached.([]byte), result)
	}

	if err := c.ensureValidToken(ctx); err != nil {
		return fmt.Errorf("failed to ensure valid token: %w", err)
	}

	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := decode(data, result); err != nil {
		return err
	}
	c.cache.Set(path, data, cache.DefaultExpiration)
	return nil
}

// do sends one request and returns the raw body of a 2xx response.
// Non-2xx responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	fullURL := c.baseURL + path
	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    fullURL,
	}).Debug("Making Trakt API request")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)
	req.Header.Set("User-Agent", userAgent)

	// Add authorization if we have a token
	token, err := c.tokenStore.GetToken()
	if err == nil && token != nil {
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	// Perform request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrLookupFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrLookupFailure, err)
	}

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       string(data),
		}
	}

	return data, nil
}

func decode(data []byte, result interface{}) error {
	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrLookupFailure, err)
	}
	return nil
}

