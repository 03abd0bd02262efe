package trakt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// maxItems is the page size requested for user categories; large enough to
// return a whole category in one response
const maxItems = 100000

// CheckUser confirms that a user profile exists and is readable
func (c *Client) CheckUser(ctx context.Context, username string) error {
	var stats UserStats
	err := c.doRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(username)+"/stats", nil, &stats)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return fmt.Errorf("failed to check user %s: %w", username, err)
	}
	return nil
}

// FetchUserCategory downloads one category of a user's data as raw JSON.
// Rate limited and server errors are retried with exponential backoff;
// a 404 means the user does not exist.
func (c *Client) FetchUserCategory(ctx context.Context, username, item, endpoint string) ([]byte, error) {
	path := "/users/" + url.PathEscape(username) + "/" + item
	if endpoint != "" {
		path += "/" + endpoint
	}
	path += fmt.Sprintf("?limit=%d", maxItems)

	logger := c.logger.WithFields(logrus.Fields{
		"user":     username,
		"item":     item,
		"endpoint": endpoint,
	})

	operation := func() ([]byte, error) {
		if err := c.ensureValidToken(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to ensure valid token: %w", err))
		}

		data, err := c.do(ctx, http.MethodGet, path, nil)
		if err == nil {
			return data, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusNotFound {
				return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrUserNotFound, username))
			}
			if !apiErr.Retryable() {
				return nil, backoff.Permanent(err)
			}
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = c.backupMaxElapsed
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = 2 * time.Minute
	}

	notify := func(err error, wait time.Duration) {
		logger.WithError(err).WithField("retry_in", wait).Warn("Fetch failed, retrying")
	}

	data, err := backoff.RetryNotifyWithData(operation, backoff.WithContext(b, ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", item, endpoint, err)
	}

	logger.WithField("bytes", len(data)).Debug("Fetched user category")
	return data, nil
}
