package trakt

import (
	"context"
	"fmt"
	"net/url"

	"github.com/amaumene/traktdb/internal/models"
	"github.com/sirupsen/logrus"
)

// GetSeasonCatalog returns every season of a show with its episodes embedded
func (c *Client) GetSeasonCatalog(ctx context.Context, showID int64) ([]Season, error) {
	path := fmt.Sprintf("/shows/%d/seasons?extended=episodes", showID)

	var seasons []Season
	if err := c.getCached(ctx, path, &seasons); err != nil {
		return nil, fmt.Errorf("failed to get seasons for show %d: %w", showID, err)
	}

	c.logger.WithFields(logrus.Fields{
		"show_id": showID,
		"seasons": len(seasons),
	}).Debug("Fetched season catalog")

	return seasons, nil
}

// GetExtendedRecord fetches the full record of a show or movie into out
func (c *Client) GetExtendedRecord(ctx context.Context, kind models.MediaType, slugOrID string, out interface{}) error {
	var collection string
	switch kind {
	case models.MediaTypeShow:
		collection = "shows"
	case models.MediaTypeMovie:
		collection = "movies"
	default:
		return fmt.Errorf("unsupported extended record kind %q", kind)
	}

	path := fmt.Sprintf("/%s/%s?extended=full", collection, url.PathEscape(slugOrID))
	if err := c.getCached(ctx, path, out); err != nil {
		return fmt.Errorf("failed to get extended %s %s: %w", kind, slugOrID, err)
	}
	return nil
}

// GetExtendedShow fetches the full record of a show
func (c *Client) GetExtendedShow(ctx context.Context, slugOrID string) (*ExtendedShow, error) {
	var show ExtendedShow
	if err := c.GetExtendedRecord(ctx, models.MediaTypeShow, slugOrID, &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// GetExtendedMovie fetches the full record of a movie
func (c *Client) GetExtendedMovie(ctx context.Context, slugOrID string) (*ExtendedMovie, error) {
	var movie ExtendedMovie
	if err := c.GetExtendedRecord(ctx, models.MediaTypeMovie, slugOrID, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// GetExtendedEpisode fetches the full record of one episode of a show
func (c *Client) GetExtendedEpisode(ctx context.Context, showSlugOrID string, season, number int) (*ExtendedEpisode, error) {
	path := fmt.Sprintf("/shows/%s/seasons/%d/episodes/%d?extended=full", url.PathEscape(showSlugOrID), season, number)

	var episode ExtendedEpisode
	if err := c.getCached(ctx, path, &episode); err != nil {
		return nil, fmt.Errorf("failed to get extended episode %s S%02dE%02d: %w", showSlugOrID, season, number, err)
	}
	return &episode, nil
}

// GetGenres returns the union of the movie and show genre catalogs, deduplicated by slug
func (c *Client) GetGenres(ctx context.Context) ([]Genre, error) {
	seen := make(map[string]bool)
	var genres []Genre

	for _, kind := range []string{"movies", "shows"} {
		var page []Genre
		if err := c.getCached(ctx, "/genres/"+kind, &page); err != nil {
			return nil, fmt.Errorf("failed to get %s genres: %w", kind, err)
		}
		for _, g := range page {
			if seen[g.Slug] {
				continue
			}
			seen[g.Slug] = true
			genres = append(genres, g)
		}
	}

	return genres, nil
}
