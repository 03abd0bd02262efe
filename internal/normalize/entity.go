// Package normalize maps raw Trakt records to flat table rows.
// Every function here is pure: no I/O, no logging.
package normalize

import (
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/services/trakt"
)

func traktID(record string, ids *trakt.IDs) (int64, error) {
	if ids == nil {
		return 0, missing(record, "ids")
	}
	if ids.Trakt == nil {
		return 0, missing(record, "ids.trakt")
	}
	return *ids.Trakt, nil
}

// Show converts a raw show into a show row
func Show(s *trakt.Show) (models.Show, error) {
	if s == nil {
		return models.Show{}, missing("show", "show")
	}
	id, err := traktID("show", s.IDs)
	if err != nil {
		return models.Show{}, err
	}
	if s.Title == nil {
		return models.Show{}, missing("show", "title")
	}

	return models.Show{
		Type:      models.MediaTypeShow,
		ID:        id,
		Title:     *s.Title,
		Year:      s.Year,
		TraktID:   id,
		TraktSlug: s.IDs.Slug,
		TVDBID:    s.IDs.TVDB,
		IMDBID:    s.IDs.IMDB,
		TMDBID:    s.IDs.TMDB,
		TVRageID:  s.IDs.TVRage,
	}, nil
}

// Episode converts a raw episode into an episode row. The parent show id is
// supplied by the caller because not every source embeds it.
func Episode(e *trakt.Episode, showID int64) (models.Episode, error) {
	if e == nil {
		return models.Episode{}, missing("episode", "episode")
	}
	id, err := traktID("episode", e.IDs)
	if err != nil {
		return models.Episode{}, err
	}
	if e.Season == nil {
		return models.Episode{}, missing("episode", "season")
	}
	if e.Number == nil {
		return models.Episode{}, missing("episode", "number")
	}

	return models.Episode{
		Type:     models.MediaTypeEpisode,
		ID:       id,
		ShowID:   showID,
		Season:   *e.Season,
		Number:   *e.Number,
		Title:    e.Title,
		TraktID:  id,
		TVDBID:   e.IDs.TVDB,
		IMDBID:   e.IDs.IMDB,
		TMDBID:   e.IDs.TMDB,
		TVRageID: e.IDs.TVRage,
	}, nil
}

// Movie converts a raw movie into a movie row
func Movie(m *trakt.Movie) (models.Movie, error) {
	if m == nil {
		return models.Movie{}, missing("movie", "movie")
	}
	id, err := traktID("movie", m.IDs)
	if err != nil {
		return models.Movie{}, err
	}
	if m.Title == nil {
		return models.Movie{}, missing("movie", "title")
	}

	return models.Movie{
		Type:      models.MediaTypeMovie,
		ID:        id,
		Title:     *m.Title,
		Year:      m.Year,
		TraktID:   id,
		TraktSlug: m.IDs.Slug,
		IMDBID:    m.IDs.IMDB,
		TMDBID:    m.IDs.TMDB,
	}, nil
}

// Seasons flattens a season catalog into episode rows for showID.
// Malformed episodes are returned as errors and left out of the rows.
func Seasons(seasons []trakt.Season, showID int64) ([]models.Episode, []error) {
	var rows []models.Episode
	var errs []error
	for _, season := range seasons {
		for i := range season.Episodes {
			ep := season.Episodes[i]
			// Catalog episodes sometimes omit their own season number
			if ep.Season == nil && season.Number != nil {
				ep.Season = season.Number
			}
			row, err := Episode(&ep, showID)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows, errs
}
