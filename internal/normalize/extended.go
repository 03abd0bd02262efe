package normalize

import (
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/services/trakt"
)

// ExtendedShow converts a full show record into an extended_show row
func ExtendedShow(s *trakt.ExtendedShow) (models.ExtendedShow, error) {
	if s == nil {
		return models.ExtendedShow{}, missing("extended show", "show")
	}
	base, err := Show(&s.Show)
	if err != nil {
		return models.ExtendedShow{}, err
	}

	return models.ExtendedShow{
		Type:          models.MediaTypeShow,
		ID:            base.ID,
		Title:         base.Title,
		Year:          base.Year,
		TraktID:       base.TraktID,
		TraktSlug:     base.TraktSlug,
		TVDBID:        base.TVDBID,
		IMDBID:        base.IMDBID,
		TMDBID:        base.TMDBID,
		TVRageID:      base.TVRageID,
		Overview:      s.Overview,
		FirstAired:    s.FirstAired,
		Runtime:       s.Runtime,
		Certification: s.Certification,
		Network:       s.Network,
		Country:       s.Country,
		Trailer:       s.Trailer,
		Homepage:      s.Homepage,
		Status:        s.Status,
		Language:      s.Language,
		AiredEpisodes: s.AiredEpisodes,
		Rating:        s.Rating,
		Votes:         s.Votes,
		CommentCount:  s.CommentCount,
	}, nil
}

// ExtendedEpisode converts a full episode record into an extended_episode row
func ExtendedEpisode(e *trakt.ExtendedEpisode, showID int64) (models.ExtendedEpisode, error) {
	if e == nil {
		return models.ExtendedEpisode{}, missing("extended episode", "episode")
	}
	base, err := Episode(&e.Episode, showID)
	if err != nil {
		return models.ExtendedEpisode{}, err
	}

	return models.ExtendedEpisode{
		Type:         models.MediaTypeEpisode,
		ID:           base.ID,
		ShowID:       base.ShowID,
		Season:       base.Season,
		Number:       base.Number,
		NumberAbs:    e.NumberAbs,
		Title:        base.Title,
		TraktID:      base.TraktID,
		TVDBID:       base.TVDBID,
		IMDBID:       base.IMDBID,
		TMDBID:       base.TMDBID,
		TVRageID:     base.TVRageID,
		Overview:     e.Overview,
		FirstAired:   e.FirstAired,
		Runtime:      e.Runtime,
		Rating:       e.Rating,
		Votes:        e.Votes,
		CommentCount: e.CommentCount,
	}, nil
}

// ExtendedMovie converts a full movie record into an extended_movie row
func ExtendedMovie(m *trakt.ExtendedMovie) (models.ExtendedMovie, error) {
	if m == nil {
		return models.ExtendedMovie{}, missing("extended movie", "movie")
	}
	base, err := Movie(&m.Movie)
	if err != nil {
		return models.ExtendedMovie{}, err
	}

	return models.ExtendedMovie{
		Type:          models.MediaTypeMovie,
		ID:            base.ID,
		Title:         base.Title,
		Year:          base.Year,
		TraktID:       base.TraktID,
		TraktSlug:     base.TraktSlug,
		IMDBID:        base.IMDBID,
		TMDBID:        base.TMDBID,
		Tagline:       m.Tagline,
		Overview:      m.Overview,
		Released:      m.Released,
		Runtime:       m.Runtime,
		Country:       m.Country,
		Trailer:       m.Trailer,
		Homepage:      m.Homepage,
		Status:        m.Status,
		Rating:        m.Rating,
		Votes:         m.Votes,
		CommentCount:  m.CommentCount,
		Language:      m.Language,
		Certification: m.Certification,
	}, nil
}
