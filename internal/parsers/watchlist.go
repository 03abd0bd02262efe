package parsers

import (
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/services/trakt"
)

func watchlisted(entry *trakt.WatchlistEntry, mediaType models.MediaType, mediaID int64) (models.WatchlistEntry, error) {
	if entry.ID == nil {
		return models.WatchlistEntry{}, &normalize.MalformedRecordError{Record: "watchlist", Field: "id"}
	}
	if entry.ListedAt == nil {
		return models.WatchlistEntry{}, &normalize.MalformedRecordError{Record: "watchlist", Field: "listed_at"}
	}
	return models.WatchlistEntry{
		ID:            *entry.ID,
		Type:          mediaType,
		MediaID:       mediaID,
		WatchlistedAt: *entry.ListedAt,
	}, nil
}

// WatchlistMovie converts a movie watchlist entry into its watchlist row and movie row
func WatchlistMovie(entry *trakt.WatchlistEntry) (models.WatchlistEntry, models.Movie, error) {
	movie, err := normalize.Movie(entry.Movie)
	if err != nil {
		return models.WatchlistEntry{}, models.Movie{}, err
	}
	row, err := watchlisted(entry, models.MediaTypeMovie, movie.ID)
	if err != nil {
		return models.WatchlistEntry{}, models.Movie{}, err
	}
	return row, movie, nil
}

// WatchlistShow converts a show watchlist entry into its watchlist row and show row
func WatchlistShow(entry *trakt.WatchlistEntry) (models.WatchlistEntry, models.Show, error) {
	show, err := normalize.Show(entry.Show)
	if err != nil {
		return models.WatchlistEntry{}, models.Show{}, err
	}
	row, err := watchlisted(entry, models.MediaTypeShow, show.ID)
	if err != nil {
		return models.WatchlistEntry{}, models.Show{}, err
	}
	return row, show, nil
}
