package parsers

import (
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/services/trakt"
)

func watchLog(entry *trakt.HistoryEntry, mediaType models.MediaType, mediaID int64) (models.WatchLogEntry, error) {
	if entry.ID == nil {
		return models.WatchLogEntry{}, &normalize.MalformedRecordError{Record: "history", Field: "id"}
	}
	if entry.WatchedAt == nil {
		return models.WatchLogEntry{}, &normalize.MalformedRecordError{Record: "history", Field: "watched_at"}
	}
	return models.WatchLogEntry{
		ID:        *entry.ID,
		Type:      mediaType,
		MediaID:   mediaID,
		WatchedAt: *entry.WatchedAt,
	}, nil
}

// HistoryEpisode converts an episode history entry into its watchlog row plus
// the episode and owning show rows embedded in the same entry
func HistoryEpisode(entry *trakt.HistoryEntry) (models.WatchLogEntry, models.Episode, models.Show, error) {
	show, err := normalize.Show(entry.Show)
	if err != nil {
		return models.WatchLogEntry{}, models.Episode{}, models.Show{}, err
	}
	episode, err := normalize.Episode(entry.Episode, show.ID)
	if err != nil {
		return models.WatchLogEntry{}, models.Episode{}, models.Show{}, err
	}
	row, err := watchLog(entry, models.MediaTypeEpisode, episode.ID)
	if err != nil {
		return models.WatchLogEntry{}, models.Episode{}, models.Show{}, err
	}
	return row, episode, show, nil
}

// HistoryMovie converts a movie history entry into its watchlog row and movie row
func HistoryMovie(entry *trakt.HistoryEntry) (models.WatchLogEntry, models.Movie, error) {
	movie, err := normalize.Movie(entry.Movie)
	if err != nil {
		return models.WatchLogEntry{}, models.Movie{}, err
	}
	row, err := watchLog(entry, models.MediaTypeMovie, movie.ID)
	if err != nil {
		return models.WatchLogEntry{}, models.Movie{}, err
	}
	return row, movie, nil
}
