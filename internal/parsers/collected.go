package parsers

import (
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/services/trakt"
)

// EpisodeLookup resolves an episode id from its show, season and number
type EpisodeLookup func(showID int64, season, number int) (int64, bool)

// IndexLookup adapts a stored episode index to an EpisodeLookup
func IndexLookup(index map[models.EpisodeKey]int64) EpisodeLookup {
	return func(showID int64, season, number int) (int64, bool) {
		id, ok := index[models.EpisodeKey{ShowID: showID, Season: season, Number: number}]
		return id, ok
	}
}

// CollectedMovie converts a collected movie entry into its collected row and movie row
func CollectedMovie(entry *trakt.CollectedEntry) (models.CollectedEntry, models.Movie, error) {
	movie, err := normalize.Movie(entry.Movie)
	if err != nil {
		return models.CollectedEntry{}, models.Movie{}, err
	}
	if entry.CollectedAt == nil {
		return models.CollectedEntry{}, models.Movie{}, &normalize.MalformedRecordError{Record: "collected movie", Field: "collected_at"}
	}
	return normalize.Collected(models.MediaTypeMovie, movie.ID, *entry.CollectedAt), movie, nil
}

// CollectedShow returns the show row of a collection entry
func CollectedShow(entry *trakt.CollectedEntry) (models.Show, error) {
	return normalize.Show(entry.Show)
}

// CollectedEpisodes converts a collected episode entry into collected rows.
// Flat entries carry the episode id. Nested entries only identify the show,
// so each episode is mapped through lookup; episodes lookup cannot place are
// counted as unresolved and left out.
func CollectedEpisodes(entry *trakt.CollectedEntry, lookup EpisodeLookup) ([]models.CollectedEntry, int, error) {
	if entry.Episode != nil {
		if entry.Episode.IDs == nil || entry.Episode.IDs.Trakt == nil {
			return nil, 0, &normalize.MalformedRecordError{Record: "collected episode", Field: "episode.ids.trakt"}
		}
		if entry.CollectedAt == nil {
			return nil, 0, &normalize.MalformedRecordError{Record: "collected episode", Field: "collected_at"}
		}
		return []models.CollectedEntry{
			normalize.Collected(models.MediaTypeEpisode, *entry.Episode.IDs.Trakt, *entry.CollectedAt),
		}, 0, nil
	}

	show, err := normalize.Show(entry.Show)
	if err != nil {
		return nil, 0, err
	}

	var rows []models.CollectedEntry
	unresolved := 0
	for _, season := range entry.Seasons {
		if season.Number == nil {
			return nil, 0, &normalize.MalformedRecordError{Record: "collected episode", Field: "seasons.number"}
		}
		for _, ep := range season.Episodes {
			if ep.Number == nil {
				return nil, 0, &normalize.MalformedRecordError{Record: "collected episode", Field: "episodes.number"}
			}
			collectedAt := ep.CollectedAt
			if collectedAt == nil {
				collectedAt = entry.LastCollectedAt
			}
			if collectedAt == nil {
				return nil, 0, &normalize.MalformedRecordError{Record: "collected episode", Field: "episodes.collected_at"}
			}

			var id int64
			ok := false
			if lookup != nil {
				id, ok = lookup(show.ID, *season.Number, *ep.Number)
			}
			if !ok {
				unresolved++
				continue
			}
			rows = append(rows, normalize.Collected(models.MediaTypeEpisode, id, *collectedAt))
		}
	}
	return rows, unresolved, nil
}
