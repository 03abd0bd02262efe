package parsers

import (
	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/services/trakt"
)

func rated(entry *trakt.RatedEntry, mediaType models.MediaType, ids *trakt.IDs) (models.RatedEntry, error) {
	record := "rated " + string(mediaType)
	if ids == nil || ids.Trakt == nil {
		return models.RatedEntry{}, &normalize.MalformedRecordError{Record: record, Field: string(mediaType) + ".ids.trakt"}
	}
	if entry.Rating == nil {
		return models.RatedEntry{}, &normalize.MalformedRecordError{Record: record, Field: "rating"}
	}
	if entry.RatedAt == nil {
		return models.RatedEntry{}, &normalize.MalformedRecordError{Record: record, Field: "rated_at"}
	}
	return normalize.Rated(mediaType, *ids.Trakt, *entry.Rating, *entry.RatedAt), nil
}

// RatedEpisode converts an episode rating entry into a ratings row
func RatedEpisode(entry *trakt.RatedEntry) (models.RatedEntry, error) {
	if entry.Episode == nil {
		return models.RatedEntry{}, &normalize.MalformedRecordError{Record: "rated episode", Field: "episode"}
	}
	return rated(entry, models.MediaTypeEpisode, entry.Episode.IDs)
}

// RatedMovie converts a movie rating entry into a ratings row
func RatedMovie(entry *trakt.RatedEntry) (models.RatedEntry, error) {
	if entry.Movie == nil {
		return models.RatedEntry{}, &normalize.MalformedRecordError{Record: "rated movie", Field: "movie"}
	}
	return rated(entry, models.MediaTypeMovie, entry.Movie.IDs)
}

// RatedShow converts a show rating entry into a ratings row
func RatedShow(entry *trakt.RatedEntry) (models.RatedEntry, error) {
	if entry.Show == nil {
		return models.RatedEntry{}, &normalize.MalformedRecordError{Record: "rated show", Field: "show"}
	}
	return rated(entry, models.MediaTypeShow, entry.Show.IDs)
}
