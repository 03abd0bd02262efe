package models

// MediaType is the discriminant stored in every "type" column
type MediaType string

const (
	MediaTypeShow    MediaType = "show"
	MediaTypeEpisode MediaType = "episode"
	MediaTypeMovie   MediaType = "movie"
)

// Table names
const (
	TableShow            = "show"
	TableEpisode         = "episode"
	TableMovie           = "movie"
	TableWatchLog        = "watchlog"
	TableCollected       = "collected"
	TableRatings         = "ratings"
	TableWatchlist       = "watchlist"
	TableGenre           = "genre"
	TableExtendedShow    = "extended_show"
	TableExtendedEpisode = "extended_episode"
	TableExtendedMovie   = "extended_movie"
	TableGenreMapping    = "genre_mapping"
)

// EntityTable returns the entity table a discriminant points at
func EntityTable(t MediaType) (string, bool) {
	switch t {
	case MediaTypeShow:
		return TableShow, true
	case MediaTypeEpisode:
		return TableEpisode, true
	case MediaTypeMovie:
		return TableMovie, true
	default:
		return "", false
	}
}

// MediaRef is a polymorphic reference: the table is chosen by Type
type MediaRef struct {
	Type    MediaType
	MediaID int64
}

// EventRow is implemented by every row stored in a polymorphic event table
type EventRow interface {
	Ref() MediaRef
}
