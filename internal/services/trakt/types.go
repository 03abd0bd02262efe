package trakt

import "encoding/json"

// IDs is the identifier block attached to every Trakt record.
// Fields are pointers so that absent values can be told apart from zero.
type IDs struct {
	Trakt  *int64  `json:"trakt"`
	Slug   *string `json:"slug,omitempty"`
	TVDB   *int64  `json:"tvdb,omitempty"`
	IMDB   *string `json:"imdb,omitempty"`
	TMDB   *int64  `json:"tmdb,omitempty"`
	TVRage *int64  `json:"tvrage,omitempty"`
}

// Show is a show as embedded in activity entries
type Show struct {
	Title *string `json:"title"`
	Year  *int    `json:"year"`
	IDs   *IDs    `json:"ids"`
}

// Episode is an episode as embedded in activity entries and season catalogs
type Episode struct {
	Season *int    `json:"season"`
	Number *int    `json:"number"`
	Title  *string `json:"title"`
	IDs    *IDs    `json:"ids"`
}

// Movie is a movie as embedded in activity entries
type Movie struct {
	Title *string `json:"title"`
	Year  *int    `json:"year"`
	IDs   *IDs    `json:"ids"`
}

// Season is one season of a show catalog with its episodes
type Season struct {
	Number   *int      `json:"number"`
	IDs      *IDs      `json:"ids"`
	Episodes []Episode `json:"episodes"`
}

// ExtendedShow is a show fetched with extended=full
type ExtendedShow struct {
	Show
	Overview      *string  `json:"overview"`
	FirstAired    *string  `json:"first_aired"`
	Runtime       *int     `json:"runtime"`
	Certification *string  `json:"certification"`
	Network       *string  `json:"network"`
	Country       *string  `json:"country"`
	Trailer       *string  `json:"trailer"`
	Homepage      *string  `json:"homepage"`
	Status        *string  `json:"status"`
	Language      *string  `json:"language"`
	AiredEpisodes *int     `json:"aired_episodes"`
	Rating        *float64 `json:"rating"`
	Votes         *int     `json:"votes"`
	CommentCount  *int     `json:"comment_count"`
	Genres        []string `json:"genres"`
}

// ExtendedEpisode is an episode fetched with extended=full
type ExtendedEpisode struct {
	Episode
	NumberAbs    *int     `json:"number_abs"`
	Overview     *string  `json:"overview"`
	FirstAired   *string  `json:"first_aired"`
	Runtime      *int     `json:"runtime"`
	Rating       *float64 `json:"rating"`
	Votes        *int     `json:"votes"`
	CommentCount *int     `json:"comment_count"`
}

// ExtendedMovie is a movie fetched with extended=full
type ExtendedMovie struct {
	Movie
	Tagline       *string  `json:"tagline"`
	Overview      *string  `json:"overview"`
	Released      *string  `json:"released"`
	Runtime       *int     `json:"runtime"`
	Country       *string  `json:"country"`
	Trailer       *string  `json:"trailer"`
	Homepage      *string  `json:"homepage"`
	Status        *string  `json:"status"`
	Rating        *float64 `json:"rating"`
	Votes         *int     `json:"votes"`
	CommentCount  *int     `json:"comment_count"`
	Language      *string  `json:"language"`
	Certification *string  `json:"certification"`
	Genres        []string `json:"genres"`
}

// Genre is one entry of the genre catalog
type Genre struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HistoryEntry is one element of history/episodes or history/movies
type HistoryEntry struct {
	ID        *int64   `json:"id"`
	WatchedAt *string  `json:"watched_at"`
	Action    *string  `json:"action"`
	Type      *string  `json:"type"`
	Episode   *Episode `json:"episode,omitempty"`
	Show      *Show    `json:"show,omitempty"`
	Movie     *Movie   `json:"movie,omitempty"`
}

// CollectedEpisodeRef is an episode inside a nested collection entry
type CollectedEpisodeRef struct {
	Number      *int    `json:"number"`
	CollectedAt *string `json:"collected_at"`
}

// CollectedSeason is a season inside a nested collection entry
type CollectedSeason struct {
	Number   *int                  `json:"number"`
	Episodes []CollectedEpisodeRef `json:"episodes"`
}

// CollectedEntry is one element of collection/episodes, collection/shows or
// collection/movies. Episode entries come either flat (collected_at plus
// episode) or nested (show plus seasons).
type CollectedEntry struct {
	CollectedAt     *string           `json:"collected_at,omitempty"`
	LastCollectedAt *string           `json:"last_collected_at,omitempty"`
	UpdatedAt       *string           `json:"updated_at,omitempty"`
	Episode         *Episode          `json:"episode,omitempty"`
	Show            *Show             `json:"show,omitempty"`
	Movie           *Movie            `json:"movie,omitempty"`
	Seasons         []CollectedSeason `json:"seasons,omitempty"`
}

// RatedEntry is one element of ratings/episodes, ratings/movies or ratings/shows
type RatedEntry struct {
	RatedAt *string  `json:"rated_at"`
	Rating  *int     `json:"rating"`
	Type    *string  `json:"type"`
	Episode *Episode `json:"episode,omitempty"`
	Show    *Show    `json:"show,omitempty"`
	Movie   *Movie   `json:"movie,omitempty"`
}

// WatchlistEntry is one element of watchlist/movies or watchlist/shows
type WatchlistEntry struct {
	ID       *int64  `json:"id"`
	Rank     *int    `json:"rank"`
	ListedAt *string `json:"listed_at"`
	Notes    *string `json:"notes"`
	Type     *string `json:"type"`
	Show     *Show   `json:"show,omitempty"`
	Movie    *Movie  `json:"movie,omitempty"`
}

// UserStats is the subset of /users/{id}/stats used to confirm a profile exists
type UserStats struct {
	Movies   json.RawMessage `json:"movies"`
	Shows    json.RawMessage `json:"shows"`
	Episodes json.RawMessage `json:"episodes"`
}
