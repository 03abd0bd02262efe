// Package parsers turns one category of backed-up activity entries into rows
package parsers

import (
	"encoding/json"
	"fmt"

	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/normalize"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"github.com/sirupsen/logrus"
)

// Category names, matching the backup file names without extension
const (
	HistoryEpisodes    = "history_episodes"
	HistoryMovies      = "history_movies"
	CollectionShows    = "collection_shows"
	CollectionEpisodes = "collection_episodes"
	CollectionMovies   = "collection_movies"
	RatingsEpisodes    = "ratings_episodes"
	RatingsMovies      = "ratings_movies"
	RatingsShows       = "ratings_shows"
	WatchlistMovies    = "watchlist_movies"
	WatchlistShows     = "watchlist_shows"
)

// Categories lists every category the parser understands, in ingestion order
var Categories = []string{
	HistoryEpisodes,
	HistoryMovies,
	CollectionShows,
	CollectionEpisodes,
	CollectionMovies,
	RatingsEpisodes,
	RatingsMovies,
	RatingsShows,
	WatchlistMovies,
	WatchlistShows,
}

// Skip records one entry that could not be parsed
type Skip struct {
	Index int
	Err   error
}

// Batch holds the rows produced from one category. Entity rows are
// deduplicated by id; event rows keep source order.
type Batch struct {
	Category   string
	Entries    int
	Shows      []models.Show
	Episodes   []models.Episode
	Movies     []models.Movie
	WatchLog   []models.WatchLogEntry
	Collected  []models.CollectedEntry
	Ratings    []models.RatedEntry
	Watchlist  []models.WatchlistEntry
	Skipped    []Skip
	Unresolved int

	shows    map[int64]bool
	episodes map[int64]bool
	movies   map[int64]bool
}

func newBatch(category string, entries int) *Batch {
	return &Batch{
		Category: category,
		Entries:  entries,
		shows:    make(map[int64]bool),
		episodes: make(map[int64]bool),
		movies:   make(map[int64]bool),
	}
}

func (b *Batch) addShow(s models.Show) {
	if !b.shows[s.ID] {
		b.shows[s.ID] = true
		b.Shows = append(b.Shows, s)
	}
}

func (b *Batch) addEpisode(e models.Episode) {
	if !b.episodes[e.ID] {
		b.episodes[e.ID] = true
		b.Episodes = append(b.Episodes, e)
	}
}

func (b *Batch) addMovie(m models.Movie) {
	if !b.movies[m.ID] {
		b.movies[m.ID] = true
		b.Movies = append(b.Movies, m)
	}
}

// Events returns the number of event rows in the batch
func (b *Batch) Events() int {
	return len(b.WatchLog) + len(b.Collected) + len(b.Ratings) + len(b.Watchlist)
}

// Parser dispatches raw entries to the per-category parse functions
type Parser struct {
	logger *logrus.Logger
}

// NewParser creates a new parser
func NewParser(logger *logrus.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse converts every entry of a category. Malformed entries are logged and
// recorded in Skipped; they never abort the batch. lookup is only consulted
// for collection_episodes and may be nil elsewhere.
func (p *Parser) Parse(category string, entries []json.RawMessage, lookup EpisodeLookup) (*Batch, error) {
	handle, ok := p.handler(category, lookup)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	batch := newBatch(category, len(entries))
	for i, raw := range entries {
		if err := handle(batch, raw); err != nil {
			batch.Skipped = append(batch.Skipped, Skip{Index: i, Err: err})
			p.logger.WithFields(logrus.Fields{
				"category": category,
				"index":    i,
			}).WithError(err).Warn("Skipping malformed entry")
		}
	}

	p.logger.WithFields(logrus.Fields{
		"category":   category,
		"entries":    len(entries),
		"events":     batch.Events(),
		"skipped":    len(batch.Skipped),
		"unresolved": batch.Unresolved,
	}).Debug("Parsed category")

	return batch, nil
}

type entryHandler func(b *Batch, raw json.RawMessage) error

func decodeEntry(raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", normalize.ErrMalformedRecord, err)
	}
	return nil
}

func (p *Parser) handler(category string, lookup EpisodeLookup) (entryHandler, bool) {
	switch category {
	case HistoryEpisodes:
		return func(b *Batch, raw json.RawMessage) error {
			var entry trakt.HistoryEntry
			if err := decodeEntry(raw, &entry); err != nil {
				return err
			}
			row, episode, show, err := HistoryEpisode(&entry)
			if err != nil {
				return err
			}
			b.addShow(show)
			b.addEpisode(episode)
			b.WatchLog = append(b.WatchLog, row)
			return nil
		}, true

	case HistoryMovies:
		return func(b *Batch, raw json.RawMessage) error {
			var entry trakt.HistoryEntry
			if err := decodeEntry(raw, &entry); err != nil {
				return err
			}
			row, movie, err := HistoryMovie(&entry)
			if err != nil {
				return err
			}
			b.addMovie(movie)
			b.WatchLog = append(b.WatchLog, row)
			return nil
		}, true

	case CollectionShows:
		return func(b *Batch, raw json.RawMessage) error {
			var entry trakt.CollectedEntry
			if err := decodeEntry(raw, &entry); err != nil {
				return err
			}
			show, err := CollectedShow(&entry)
			if err != nil {
				return err
			}
			b.addShow(show)
			return nil
		}, true

	case CollectionEpisodes:
		return func(b *Batch, raw json.RawMessage) error {
			var entry trakt.CollectedEntry
			if err := decodeEntry(raw, &entry); err != nil {
				return err
			}
			rows, unresolved, err := CollectedEpisodes(&entry, lookup)
			if err != nil {
				return err
			}
			if show, err := normalize.Show(entry.Show); err == nil {
				b.addShow(show)
			}
			b.Collected = append(b.Collected, rows...)
			b.Unresolved += unresolved
			return nil
		}, true

	case CollectionMovies:
		return func(b *Batch, raw json.RawMessage) error {
			var entry trakt.CollectedEntry
			if err := decodeEntry(raw, &entry); err != nil {
				return err
			}
			row, movie, err := CollectedMovie(&entry)
			if err != nil {
				return err
			}
			b.addMovie(movie)
			b.Collected = append(b.Collected, row)
			return nil
		}, true

	case RatingsEpisodes, RatingsMovies, RatingsShows:
		return func(b *Batch, raw json.RawMessage) error {
			var entry trakt.RatedEntry
			if err := decodeEntry(raw, &entry); err != nil {
				return err
			}
			var row models.RatedEntry
			var err error
			switch category {
			case RatingsEpisodes:
				row, err = RatedEpisode(&entry)
			case RatingsMovies:
				row, err = RatedMovie(&entry)
			default:
				row, err = RatedShow(&entry)
			}
			if err != nil {
				return err
			}
			b.cascadeRated(&entry)
			b.Ratings = append(b.Ratings, row)
			return nil
		}, true

	case WatchlistMovies:
		return func(b *Batch, raw json.RawMessage) error {
			var entry trakt.WatchlistEntry
			if err := decodeEntry(raw, &entry); err != nil {
				return err
			}
			row, movie, err := WatchlistMovie(&entry)
			if err != nil {
				return err
			}
			b.addMovie(movie)
			b.Watchlist = append(b.Watchlist, row)
			return nil
		}, true

	case WatchlistShows:
		return func(b *Batch, raw json.RawMessage) error {
			var entry trakt.WatchlistEntry
			if err := decodeEntry(raw, &entry); err != nil {
				return err
			}
			row, show, err := WatchlistShow(&entry)
			if err != nil {
				return err
			}
			b.addShow(show)
			b.Watchlist = append(b.Watchlist, row)
			return nil
		}, true
	}

	return nil, false
}

// cascadeRated adds the entity rows embedded in a rating entry. This is best
// effort: the rating itself only needs its media id.
func (b *Batch) cascadeRated(entry *trakt.RatedEntry) {
	if entry.Show != nil {
		show, err := normalize.Show(entry.Show)
		if err != nil {
			return
		}
		b.addShow(show)
		if entry.Episode != nil {
			if episode, err := normalize.Episode(entry.Episode, show.ID); err == nil {
				b.addEpisode(episode)
			}
		}
	}
	if entry.Movie != nil {
		if movie, err := normalize.Movie(entry.Movie); err == nil {
			b.addMovie(movie)
		}
	}
}

// EmbeddedShows returns the show rows found in collection entries, skipping
// entries without a usable show
func EmbeddedShows(entries []json.RawMessage) []models.Show {
	batch := newBatch(CollectionShows, len(entries))
	for _, raw := range entries {
		var entry trakt.CollectedEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if show, err := normalize.Show(entry.Show); err == nil {
			batch.addShow(show)
		}
	}
	return batch.Shows
}
