package models

import (
	"context"
	"fmt"
)

// WatchView is a watchlog row joined with the watched title
type WatchView struct {
	ID        int64     `json:"id"`
	Type      MediaType `json:"type"`
	MediaID   int64     `json:"media_id"`
	WatchedAt string    `json:"watched_at"`
	Title     *string   `json:"title"`
	ShowTitle *string   `json:"show_title,omitempty"`
	Season    *int      `json:"season,omitempty"`
	Number    *int      `json:"number,omitempty"`
}

// RecentWatches returns the newest watchlog rows, optionally filtered by type
func (d *Database) RecentWatches(ctx context.Context, mediaType MediaType, limit int) ([]WatchView, error) {
	tx := d.db.WithContext(ctx).
		Table(TableWatchLog+" AS w").
		Select(`w.id, w.type, w.media_id, w.watched_at,
			COALESCE(m.title, e.title) AS title,
			s.title AS show_title, e.season, e.number`).
		Joins("LEFT JOIN "+TableMovie+" m ON w.type = ? AND m.id = w.media_id", MediaTypeMovie).
		Joins("LEFT JOIN "+TableEpisode+" e ON w.type = ? AND e.id = w.media_id", MediaTypeEpisode).
		Joins("LEFT JOIN " + TableShow + " s ON s.id = e.show_id")
	if mediaType != "" {
		tx = tx.Where("w.type = ?", mediaType)
	}

	var views []WatchView
	if err := tx.Order("w.watched_at DESC").Limit(limit).Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("failed to query watchlog: %w", err)
	}
	return views, nil
}

// TitleRef is an id/title pair used for search
type TitleRef struct {
	ID    int64     `json:"id"`
	Type  MediaType `json:"type"`
	Title string    `json:"title"`
	Year  *int      `json:"year"`
}

// Titles returns every show or movie title
func (d *Database) Titles(ctx context.Context, mediaType MediaType) ([]TitleRef, error) {
	table, ok := EntityTable(mediaType)
	if !ok || mediaType == MediaTypeEpisode {
		return nil, fmt.Errorf("unsupported title kind %q", mediaType)
	}

	var refs []TitleRef
	err := d.db.WithContext(ctx).
		Table(table).
		Select("id, type, title, year").
		Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s titles: %w", table, err)
	}
	return refs, nil
}

// TableCounts returns the row count of every required table that exists
func (d *Database) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(tableSpecs))
	for _, name := range RequiredTables() {
		if !d.TableExists(ctx, name) {
			continue
		}
		n, err := d.CountWhere(ctx, name, nil)
		if err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, nil
}

// Genres returns every stored genre
func (d *Database) Genres(ctx context.Context) ([]Genre, error) {
	var genres []Genre
	if err := d.db.WithContext(ctx).Order("slug").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("failed to load genres: %w", err)
	}
	return genres, nil
}

// ShowsWithoutExtended returns shows that have no extended_show row yet
func (d *Database) ShowsWithoutExtended(ctx context.Context) ([]Show, error) {
	var shows []Show
	err := d.db.WithContext(ctx).
		Where("id NOT IN (?)", d.db.Table(TableExtendedShow).Select("id")).
		Order("id").
		Find(&shows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find shows without extended data: %w", err)
	}
	return shows, nil
}

// MoviesWithoutExtended returns movies that have no extended_movie row yet
func (d *Database) MoviesWithoutExtended(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	err := d.db.WithContext(ctx).
		Where("id NOT IN (?)", d.db.Table(TableExtendedMovie).Select("id")).
		Order("id").
		Find(&movies).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find movies without extended data: %w", err)
	}
	return movies, nil
}

// EpisodesWithoutExtended returns episodes that have no extended_episode row yet,
// with their parent show preloaded. Only episodes that were watched, collected
// or rated are returned; catalog-only episodes are left alone.
func (d *Database) EpisodesWithoutExtended(ctx context.Context) ([]Episode, error) {
	watched := d.db.Table(TableWatchLog).Select("media_id").Where("type = ?", MediaTypeEpisode)
	collected := d.db.Table(TableCollected).Select("media_id").Where("type = ?", MediaTypeEpisode)
	rated := d.db.Table(TableRatings).Select("media_id").Where("type = ?", MediaTypeEpisode)

	var episodes []Episode
	err := d.db.WithContext(ctx).
		Preload("Show").
		Where("id NOT IN (?)", d.db.Table(TableExtendedEpisode).Select("id")).
		Where(d.db.Where("id IN (?)", watched).Or("id IN (?)", collected).Or("id IN (?)", rated)).
		Order("id").
		Find(&episodes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find episodes without extended data: %w", err)
	}
	return episodes, nil
}
