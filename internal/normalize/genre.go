package normalize

import (
	"strings"

	"github.com/amaumene/traktdb/internal/models"
	"github.com/amaumene/traktdb/internal/services/trakt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Genre converts a catalog genre into a genre row with its content-hash id
func Genre(g trakt.Genre) models.Genre {
	return models.Genre{
		ID: ContentHash(map[string]interface{}{
			"name": g.Name,
			"slug": g.Slug,
		}),
		Name: g.Name,
		Slug: g.Slug,
	}
}

// GenreFromSlug builds a genre for a slug missing from the catalog
func GenreFromSlug(slug string) models.Genre {
	return Genre(trakt.Genre{
		Name: cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " ")),
		Slug: slug,
	})
}

// GenreMapping links one extended entity to one genre
func GenreMapping(mediaType models.MediaType, mediaID int64, genreID string) models.GenreMapping {
	return models.GenreMapping{
		ID: ContentHash(map[string]interface{}{
			"genre_id": genreID,
			"media_id": mediaID,
			"type":     mediaType,
		}),
		Type:    mediaType,
		MediaID: mediaID,
		GenreID: genreID,
	}
}

// GenreIndex matches genre labels from extended records against known genres.
// It is not safe for concurrent use.
type GenreIndex struct {
	bySlug map[string]models.Genre
	byName map[string]models.Genre
	folder cases.Caser
}

// NewGenreIndex indexes genres by slug and by folded name
func NewGenreIndex(genres []models.Genre) *GenreIndex {
	idx := &GenreIndex{
		bySlug: make(map[string]models.Genre, len(genres)),
		byName: make(map[string]models.Genre, len(genres)),
		folder: cases.Fold(),
	}
	for _, g := range genres {
		idx.Add(g)
	}
	return idx
}

// Add registers a genre
func (idx *GenreIndex) Add(g models.Genre) {
	if g.Slug != "" {
		idx.bySlug[g.Slug] = g
	}
	idx.byName[idx.foldName(g.Name)] = g
}

func (idx *GenreIndex) foldName(s string) string {
	return idx.folder.String(strings.TrimSpace(strings.ReplaceAll(s, "-", " ")))
}

// Lookup finds a genre by slug, else by case-folded name with '-' read as a space
func (idx *GenreIndex) Lookup(label string) (models.Genre, bool) {
	if g, ok := idx.bySlug[label]; ok {
		return g, true
	}
	g, ok := idx.byName[idx.foldName(label)]
	return g, ok
}

// Resolve maps labels to genres. Unknown labels produce new genres, which
// are registered and also returned in created so they can be stored first.
func (idx *GenreIndex) Resolve(labels []string) (matched []models.Genre, created []models.Genre) {
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		g, ok := idx.Lookup(label)
		if !ok {
			g = GenreFromSlug(strings.ReplaceAll(strings.ToLower(label), " ", "-"))
			idx.Add(g)
			created = append(created, g)
		}
		if seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		matched = append(matched, g)
	}
	return matched, created
}
