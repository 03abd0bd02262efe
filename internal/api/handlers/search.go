package handlers

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/amaumene/traktdb/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const defaultSearchLimit = 10

// SearchResult is a title ranked against a query
type SearchResult struct {
	models.TitleRef
	Distance int `json:"distance"`
}

// SearchHandler finds shows and movies by approximate title
type SearchHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(db *models.Database, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{
		db:     db,
		logger: logger,
	}
}

// Handle ranks stored titles against ?q=, optionally restricted by ?kind=show|movie
func (h *SearchHandler) Handle(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "q is required")
	}

	limit := c.QueryInt("limit", defaultSearchLimit)
	if limit <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
	}

	var kinds []models.MediaType
	switch kind := models.MediaType(c.Query("kind")); kind {
	case "":
		kinds = []models.MediaType{models.MediaTypeShow, models.MediaTypeMovie}
	case models.MediaTypeShow, models.MediaTypeMovie:
		kinds = []models.MediaType{kind}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "kind must be show or movie")
	}

	var titles []models.TitleRef
	for _, kind := range kinds {
		refs, err := h.db.Titles(c.UserContext(), kind)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load titles")
			return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
		}
		titles = append(titles, refs...)
	}

	results := Rank(query, titles)
	if len(results) > limit {
		results = results[:limit]
	}

	h.logger.WithFields(logrus.Fields{
		"query":   query,
		"results": len(results),
	}).Debug("Title search")

	return c.JSON(results)
}

// Rank orders titles by closeness to query: exact matches, then titles
// containing the query, then the rest by edit distance. Titles too far from
// the query are dropped.
func Rank(query string, titles []models.TitleRef) []SearchResult {
	q := strings.ToLower(query)
	maxDistance := utf8.RuneCountInString(q) / 3
	if maxDistance < 2 {
		maxDistance = 2
	}

	type ranked struct {
		SearchResult
		tier int
	}

	var candidates []ranked
	for _, t := range titles {
		title := strings.ToLower(t.Title)
		distance := levenshtein.ComputeDistance(q, title)

		tier := 2
		switch {
		case title == q:
			tier = 0
		case strings.Contains(title, q):
			tier = 1
		case distance > maxDistance:
			continue
		}
		candidates = append(candidates, ranked{SearchResult{TitleRef: t, Distance: distance}, tier})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.Title < b.Title
	})

	results := make([]SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = c.SearchResult
	}
	return results
}
