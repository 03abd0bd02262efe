package handlers

import (
	"github.com/amaumene/traktdb/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	defaultWatchLimit = 50
	maxWatchLimit     = 1000
)

// WatchLogHandler lists recent watches
type WatchLogHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewWatchLogHandler creates a new watchlog handler
func NewWatchLogHandler(db *models.Database, logger *logrus.Logger) *WatchLogHandler {
	return &WatchLogHandler{
		db:     db,
		logger: logger,
	}
}

// Handle returns the newest watchlog rows, optionally filtered by ?type=movie|episode
func (h *WatchLogHandler) Handle(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultWatchLimit)
	if limit <= 0 || limit > maxWatchLimit {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 1000")
	}

	mediaType := models.MediaType(c.Query("type"))
	switch mediaType {
	case "", models.MediaTypeMovie, models.MediaTypeEpisode:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "type must be movie or episode")
	}

	watches, err := h.db.RecentWatches(c.UserContext(), mediaType, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlog")
		return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
	}
	if watches == nil {
		watches = []models.WatchView{}
	}

	return c.JSON(watches)
}
