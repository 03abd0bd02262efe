package handlers

import (
	"github.com/amaumene/traktdb/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// StatusHandler handles status requests
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Tables        map[string]int64 `json:"tables"`
	MissingTables []string         `json:"missing_tables"`
	Violations    []string         `json:"violations"`
	Healthy       bool             `json:"healthy"`
}

// Handle reports row counts per table and any dangling references
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	ctx := c.UserContext()

	counts, err := h.db.TableCounts(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count rows")
		return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
	}

	response := StatusResponse{
		Tables:        counts,
		MissingTables: h.db.AssertTables(ctx),
		Violations:    []string{},
	}

	if len(response.MissingTables) == 0 {
		violations, err := h.db.ValidateReferences(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to validate references")
			return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
		}
		for _, v := range violations {
			response.Violations = append(response.Violations, v.String())
		}
	}
	response.Healthy = len(response.MissingTables) == 0 && len(response.Violations) == 0

	return c.JSON(response)
}
