package delivery

import (
	"errors"
	"net/http"

	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/internal/engagement/usecase"
	"decisionlog-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// EngagementHandler exposes the batch triggers
type EngagementHandler struct {
	runner       usecase.JobRunner
	health       usecase.HealthService
	lookbackDays int
}

// NewEngagementHandler creates a new EngagementHandler
func NewEngagementHandler(runner usecase.JobRunner, health usecase.HealthService, lookbackDays int) *EngagementHandler {
	return &EngagementHandler{
		runner:       runner,
		health:       health,
		lookbackDays: lookbackDays,
	}
}

// RunCategory returns the trigger for one notification category
// GET|POST /api/cron/<category-slug>
func (h *EngagementHandler) RunCategory(category domain.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.runner.Run(c.Request.Context(), category)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrRunInProgress):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, domain.ErrUnknownCategory):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			default:
				logger.Error("[Cron] run failed", "type", category, "err", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// RefreshHealthSnapshots recomputes snapshots for recently active users
// GET|POST /api/cron/health-snapshots
func (h *EngagementHandler) RefreshHealthSnapshots(c *gin.Context) {
	result, err := h.health.SnapshotActiveUsers(c.Request.Context(), h.lookbackDays)
	if err != nil {
		logger.Error("[Cron] health snapshot batch failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SnapshotUser recomputes one user's snapshot, called after an outcome save
// POST /api/health/:userId/snapshot
func (h *EngagementHandler) SnapshotUser(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id required"})
		return
	}

	snapshot, err := h.health.Snapshot(c.Request.Context(), userID)
	if err != nil {
		logger.Error("[Health] snapshot failed", "user", userID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
