package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/wandergrowth/leadmux/hunter"
	"github.com/wandergrowth/leadmux/scheduler"
	"github.com/wandergrowth/leadmux/utils"
)

// AdminDeps is everything the admin surface touches. The dashboard proper
// lives elsewhere; these endpoints exist for operators poking the engine.
type AdminDeps struct {
	Hunter         *hunter.Hunter
	StatusStore    *utils.StatusStore
	HunterState    *scheduler.State
	PublisherState *scheduler.State
}

// ForceHuntHandler runs a hunt cycle on demand. A cycle already in flight is
// rejected with 409, never queued.
func ForceHuntHandler(deps AdminDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := deps.Hunter.ForceHunt(c.Request.Context())
		if errors.Is(err, hunter.ErrHuntInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "hunt already in progress"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

type autopublishRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// AutopublishHandler flips the autonomous publishing toggle.
func AutopublishHandler(deps AdminDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.StatusStore == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no status store configured"})
			return
		}
		req := autopublishRequest{}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := deps.StatusStore.SetAutopublishEnabled(*req.Enabled); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
	}
}

// StatusHandler reports both schedulers' state and today's counters.
func StatusHandler(deps AdminDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"hunter":    deps.HunterState.Snapshot(),
			"publisher": deps.PublisherState.Snapshot(),
		}
		if deps.StatusStore != nil {
			enabled, err := deps.StatusStore.AutopublishEnabled()
			if err == nil {
				response["autopublish_enabled"] = enabled
			}
		}
		c.JSON(http.StatusOK, response)
	}
}
