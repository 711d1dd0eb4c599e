package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/router"
)

const healthTimeout = 2 * time.Second

// CreateHealthHandler reports ok once the catalog answers a ping.
func CreateHealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, ok := router.GetAppState(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := state.Catalog.HealthCheck(ctx); err != nil {
			router.RespondWithError(c, router.NewRequestError(
				http.StatusServiceUnavailable, "catalog unavailable", err,
			))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
