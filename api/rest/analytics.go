package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/analytics"
	mw "github.com/questforge/server/middleware"
)

// AnalyticsHandler handles analytics REST endpoints.
type AnalyticsHandler struct {
	svc *analytics.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Get handles GET /api/analytics?period=.
func (h *AnalyticsHandler) Get(c *gin.Context) {
	period, err := analytics.ParsePeriod(c.DefaultQuery("period", string(analytics.PeriodWeekly)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.svc.Get(c.Request.Context(), mw.GetUserID(c), period)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
