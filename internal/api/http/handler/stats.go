package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

type StatsService interface {
	GetStats(ctx context.Context) (*model.Stats, error)
}

type StatsHandler struct {
	BaseHandler

	log *zap.Logger
	svc StatsService
}

func NewStatsHandler(log *zap.Logger, svc StatsService) *StatsHandler {
	return &StatsHandler{
		BaseHandler: BaseHandler{},
		log:         log,
		svc:         svc,
	}
}

// GetStats returns the current counters.
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		h.InternalError(c, h.log, err)

		return
	}

	c.JSON(http.StatusOK, stats)
}
