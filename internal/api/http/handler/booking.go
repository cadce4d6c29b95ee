package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/model"
)

type BookingService interface {
	Book(ctx context.Context, rawBody []byte) (*model.BookingStatus, error)
}

type BookingHandler struct {
	BaseHandler

	log *zap.Logger
	svc BookingService
}

func NewBookingHandler(log *zap.Logger, svc BookingService) *BookingHandler {
	return &BookingHandler{
		BaseHandler: BaseHandler{},
		log:         log,
		svc:         svc,
	}
}

// BookBus queues the request body as a booking and returns the counters
// observed right after.
func (h *BookingHandler) BookBus(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.InternalError(c, h.log, fmt.Errorf("failed to read body: %w", err))

		return
	}

	status, err := h.svc.Book(c.Request.Context(), body)
	if err != nil {
		h.InternalError(c, h.log, err)

		return
	}

	c.JSON(http.StatusOK, status)
}
