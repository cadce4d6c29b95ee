package route

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/extra24/bus-booking-deploy/internal/api/http/handler"
)

const (
	statsSuffix   = "/api/stats"
	bookingSuffix = "/api/book-bus"
)

type StatsHandler interface {
	GetStats(c *gin.Context)
}

type BookingHandler interface {
	BookBus(c *gin.Context)
}

// RegisterAPI matches endpoints by path suffix so a gateway stage prefix such
// as /prod does not need its own routes.
func RegisterAPI(g *gin.RouterGroup, statsHdl StatsHandler, bookingHdl BookingHandler) {
	g.Any("/*path", func(c *gin.Context) {
		path := c.Request.URL.Path

		switch {
		case c.Request.Method == http.MethodOptions:
			handler.Preflight(c)
		case c.Request.Method == http.MethodGet && strings.HasSuffix(path, statsSuffix):
			statsHdl.GetStats(c)
		case c.Request.Method == http.MethodPost && strings.HasSuffix(path, bookingSuffix):
			bookingHdl.BookBus(c)
		default:
			handler.NoRoute(c)
		}
	})
}
