package route

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/extra24/bus-booking-deploy/internal/api/http/handler"
	"github.com/extra24/bus-booking-deploy/internal/api/http/middleware"
	"github.com/extra24/bus-booking-deploy/internal/config"
)

func SetupRouter(
	log *zap.Logger,
	cfg *config.Config,
	statsHdl StatsHandler,
	bookingHdl BookingHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = io.Discard

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// middleware
	router.Use(handler.Recovery(log))
	router.Use(middleware.Headers())
	router.Use(middleware.Logger(log))
	router.Use(middleware.RequestTimeout(cfg.HTTPServer.Timeout.Request))

	router.NoRoute(handler.NoRoute)

	basePath := router.Group(cfg.BasePath)
	RegisterAPI(basePath, statsHdl, bookingHdl)

	return router
}
