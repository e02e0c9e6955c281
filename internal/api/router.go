package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/datallboy/bulkfetch/internal/api/controllers"
	"github.com/datallboy/bulkfetch/internal/app"
)

func RegisterRoutes(e *echo.Echo, app *app.Context, board controllers.StatusSource) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Debug("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	statusCtrl := &controllers.StatusController{App: app, Board: board}

	e.GET("/status", statusCtrl.HandleStatus)
	e.GET("/runs", statusCtrl.HandleRuns)
	e.GET("/runs/:id", statusCtrl.HandleRun)
}

// NewServer builds the status server. Echo is only used as the handler so
// the caller controls listening and shutdown.
func NewServer(addr string, app *app.Context, board controllers.StatusSource) *http.Server {
	e := echo.New()
	RegisterRoutes(e, app, board)

	return &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
