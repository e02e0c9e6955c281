package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/datallboy/bulkfetch/internal/app"
	"github.com/datallboy/bulkfetch/internal/engine"
)

type StatusSource interface {
	Status() engine.Status
}

type StatusController struct {
	App   *app.Context
	Board StatusSource
}

// HandleStatus reports the live state of the current run
func (ctrl *StatusController) HandleStatus(c *echo.Context) error {
	return c.JSON(http.StatusOK, NewStatusResponse(ctrl.Board.Status()))
}

// HandleRuns lists recorded runs, newest first
func (ctrl *StatusController) HandleRuns(c *echo.Context) error {
	if ctrl.App.History == nil {
		return echo.NewHTTPError(http.StatusNotFound, "run history is disabled")
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	runs, err := ctrl.App.History.ListRuns(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list runs")
	}

	out := make([]RunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, NewRunResponse(r))
	}
	return c.JSON(http.StatusOK, out)
}

// HandleRun returns one run with its per-task results
func (ctrl *StatusController) HandleRun(c *echo.Context) error {
	if ctrl.App.History == nil {
		return echo.NewHTTPError(http.StatusNotFound, "run history is disabled")
	}

	run, err := ctrl.App.History.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get run")
	}
	if run == nil {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}

	return c.JSON(http.StatusOK, NewRunResponse(run))
}
