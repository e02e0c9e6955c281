package app

import (
	"context"

	"github.com/datallboy/bulkfetch/internal/domain"
	"github.com/datallboy/bulkfetch/internal/infra/config"
	"github.com/datallboy/bulkfetch/internal/infra/logger"
)

type History interface {
	// This allows the engine to journal finished runs without importing the store package
	RecordRun(ctx context.Context, report *domain.RunReport) error
	ListRuns(ctx context.Context, limit int) ([]*domain.RunReport, error)
	GetRun(ctx context.Context, id string) (*domain.RunReport, error)
}

// Context holds the core environment and shared resources for a bulkfetch process.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// History is nil unless store.sqlite_path is configured
	History History
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
