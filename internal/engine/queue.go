package engine

import (
	"strings"

	"github.com/datallboy/bulkfetch/internal/domain"
	"github.com/datallboy/bulkfetch/internal/infra/logger"
)

// BuildQueue turns URLs into tasks, keeping input order.
// URLs without a file name are dropped, and so is any task whose target
// repeats an earlier one, so two workers never write the same file.
func BuildQueue(urls []string, log *logger.Logger) []domain.Task {
	tasks := make([]domain.Task, 0, len(urls))
	seen := make(map[string]string, len(urls))

	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		task, err := domain.NewTask(raw)
		if err != nil {
			log.Warn("Dropping %s: %v", raw, err)
			continue
		}

		if first, dup := seen[task.TargetPath]; dup {
			log.Warn("Dropping %s: target %s already claimed by %s", raw, task.TargetPath, first)
			continue
		}
		seen[task.TargetPath] = raw

		tasks = append(tasks, task)
	}

	return tasks
}
