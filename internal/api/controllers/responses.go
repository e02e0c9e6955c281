package controllers

import (
	"time"

	"github.com/datallboy/bulkfetch/internal/domain"
	"github.com/datallboy/bulkfetch/internal/engine"
	"github.com/datallboy/bulkfetch/internal/progress"
)

// StatusResponse is the body of GET /status
type StatusResponse struct {
	engine.Status
	Percent int    `json:"percent"`
	Elapsed string `json:"elapsed"`
	ETA     string `json:"eta,omitempty"`
	Line    string `json:"line"`
}

func NewStatusResponse(s engine.Status) StatusResponse {
	resp := StatusResponse{
		Status:  s,
		Percent: s.Progress.Percent,
		Elapsed: progress.FormatClock(s.Progress.Elapsed),
		Line:    s.Progress.Line(),
	}
	if s.Progress.HasETA {
		resp.ETA = progress.FormatClock(s.Progress.ETA)
	}
	return resp
}

// RunResponse is one entry of GET /runs
type RunResponse struct {
	ID         string           `json:"id"`
	Status     domain.RunStatus `json:"status"`
	OutDir     string           `json:"out_dir"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Duration   string           `json:"duration"`
	Summary    domain.Summary   `json:"summary"`
	Results    []ResultResponse `json:"results,omitempty"`
}

type ResultResponse struct {
	URL         string `json:"url"`
	TargetPath  string `json:"target_path"`
	ExecutionID string `json:"execution_id,omitempty"`
	Outcome     string `json:"outcome"`
	Skipped     bool   `json:"skipped"`
	Error       string `json:"error,omitempty"`
}

func NewRunResponse(r *domain.RunReport) RunResponse {
	resp := RunResponse{
		ID:         r.ID,
		Status:     r.Status,
		OutDir:     r.OutDir,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Duration:   progress.FormatClock(r.Summary.Duration),
		Summary:    r.Summary,
	}
	for _, res := range r.Results {
		resp.Results = append(resp.Results, ResultResponse{
			URL:         res.Task.URL,
			TargetPath:  res.Task.TargetPath,
			ExecutionID: res.ExecutionID,
			Outcome:     res.Outcome.String(),
			Skipped:     res.Skipped,
			Error:       res.Error,
		})
	}
	return resp
}
