package storage

import (
	"context"

	"crossmatch/internal/model"
)

// Store defines transaction-like persistence operations for tournament runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns the newest runs first. A limit of zero or less lists
	// every run.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	SaveMatchRecords(ctx context.Context, runID string, records []model.MatchRecord) error
	GetMatchRecords(ctx context.Context, runID string) ([]model.MatchRecord, bool, error)
	SaveResultsCells(ctx context.Context, runID string, cells []model.ResultsCell) error
	GetResultsCells(ctx context.Context, runID string) ([]model.ResultsCell, bool, error)
}
