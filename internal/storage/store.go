package storage

import (
	"context"

	"peekaboo/internal/model"
)

// Store defines persistence operations for run records and their archived
// event streams.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	AppendEvent(ctx context.Context, runID string, event model.Event) error
	GetEvents(ctx context.Context, runID string) ([]model.Event, bool, error)
}

// Resetter is implemented by stores that can drop all persisted data.
type Resetter interface {
	Reset(ctx context.Context) error
}
