package framework

import (
	"context"
	"log/slog"
	"time"

	"github.com/modeldriven/crm-e2e/test/framework/config"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// Values written to fields that mark a record as inactive
const (
	StateCodeInactive  = 1
	StatusCodeInactive = 2
)

// TrackedRecord represents a record created by the framework
type TrackedRecord struct {
	Collection string
	ID         string
	CreatedAt  time.Time
}

func (r TrackedRecord) String() string {
	return r.Collection + "(" + r.ID + ")"
}

// Clients provides access to the Web API and run configuration
type Clients interface {
	Gateway() *webapi.Gateway
	Environment() *config.Environment
	URLs() config.URLs
	Context() context.Context
	Logger() *slog.Logger
}

// Tracker provides record tracking capabilities
type Tracker interface {
	TrackRecord(collection, id string)
	UntrackRecord(collection, id string) error
	GetTrackedRecords() []TrackedRecord
}

// FrameworkOperations combines all capabilities needed by specs and helpers
type FrameworkOperations interface {
	Clients
	Tracker
}
