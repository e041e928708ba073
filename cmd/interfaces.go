package cmd

import (
	"context"
	"time"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

// BlinkService defines what the poller and the relay expect from the cloud
// client.
type BlinkService interface {
	Connect(ctx context.Context, scope string) error
	FetchSummary(ctx context.Context) (*model.Summary, error)
	SetArmed(ctx context.Context, armed bool) error
	GetCameras(ctx context.Context, id string) error
	SetMotionDetect(ctx context.Context, enabled bool) error
}

// Database defines the persistence the state store and the API run on.
type Database interface {
	CreateObject(ctx context.Context, decl model.Declaration) error
	WriteState(ctx context.Context, path string, st model.State) error
	DeleteObject(ctx context.Context, path string) error
	GetObjects(ctx context.Context) ([]model.Declaration, error)
	GetStates(ctx context.Context) (map[string]model.State, error)
	GetHistory(ctx context.Context, path string, from, to *time.Time) (model.StateRecords, error)
	GetConfigValue(ctx context.Context, key string) (string, bool, error)
	Cleanup(ctx context.Context) error
}
