package cmd

import (
	"context"
	"time"

	"github.com/anicoll/blink-integration/internal/pkg/model"
)

// MockBlinkService is a mock implementation of the BlinkService interface.
type MockBlinkService struct {
	ConnectFunc         func(ctx context.Context, scope string) error
	FetchSummaryFunc    func(ctx context.Context) (*model.Summary, error)
	SetArmedFunc        func(ctx context.Context, armed bool) error
	GetCamerasFunc      func(ctx context.Context, id string) error
	SetMotionDetectFunc func(ctx context.Context, enabled bool) error
}

func (m *MockBlinkService) Connect(ctx context.Context, scope string) error {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx, scope)
	}
	return nil
}

func (m *MockBlinkService) FetchSummary(ctx context.Context) (*model.Summary, error) {
	if m.FetchSummaryFunc != nil {
		return m.FetchSummaryFunc(ctx)
	}
	return &model.Summary{}, nil
}

func (m *MockBlinkService) SetArmed(ctx context.Context, armed bool) error {
	if m.SetArmedFunc != nil {
		return m.SetArmedFunc(ctx, armed)
	}
	return nil
}

func (m *MockBlinkService) GetCameras(ctx context.Context, id string) error {
	if m.GetCamerasFunc != nil {
		return m.GetCamerasFunc(ctx, id)
	}
	return nil
}

func (m *MockBlinkService) SetMotionDetect(ctx context.Context, enabled bool) error {
	if m.SetMotionDetectFunc != nil {
		return m.SetMotionDetectFunc(ctx, enabled)
	}
	return nil
}

// MockDatabase is a mock implementation of the Database interface.
type MockDatabase struct {
	CreateObjectFunc   func(ctx context.Context, decl model.Declaration) error
	WriteStateFunc     func(ctx context.Context, path string, st model.State) error
	DeleteObjectFunc   func(ctx context.Context, path string) error
	GetObjectsFunc     func(ctx context.Context) ([]model.Declaration, error)
	GetStatesFunc      func(ctx context.Context) (map[string]model.State, error)
	GetHistoryFunc     func(ctx context.Context, path string, from, to *time.Time) (model.StateRecords, error)
	GetConfigValueFunc func(ctx context.Context, key string) (string, bool, error)
	CleanupFunc        func(ctx context.Context) error
}

func (m *MockDatabase) CreateObject(ctx context.Context, decl model.Declaration) error {
	if m.CreateObjectFunc != nil {
		return m.CreateObjectFunc(ctx, decl)
	}
	return nil
}

func (m *MockDatabase) WriteState(ctx context.Context, path string, st model.State) error {
	if m.WriteStateFunc != nil {
		return m.WriteStateFunc(ctx, path, st)
	}
	return nil
}

func (m *MockDatabase) DeleteObject(ctx context.Context, path string) error {
	if m.DeleteObjectFunc != nil {
		return m.DeleteObjectFunc(ctx, path)
	}
	return nil
}

func (m *MockDatabase) GetObjects(ctx context.Context) ([]model.Declaration, error) {
	if m.GetObjectsFunc != nil {
		return m.GetObjectsFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatabase) GetStates(ctx context.Context) (map[string]model.State, error) {
	if m.GetStatesFunc != nil {
		return m.GetStatesFunc(ctx)
	}
	return map[string]model.State{}, nil
}

func (m *MockDatabase) GetHistory(ctx context.Context, path string, from, to *time.Time) (model.StateRecords, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, path, from, to)
	}
	return nil, nil
}

func (m *MockDatabase) GetConfigValue(ctx context.Context, key string) (string, bool, error) {
	if m.GetConfigValueFunc != nil {
		return m.GetConfigValueFunc(ctx, key)
	}
	return "", false, nil
}

func (m *MockDatabase) Cleanup(ctx context.Context) error {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx)
	}
	return nil
}
