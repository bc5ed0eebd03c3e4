package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetChangedSince(ctx context.Context, entity EntityType, since time.Time, limit int) ([]*EntityRecord, error) {
	args := m.Called(ctx, entity, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*EntityRecord), args.Error(1)
}

func (m *MockRepository) GetDeletedSince(ctx context.Context, entity EntityType, since time.Time) ([]string, error) {
	args := m.Called(ctx, entity, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) GetRecord(ctx context.Context, entity EntityType, id string) (*EntityRecord, error) {
	args := m.Called(ctx, entity, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EntityRecord), args.Error(1)
}

func (m *MockRepository) GetRecordByQRCode(ctx context.Context, entity EntityType, qrCode string) (*EntityRecord, error) {
	args := m.Called(ctx, entity, qrCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EntityRecord), args.Error(1)
}

func (m *MockRepository) SaveRecord(ctx context.Context, rec *EntityRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRepository) SoftDeleteRecord(ctx context.Context, entity EntityType, id string) error {
	args := m.Called(ctx, entity, id)
	return args.Error(0)
}

func (m *MockRepository) ChecksumPairs(ctx context.Context, entity EntityType) ([]ChecksumPair, error) {
	args := m.Called(ctx, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ChecksumPair), args.Error(1)
}

func (m *MockRepository) SaveConflict(ctx context.Context, conflict *ConflictInfo) error {
	args := m.Called(ctx, conflict)
	return args.Error(0)
}

func (m *MockRepository) GetConflicts(ctx context.Context) ([]*ConflictInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ConflictInfo), args.Error(1)
}

func (m *MockRepository) GetConflictByID(ctx context.Context, conflictID string) (*ConflictInfo, error) {
	args := m.Called(ctx, conflictID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConflictInfo), args.Error(1)
}

func (m *MockRepository) ResolveConflict(ctx context.Context, conflictID string, resolution Resolution, resolved *EntityRecord) error {
	args := m.Called(ctx, conflictID, resolution, resolved)
	return args.Error(0)
}

func (m *MockRepository) PurgeConflictsBefore(ctx context.Context, threshold time.Time) (int, error) {
	args := m.Called(ctx, threshold)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) RegisterDevice(ctx context.Context, device *DeviceInfo) error {
	args := m.Called(ctx, device)
	return args.Error(0)
}

func (m *MockRepository) GetDeviceInfo(ctx context.Context, deviceID string) (*DeviceInfo, error) {
	args := m.Called(ctx, deviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DeviceInfo), args.Error(1)
}

func (m *MockRepository) UpdateDeviceSyncTime(ctx context.Context, deviceID string, syncTime time.Time) error {
	args := m.Called(ctx, deviceID, syncTime)
	return args.Error(0)
}

func (m *MockRepository) ListDevices(ctx context.Context) ([]*DeviceInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*DeviceInfo), args.Error(1)
}

func (m *MockRepository) DeleteDevice(ctx context.Context, deviceID string) error {
	args := m.Called(ctx, deviceID)
	return args.Error(0)
}

func (m *MockRepository) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SyncStatus), args.Error(1)
}

func (m *MockRepository) UpdateSyncStatus(ctx context.Context, status *SyncStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.Default(), &ServiceConfig{
		BatchSize:      100,
		MaxSyncRecords: 1000,
		ConflictTTL:    7 * 24 * time.Hour,
	})
}

func TestService_GetIncremental(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	checkpoint := time.Now().Add(-1 * time.Hour)
	req := IncrementalRequest{
		LastSyncTimestamp: checkpoint,
		Limit:             50,
	}

	records := []*EntityRecord{
		{
			ID:        "item-1",
			Entity:    EntityItem,
			Data:      map[string]any{"name": "Vintage lamp"},
			Version:   1,
			CreatedAt: time.Now().Add(-30 * time.Minute), // created after checkpoint
			UpdatedAt: time.Now().Add(-30 * time.Minute),
		},
		{
			ID:        "item-2",
			Entity:    EntityItem,
			Data:      map[string]any{"name": "Old radio"},
			Version:   3,
			CreatedAt: time.Now().Add(-48 * time.Hour), // created before checkpoint
			UpdatedAt: time.Now().Add(-10 * time.Minute),
		},
	}

	mockRepo.On("GetChangedSince", mock.Anything, EntityItem, checkpoint, 50).Return(records, nil)
	mockRepo.On("GetDeletedSince", mock.Anything, EntityItem, checkpoint).Return([]string{"item-9"}, nil)
	mockRepo.On("ChecksumPairs", mock.Anything, EntityItem).Return([]ChecksumPair{
		{ID: "item-1", UpdatedAt: records[0].UpdatedAt},
		{ID: "item-2", UpdatedAt: records[1].UpdatedAt},
	}, nil)

	response, err := service.GetIncremental(context.Background(), EntityItem, req)
	assert.NoError(t, err)
	assert.NotNil(t, response)
	assert.Equal(t, "Ok", response.Status)
	assert.Len(t, response.Added, 1)
	assert.Len(t, response.Updated, 1)
	assert.Equal(t, "item-1", response.Added[0].ID)
	assert.Equal(t, "item-2", response.Updated[0].ID)
	assert.Equal(t, []string{"item-9"}, response.Deleted)
	assert.False(t, response.HasMore) // 2 records < limit of 50
	assert.NotEmpty(t, response.Checksum)

	mockRepo.AssertExpectations(t)
}

func TestService_GetIncremental_UnknownEntity(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	_, err := service.GetIncremental(context.Background(), EntityType("gadget"), IncrementalRequest{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity type")
}

func TestService_GetIncremental_RepositoryError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("GetChangedSince", mock.Anything, EntityItem, mock.AnythingOfType("time.Time"), mock.AnythingOfType("int")).Return(nil, errors.New("database error"))

	_, err := service.GetIncremental(context.Background(), EntityItem, IncrementalRequest{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")

	mockRepo.AssertExpectations(t)
}

func TestService_GetIncremental_LimitValidation(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		expectedLimit int
	}{
		{name: "Zero limit should use default batch size", limit: 0, expectedLimit: 100},
		{name: "Limit above max should be capped", limit: 5000, expectedLimit: 1000},
		{name: "Valid limit should be used as-is", limit: 25, expectedLimit: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := newTestService(mockRepo)

			mockRepo.On("GetChangedSince", mock.Anything, EntityItem, mock.AnythingOfType("time.Time"), tt.expectedLimit).Return([]*EntityRecord{}, nil)
			mockRepo.On("GetDeletedSince", mock.Anything, EntityItem, mock.AnythingOfType("time.Time")).Return([]string{}, nil)
			mockRepo.On("ChecksumPairs", mock.Anything, EntityItem).Return([]ChecksumPair{}, nil)

			response, err := service.GetIncremental(context.Background(), EntityItem, IncrementalRequest{Limit: tt.limit})
			assert.NoError(t, err)
			assert.False(t, response.HasMore)

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Push(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	changes := []*EntityRecord{
		{ID: "item-1", Data: map[string]any{"name": "Vintage lamp"}, Version: 0},
		{ID: "item-2", Data: map[string]any{"name": "Old radio"}, Version: 2},
	}

	existing := &EntityRecord{
		ID:        "item-2",
		Entity:    EntityItem,
		Version:   2,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}

	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-1").Return(nil, ErrRecordNotFound)
	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-2").Return(existing, nil)
	mockRepo.On("SaveRecord", mock.Anything, mock.MatchedBy(func(r *EntityRecord) bool {
		return r.ID == "item-1" && r.Version == 1
	})).Return(nil)
	mockRepo.On("SaveRecord", mock.Anything, mock.MatchedBy(func(r *EntityRecord) bool {
		return r.ID == "item-2" && r.Version == 3
	})).Return(nil)

	response, err := service.Push(context.Background(), EntityItem, PushRequest{Changes: changes})
	assert.NoError(t, err)
	assert.Equal(t, "Ok", response.Status)
	assert.Equal(t, 2, response.Processed)
	assert.Equal(t, 0, response.Failed)
	assert.Empty(t, response.Conflicts)

	mockRepo.AssertExpectations(t)
}

func TestService_Push_VersionConflict(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	// Server is at version 5, client pushes version 2
	existing := &EntityRecord{ID: "item-1", Entity: EntityItem, Version: 5}
	change := &EntityRecord{ID: "item-1", Data: map[string]any{"name": "Stale name"}, Version: 2}

	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-1").Return(existing, nil)
	mockRepo.On("SaveConflict", mock.Anything, mock.MatchedBy(func(c *ConflictInfo) bool {
		return c.EntityID == "item-1" && c.ConflictType == ConflictUpdateUpdate && c.ClientVersion == 2
	})).Return(nil)

	response, err := service.Push(context.Background(), EntityItem, PushRequest{Changes: []*EntityRecord{change}})
	assert.NoError(t, err)
	assert.Equal(t, 0, response.Processed)
	assert.Equal(t, 1, response.Failed)
	assert.Len(t, response.Conflicts, 1)
	assert.Equal(t, existing, response.Conflicts[0].ServerRecord)

	// The stale change must not touch the server record
	mockRepo.AssertNotCalled(t, "SaveRecord", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestService_ProcessBatch_Create(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	event := &OfflineEvent{
		ID:        "evt-1",
		Type:      EventCreate,
		Entity:    EntityItem,
		EntityID:  "item-1",
		Data:      map[string]any{"name": "Vintage lamp", "status": "available"},
		Timestamp: time.Now().Add(-5 * time.Minute),
	}

	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-1").Return(nil, ErrRecordNotFound)
	mockRepo.On("SaveRecord", mock.Anything, mock.MatchedBy(func(r *EntityRecord) bool {
		return r.ID == "item-1" && r.Version == 1 && r.Data["name"] == "Vintage lamp"
	})).Return(nil)

	response, err := service.ProcessBatch(context.Background(), BatchRequest{Events: []*OfflineEvent{event}})
	assert.NoError(t, err)
	assert.Equal(t, "Ok", response.Status)
	assert.Len(t, response.Results, 1)
	assert.Equal(t, "ok", response.Results[0].Status)
	assert.Equal(t, "evt-1", response.Results[0].EventID)

	mockRepo.AssertExpectations(t)
}

func TestService_ProcessBatch_CreateCreateConflict(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	event := &OfflineEvent{
		ID:        "evt-1",
		Type:      EventCreate,
		Entity:    EntityItem,
		EntityID:  "item-1",
		Data:      map[string]any{"name": "Vintage lamp"},
		Timestamp: time.Now(),
	}

	existing := &EntityRecord{ID: "item-1", Entity: EntityItem, Version: 1}

	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-1").Return(existing, nil)
	mockRepo.On("SaveConflict", mock.Anything, mock.MatchedBy(func(c *ConflictInfo) bool {
		return c.ConflictType == ConflictCreateCreate
	})).Return(nil)

	response, err := service.ProcessBatch(context.Background(), BatchRequest{Events: []*OfflineEvent{event}})
	assert.NoError(t, err)
	assert.Equal(t, "conflict", response.Results[0].Status)
	assert.NotNil(t, response.Results[0].Conflict)

	mockRepo.AssertExpectations(t)
}

func TestService_ProcessBatch_CreateQRCodeConflict(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	// The same physical object was created on two devices under
	// different IDs; they collide on the unique qr code.
	event := &OfflineEvent{
		ID:        "evt-1",
		Type:      EventCreate,
		Entity:    EntityItem,
		EntityID:  "item-local",
		Data:      map[string]any{"name": "Vintage lamp", "qrCode": "QR-001"},
		Metadata:  EventMetadata{QRCode: "QR-001"},
		Timestamp: time.Now(),
	}

	duplicate := &EntityRecord{
		ID:      "item-server",
		Entity:  EntityItem,
		Data:    map[string]any{"name": "Vintage lamp", "qrCode": "QR-001"},
		Version: 1,
	}

	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-local").Return(nil, ErrRecordNotFound)
	mockRepo.On("GetRecordByQRCode", mock.Anything, EntityItem, "QR-001").Return(duplicate, nil)
	mockRepo.On("SaveConflict", mock.Anything, mock.MatchedBy(func(c *ConflictInfo) bool {
		return c.ConflictType == ConflictCreateCreate && c.ServerRecord == duplicate
	})).Return(nil)

	response, err := service.ProcessBatch(context.Background(), BatchRequest{Events: []*OfflineEvent{event}})
	assert.NoError(t, err)
	assert.Equal(t, "conflict", response.Results[0].Status)
	assert.NotNil(t, response.Results[0].Conflict)

	mockRepo.AssertNotCalled(t, "SaveRecord", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestService_Push_WrappedNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	change := &EntityRecord{ID: "item-1", Data: map[string]any{"name": "Vintage lamp"}, Version: 0}

	// A wrapped not-found still means the record does not exist
	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-1").
		Return(nil, fmt.Errorf("get record: %w", ErrRecordNotFound))
	mockRepo.On("SaveRecord", mock.Anything, mock.MatchedBy(func(r *EntityRecord) bool {
		return r.ID == "item-1" && r.Version == 1
	})).Return(nil)

	response, err := service.Push(context.Background(), EntityItem, PushRequest{Changes: []*EntityRecord{change}})
	assert.NoError(t, err)
	assert.Equal(t, 1, response.Processed)
	assert.Equal(t, 0, response.Failed)

	mockRepo.AssertExpectations(t)
}

func TestService_ProcessBatch_UpdateOnDeleted(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	event := &OfflineEvent{
		ID:        "evt-1",
		Type:      EventUpdate,
		Entity:    EntityItem,
		EntityID:  "item-1",
		Data:      map[string]any{"name": "Updated name"},
		Timestamp: time.Now().Add(-1 * time.Hour),
	}

	// Record was deleted on the server after the client edit
	existing := &EntityRecord{
		ID:        "item-1",
		Entity:    EntityItem,
		Version:   2,
		Deleted:   true,
		UpdatedAt: time.Now(),
	}

	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-1").Return(existing, nil)
	mockRepo.On("SaveConflict", mock.Anything, mock.MatchedBy(func(c *ConflictInfo) bool {
		return c.ConflictType == ConflictDeleteUpdate
	})).Return(nil)

	response, err := service.ProcessBatch(context.Background(), BatchRequest{Events: []*OfflineEvent{event}})
	assert.NoError(t, err)
	assert.Equal(t, "conflict", response.Results[0].Status)

	mockRepo.AssertExpectations(t)
}

func TestService_ProcessBatch_DeleteMissingIsOk(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	event := &OfflineEvent{
		ID:        "evt-1",
		Type:      EventDelete,
		Entity:    EntityItem,
		EntityID:  "item-gone",
		Timestamp: time.Now(),
	}

	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-gone").Return(nil, ErrRecordNotFound)

	response, err := service.ProcessBatch(context.Background(), BatchRequest{Events: []*OfflineEvent{event}})
	assert.NoError(t, err)
	assert.Equal(t, "ok", response.Results[0].Status)

	mockRepo.AssertNotCalled(t, "SoftDeleteRecord", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestService_ProcessBatch_InvalidEventDoesNotAbortBatch(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	invalid := &OfflineEvent{
		ID:     "evt-bad",
		Type:   EventType("EXPLODE"),
		Entity: EntityItem,
	}
	valid := &OfflineEvent{
		ID:        "evt-ok",
		Type:      EventDelete,
		Entity:    EntityItem,
		EntityID:  "item-1",
		Timestamp: time.Now(),
	}

	existing := &EntityRecord{ID: "item-1", Entity: EntityItem, Version: 1}
	mockRepo.On("GetRecord", mock.Anything, EntityItem, "item-1").Return(existing, nil)
	mockRepo.On("SoftDeleteRecord", mock.Anything, EntityItem, "item-1").Return(nil)

	response, err := service.ProcessBatch(context.Background(), BatchRequest{Events: []*OfflineEvent{invalid, valid}})
	assert.NoError(t, err)
	assert.Len(t, response.Results, 2)
	assert.Equal(t, "error", response.Results[0].Status)
	assert.Contains(t, response.Results[0].Error, "unknown event type")
	assert.Equal(t, "ok", response.Results[1].Status)

	mockRepo.AssertExpectations(t)
}

func TestService_GetStatus(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	status := &SyncStatus{
		LastSyncTime: time.Now(),
		TotalRecords: 42,
		DeviceCount:  3,
	}

	mockRepo.On("GetSyncStatus", mock.Anything).Return(status, nil)

	response, err := service.GetStatus(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "Ok", response.Status)
	assert.Equal(t, status, response.Data)

	mockRepo.AssertExpectations(t)
}

func TestService_GetConflicts(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	conflicts := []*ConflictInfo{
		{
			ID:           "conf-1",
			EntityID:     "item-1",
			Entity:       EntityItem,
			ConflictType: ConflictUpdateUpdate,
			DetectedAt:   time.Now(),
		},
	}

	mockRepo.On("GetConflicts", mock.Anything).Return(conflicts, nil)

	response, err := service.GetConflicts(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "Ok", response.Status)
	assert.Len(t, response.Data, 1)
	assert.Equal(t, "conf-1", response.Data[0].ID)

	mockRepo.AssertExpectations(t)
}

func TestService_ResolveConflict(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	conflict := &ConflictInfo{ID: "conf-1", EntityID: "item-1", Entity: EntityItem}
	req := ResolveConflictRequest{
		Resolution:   ResolutionServer,
		ResolvedData: nil,
	}

	mockRepo.On("GetConflictByID", mock.Anything, "conf-1").Return(conflict, nil)
	mockRepo.On("ResolveConflict", mock.Anything, "conf-1", ResolutionServer, (*EntityRecord)(nil)).Return(nil)

	response, err := service.ResolveConflict(context.Background(), "conf-1", req)
	assert.NoError(t, err)
	assert.Equal(t, "Ok", response.Status)
	assert.Equal(t, "Conflict resolved successfully", response.Message)

	mockRepo.AssertExpectations(t)
}

func TestService_ResolveConflict_AlreadyResolved(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	conflict := &ConflictInfo{ID: "conf-1", EntityID: "item-1", Entity: EntityItem}

	mockRepo.On("GetConflictByID", mock.Anything, "conf-1").Return(conflict, nil)
	mockRepo.On("ResolveConflict", mock.Anything, "conf-1", ResolutionLocal, (*EntityRecord)(nil)).Return(ErrConflictResolved)

	_, err := service.ResolveConflict(context.Background(), "conf-1", ResolveConflictRequest{Resolution: ResolutionLocal})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictResolved)

	mockRepo.AssertExpectations(t)
}

func TestService_GetDevices(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	devices := []*DeviceInfo{
		{ID: "dev-1", Name: "Warehouse tablet", LastSyncTime: time.Now()},
	}

	mockRepo.On("ListDevices", mock.Anything).Return(devices, nil)

	result, err := service.GetDevices(context.Background())
	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, "dev-1", result[0].ID)

	mockRepo.AssertExpectations(t)
}

func TestService_RemoveDevice(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	device := &DeviceInfo{ID: "dev-1", Name: "Warehouse tablet"}

	mockRepo.On("GetDeviceInfo", mock.Anything, "dev-1").Return(device, nil)
	mockRepo.On("DeleteDevice", mock.Anything, "dev-1").Return(nil)

	response, err := service.RemoveDevice(context.Background(), "dev-1")
	assert.NoError(t, err)
	assert.Equal(t, "Ok", response.Status)
	assert.Equal(t, "Device removed successfully", response.Message)

	mockRepo.AssertExpectations(t)
}

func TestService_RemoveDevice_NotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("GetDeviceInfo", mock.Anything, "dev-missing").Return(nil, ErrDeviceNotFound)

	_, err := service.RemoveDevice(context.Background(), "dev-missing")
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	mockRepo.AssertExpectations(t)
}
