package inventory

import (
	"context"
	"testing"
	"time"

	"invkeeper/internal/domain/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, entity sync.EntityType, criteria SearchCriteria) ([]*sync.EntityRecord, error) {
	args := m.Called(ctx, entity, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sync.EntityRecord), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, entity sync.EntityType, id string) (*sync.EntityRecord, error) {
	args := m.Called(ctx, entity, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.EntityRecord), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, rec *sync.EntityRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, rec *sync.EntityRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRepository) SoftDelete(ctx context.Context, entity sync.EntityType, id string) error {
	args := m.Called(ctx, entity, id)
	return args.Error(0)
}

func (m *MockRepository) GetByQRCode(ctx context.Context, qrCode string) (*sync.EntityRecord, error) {
	args := m.Called(ctx, qrCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.EntityRecord), args.Error(1)
}

func (m *MockRepository) Count(ctx context.Context, entity sync.EntityType) (int, error) {
	args := m.Called(ctx, entity)
	return args.Int(0), args.Error(1)
}

func newTestInventoryService(repo Repository) Servicer {
	return NewService(repo, NewFactory(), slog.Default())
}

func TestService_Create(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	data := map[string]any{
		"name":         "Vintage lamp",
		"status":       "available",
		"sellingPrice": 45.0,
		"qrCode":       "QR-001",
	}

	mockRepo.On("GetByQRCode", mock.Anything, "QR-001").Return(nil, ErrNotFound)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *sync.EntityRecord) bool {
		return r.Entity == sync.EntityItem && r.Version == 1 && r.ID != "" && r.Data["name"] == "Vintage lamp"
	})).Return(nil)

	rec, err := service.Create(context.Background(), sync.EntityItem, data)
	assert.NoError(t, err)
	assert.NotNil(t, rec)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1), rec.Version)

	mockRepo.AssertExpectations(t)
}

func TestService_Create_InvalidData(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	tests := []struct {
		name   string
		entity sync.EntityType
		data   map[string]any
	}{
		{
			name:   "Missing name",
			entity: sync.EntityItem,
			data:   map[string]any{"status": "available"},
		},
		{
			name:   "Unknown status",
			entity: sync.EntityItem,
			data:   map[string]any{"name": "Lamp", "status": "exploded"},
		},
		{
			name:   "Negative price",
			entity: sync.EntityItem,
			data:   map[string]any{"name": "Lamp", "sellingPrice": -5.0},
		},
		{
			name:   "Bad category color",
			entity: sync.EntityCategory,
			data:   map[string]any{"name": "Lighting", "color": "red"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), tt.entity, tt.data)
			assert.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidData)
		})
	}

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Create_DuplicateQRCode(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	existing := &sync.EntityRecord{ID: "item-1", Entity: sync.EntityItem}
	mockRepo.On("GetByQRCode", mock.Anything, "QR-001").Return(existing, nil)

	_, err := service.Create(context.Background(), sync.EntityItem, map[string]any{
		"name":   "Second lamp",
		"qrCode": "QR-001",
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateQRCode)

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestService_Update_MergesFields(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	existing := &sync.EntityRecord{
		ID:     "item-1",
		Entity: sync.EntityItem,
		Data: map[string]any{
			"name":   "Vintage lamp",
			"status": "available",
		},
		Version:   2,
		UpdatedAt: time.Now().Add(-1 * time.Hour),
	}

	mockRepo.On("Get", mock.Anything, sync.EntityItem, "item-1").Return(existing, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *sync.EntityRecord) bool {
		// Untouched fields survive the partial update
		return r.Version == 3 && r.Data["status"] == "sold" && r.Data["name"] == "Vintage lamp"
	})).Return(nil)

	rec, err := service.Update(context.Background(), sync.EntityItem, "item-1", map[string]any{"status": "sold"})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), rec.Version)

	mockRepo.AssertExpectations(t)
}

func TestService_Update_Deleted(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	existing := &sync.EntityRecord{
		ID:      "item-1",
		Entity:  sync.EntityItem,
		Data:    map[string]any{"name": "Vintage lamp"},
		Deleted: true,
	}

	mockRepo.On("Get", mock.Anything, sync.EntityItem, "item-1").Return(existing, nil)

	_, err := service.Update(context.Background(), sync.EntityItem, "item-1", map[string]any{"status": "sold"})
	assert.ErrorIs(t, err, ErrEntityDeleted)

	mockRepo.AssertExpectations(t)
}

func TestService_Delete_AlreadyDeleted(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	existing := &sync.EntityRecord{ID: "item-1", Entity: sync.EntityItem, Deleted: true}
	mockRepo.On("Get", mock.Anything, sync.EntityItem, "item-1").Return(existing, nil)

	err := service.Delete(context.Background(), sync.EntityItem, "item-1")
	assert.NoError(t, err)

	mockRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestService_Move(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	existing := &sync.EntityRecord{
		ID:      "item-1",
		Entity:  sync.EntityItem,
		Data:    map[string]any{"name": "Vintage lamp", "containerId": "box-1"},
		Version: 1,
	}

	mockRepo.On("Get", mock.Anything, sync.EntityItem, "item-1").Return(existing, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(r *sync.EntityRecord) bool {
		return r.Data["containerId"] == "box-2"
	})).Return(nil)

	_, err := service.Move(context.Background(), sync.EntityItem, "item-1", "box-2", "")
	assert.NoError(t, err)

	mockRepo.AssertExpectations(t)
}

func TestService_Move_CategoryRejected(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	_, err := service.Move(context.Background(), sync.EntityCategory, "cat-1", "box-1", "")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestService_Stats(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestInventoryService(mockRepo)

	mockRepo.On("Count", mock.Anything, sync.EntityCategory).Return(2, nil)
	mockRepo.On("Count", mock.Anything, sync.EntityLocation).Return(1, nil)
	mockRepo.On("Count", mock.Anything, sync.EntityContainer).Return(4, nil)
	mockRepo.On("Count", mock.Anything, sync.EntityItem).Return(10, nil)

	stats, err := service.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 17, stats.Total)
	assert.Equal(t, 10, stats.ByEntity["item"])

	mockRepo.AssertExpectations(t)
}

func TestMergeStatus(t *testing.T) {
	tests := []struct {
		name     string
		local    ItemStatus
		server   ItemStatus
		expected ItemStatus
		ok       bool
	}{
		{name: "Sold beats available", local: StatusSold, server: StatusAvailable, expected: StatusSold, ok: true},
		{name: "Sold beats available from server side", local: StatusAvailable, server: StatusSold, expected: StatusSold, ok: true},
		{name: "Reserved beats available", local: StatusReserved, server: StatusAvailable, expected: StatusReserved, ok: true},
		{name: "Equal statuses keep local", local: StatusAvailable, server: StatusAvailable, expected: StatusAvailable, ok: true},
		{name: "Unknown status forces manual", local: ItemStatus("archived"), server: StatusSold, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := MergeStatus(tt.local, tt.server)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestItem_MapRoundTrip(t *testing.T) {
	item := &Item{
		ID:           "item-1",
		Name:         "Vintage lamp",
		Status:       StatusAvailable,
		SellingPrice: 45,
		QRCode:       "QR-001",
		CategoryID:   "cat-1",
	}

	parsed := &Item{}
	assert.NoError(t, parsed.FromMap(item.ToMap()))
	assert.Equal(t, item.Name, parsed.Name)
	assert.Equal(t, item.Status, parsed.Status)
	assert.Equal(t, item.SellingPrice, parsed.SellingPrice)
	assert.Equal(t, item.QRCode, parsed.QRCode)
	assert.Equal(t, item.CategoryID, parsed.CategoryID)
}
