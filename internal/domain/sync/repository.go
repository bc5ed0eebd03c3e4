package sync

import (
	"context"
	"time"
)

// Repository интерфейс серверного хранилища синхронизации
type Repository interface {
	// Дельты по сущностям
	GetChangedSince(ctx context.Context, entity EntityType, since time.Time, limit int) ([]*EntityRecord, error)
	GetDeletedSince(ctx context.Context, entity EntityType, since time.Time) ([]string, error)
	GetRecord(ctx context.Context, entity EntityType, id string) (*EntityRecord, error)
	GetRecordByQRCode(ctx context.Context, entity EntityType, qrCode string) (*EntityRecord, error)
	SaveRecord(ctx context.Context, rec *EntityRecord) error
	SoftDeleteRecord(ctx context.Context, entity EntityType, id string) error
	ChecksumPairs(ctx context.Context, entity EntityType) ([]ChecksumPair, error)

	// Конфликты
	SaveConflict(ctx context.Context, conflict *ConflictInfo) error
	GetConflicts(ctx context.Context) ([]*ConflictInfo, error)
	GetConflictByID(ctx context.Context, conflictID string) (*ConflictInfo, error)
	ResolveConflict(ctx context.Context, conflictID string, resolution Resolution, resolved *EntityRecord) error
	PurgeConflictsBefore(ctx context.Context, threshold time.Time) (int, error)

	// Устройства
	RegisterDevice(ctx context.Context, device *DeviceInfo) error
	GetDeviceInfo(ctx context.Context, deviceID string) (*DeviceInfo, error)
	UpdateDeviceSyncTime(ctx context.Context, deviceID string, syncTime time.Time) error
	ListDevices(ctx context.Context) ([]*DeviceInfo, error)
	DeleteDevice(ctx context.Context, deviceID string) error

	// Статус
	GetSyncStatus(ctx context.Context) (*SyncStatus, error)
	UpdateSyncStatus(ctx context.Context, status *SyncStatus) error
}
