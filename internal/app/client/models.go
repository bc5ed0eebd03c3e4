package client

import (
	"time"

	"invkeeper/internal/domain/sync"
)

// Snapshot - локальная копия серверной сущности. Это то, что видит
// пользователь между синхронизациями; очередь событий накладывается
// поверх снапшота.
type Snapshot struct {
	ID        string          `json:"id"`
	Entity    sync.EntityType `json:"entity"`
	Data      map[string]any  `json:"data"`
	Version   int64           `json:"version"`
	Deleted   bool            `json:"deleted"`
	Dirty     bool            `json:"dirty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SnapshotFilter фильтр локальных снапшотов
type SnapshotFilter struct {
	Entity      sync.EntityType
	ShowDeleted bool
	Limit       int
	Offset      int
}

// NetworkQuality грубая оценка качества сети; от нее зависит размер
// пакета при отправке очереди
type NetworkQuality string

const (
	NetworkGood    NetworkQuality = "good"
	NetworkPoor    NetworkQuality = "poor"
	NetworkOffline NetworkQuality = "offline"
)

// BatchSizeFor подбирает размер пакета под качество сети
func BatchSizeFor(quality NetworkQuality, configured int) int {
	switch quality {
	case NetworkPoor:
		if configured > 10 {
			return 10
		}
	case NetworkOffline:
		return 0
	}
	return configured
}

// Storage - интерфейс локального хранилища клиента
type Storage interface {
	// Снапшоты сущностей
	SaveSnapshot(snap *Snapshot) error
	GetSnapshot(entity sync.EntityType, id string) (*Snapshot, error)
	ListSnapshots(filter *SnapshotFilter) ([]*Snapshot, error)
	DeleteSnapshot(entity sync.EntityType, id string) error
	PurgeSnapshots(entity sync.EntityType) error
	CountSnapshots(entity sync.EntityType) (int, error)
	SnapshotChecksumPairs(entity sync.EntityType) ([]sync.ChecksumPair, error)

	// Очередь событий
	SaveEvent(event *sync.OfflineEvent) error
	GetEvent(id string) (*sync.OfflineEvent, error)
	ListEvents(status sync.EventStatus, limit int) ([]*sync.OfflineEvent, error)
	FindMergeCandidate(entity sync.EntityType, entityID string, typ sync.EventType, window time.Duration) (*sync.OfflineEvent, error)
	DeleteEvent(id string) error
	DeleteEventsBefore(status sync.EventStatus, threshold time.Time) (int, error)
	CountEvents(status sync.EventStatus) (int, error)

	// Конфликты
	SaveConflict(conflict *sync.ConflictRecord) error
	GetConflict(id string) (*sync.ConflictRecord, error)
	ListConflicts(unresolvedOnly bool) ([]*sync.ConflictRecord, error)

	// Чекпоинты
	SaveCheckpoint(cp *sync.Checkpoint) error
	GetCheckpoint(entity sync.EntityType) (*sync.Checkpoint, error)
	ResetCheckpoint(entity sync.EntityType) error

	Close() error
}
