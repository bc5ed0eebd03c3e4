package sync

import (
	"time"
)

// EventType тип локальной мутации, ожидающей отправки на сервер
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventMove   EventType = "MOVE"
	EventAssign EventType = "ASSIGN"
)

// EntityType тип сущности инвентаря
type EntityType string

const (
	EntityItem      EntityType = "item"
	EntityCategory  EntityType = "category"
	EntityContainer EntityType = "container"
	EntityLocation  EntityType = "location"
)

// AllEntities порядок обхода сущностей при синхронизации.
// Категории и локации идут первыми: предметы и контейнеры ссылаются на них.
var AllEntities = []EntityType{EntityCategory, EntityLocation, EntityContainer, EntityItem}

// Valid проверяет, известен ли тип сущности
func (e EntityType) Valid() bool {
	switch e {
	case EntityItem, EntityCategory, EntityContainer, EntityLocation:
		return true
	}
	return false
}

// EventStatus статус события в очереди
type EventStatus string

const (
	StatusPending  EventStatus = "pending"
	StatusSyncing  EventStatus = "syncing"
	StatusSynced   EventStatus = "synced"
	StatusFailed   EventStatus = "failed"
	StatusConflict EventStatus = "conflict"
)

// EventMetadata дополнительные данные события
type EventMetadata struct {
	QRCode         string   `json:"qr_code,omitempty"`
	ParentEntityID string   `json:"parent_entity_id,omitempty"`
	TempImageURLs  []string `json:"temp_image_urls,omitempty"`
}

// OfflineEvent локальное событие мутации (write-ahead запись).
// ID стабилен между повторными попытками; SyncAttempts растет только
// при неудачах.
type OfflineEvent struct {
	ID              string         `json:"id"`
	Type            EventType      `json:"type"`
	Entity          EntityType     `json:"entity"`
	EntityID        string         `json:"entity_id"`
	Data            map[string]any `json:"data"`
	OriginalData    map[string]any `json:"original_data,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	UserID          string         `json:"user_id,omitempty"`
	DeviceID        string         `json:"device_id,omitempty"`
	Status          EventStatus    `json:"status"`
	SyncAttempts    int            `json:"sync_attempts"`
	LastSyncAttempt *time.Time     `json:"last_sync_attempt,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Metadata        EventMetadata  `json:"metadata"`
}

// Validate проверяет обязательные поля события
func (e *OfflineEvent) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Reason: "required"}
	}
	switch e.Type {
	case EventCreate, EventUpdate, EventDelete, EventMove, EventAssign:
	default:
		return &ValidationError{Field: "type", Reason: "unknown event type " + string(e.Type)}
	}
	if !e.Entity.Valid() {
		return &ValidationError{Field: "entity", Reason: "unknown entity type " + string(e.Entity)}
	}
	if e.EntityID == "" {
		return &ValidationError{Field: "entity_id", Reason: "required"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Reason: "required"}
	}
	return nil
}

// ConflictType классификация расхождения локального и серверного состояний
type ConflictType string

const (
	ConflictUpdateUpdate ConflictType = "UPDATE_UPDATE"
	ConflictDeleteUpdate ConflictType = "DELETE_UPDATE"
	ConflictMoveMove     ConflictType = "MOVE_MOVE"
	ConflictCreateCreate ConflictType = "CREATE_CREATE"
)

// Resolution исход разрешения конфликта
type Resolution string

const (
	ResolutionLocal  Resolution = "local"
	ResolutionServer Resolution = "server"
	ResolutionMerged Resolution = "merged"
	ResolutionManual Resolution = "manual"
)

// ConflictRecord обнаруженный конфликт. Resolution заполняется ровно
// один раз: повторное разрешение отвергается.
type ConflictRecord struct {
	ID              string         `json:"id"`
	Type            ConflictType   `json:"type"`
	Entity          EntityType     `json:"entity"`
	EntityID        string         `json:"entity_id"`
	EventID         string         `json:"event_id,omitempty"`
	LocalData       map[string]any `json:"local_data,omitempty"`
	ServerData      map[string]any `json:"server_data,omitempty"`
	LocalTimestamp  time.Time      `json:"local_timestamp"`
	ServerTimestamp time.Time      `json:"server_timestamp"`
	DetectedAt      time.Time      `json:"detected_at"`
	Similarity      float64        `json:"similarity,omitempty"`
	Resolution      Resolution     `json:"resolution,omitempty"`
	ResolvedData    map[string]any `json:"resolved_data,omitempty"`
	ResolvedBy      string         `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
}

// Resolved сообщает, был ли конфликт уже разрешен
func (c *ConflictRecord) Resolved() bool {
	return c.Resolution != "" && c.Resolution != ResolutionManual
}

// Checkpoint закладка инкрементальной синхронизации для одной сущности.
// LastSyncTimestamp двигается только вперед.
type Checkpoint struct {
	Entity            EntityType `json:"entity"`
	LastSyncTimestamp time.Time  `json:"last_sync_timestamp"`
	LastSyncedID      string     `json:"last_synced_id,omitempty"`
	SyncVersion       int64      `json:"sync_version"`
	Checksum          string     `json:"checksum,omitempty"`
}

/// EntityRecord серверное представление сущности: непрозрачные данные
// плюс колонки, которые нужны протоколу синхронизации.
type EntityRecord struct {
	ID        string         `json:"id"`
	Entity    EntityType     `json:"entity"`
	Data      map[string]any `json:"data"`
	Version   int64          `json:"version"`
	Deleted   bool           `json:"deleted"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DeviceInfo устройство, участвующее в синхронизации
type DeviceInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LastSyncTime time.Time `json:"last_sync_time"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SyncStatus серверный агрегат состояния синхронизации
type SyncStatus struct {
	LastSyncTime time.Time `json:"last_sync_time"`
	TotalRecords int       `json:"total_records"`
	DeviceCount  int       `json:"device_count"`
	SyncVersion  int64     `json:"sync_version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ServiceConfig конфигурация серверного сервиса синхронизации
type ServiceConfig struct {
	BatchSize      int           `json:"batch_size"`
	MaxSyncRecords int           `json:"max_sync_records"`
	ConflictTTL    time.Duration `json:"conflict_ttl"`
}
