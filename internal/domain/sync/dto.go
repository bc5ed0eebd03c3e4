package sync

import (
	"time"
)

// DTO (Data Transfer Objects) для API синхронизации

// IncrementalRequest запрос дельты по одной сущности. Клиент передает
// свой чекпоинт; сервер возвращает все записи новее него.
type IncrementalRequest struct {
	LastSyncTimestamp time.Time `json:"last_sync_timestamp" format:"date-time"`
	LastSyncedID      string    `json:"last_synced_id,omitempty"`
	Checksum          string    `json:"checksum,omitempty"`
	Limit             int       `json:"limit" minimum:"1" maximum:"1000" default:"200"`
	DeviceID          string    `json:"device_id,omitempty"`
}

// IncrementalResponse дельта по сущности
type IncrementalResponse struct {
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Added      []*EntityRecord `json:"added,omitempty"`
	Updated    []*EntityRecord `json:"updated,omitempty"`
	Deleted    []string        `json:"deleted,omitempty"`
	HasMore    bool            `json:"has_more,omitempty"`
	Checksum   string          `json:"checksum,omitempty"`
	ServerTime time.Time       `json:"server_time"`
}

// PushRequest локальные изменения одной сущности
type PushRequest struct {
	DeviceID string          `json:"device_id,omitempty"`
	Changes  []*EntityRecord `json:"changes"`
}

// PushResponse результат применения локальных изменений
type PushResponse struct {
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Conflicts []*ConflictInfo `json:"conflicts,omitempty"`
	Errors    []string        `json:"errors,omitempty"`
}

// BatchRequest пакет офлайн-событий
type BatchRequest struct {
	DeviceID string          `json:"device_id,omitempty"`
	Events   []*OfflineEvent `json:"events"`
}

// EventAck итог обработки одного события пакета
type EventAck struct {
	EventID  string        `json:"event_id"`
	Status   string        `json:"status" enum:"ok,conflict,error"`
	Error    string        `json:"error,omitempty"`
	Conflict *ConflictInfo `json:"conflict,omitempty"`
}

// BatchResponse по-событийные подтверждения; один плохой элемент не
// валит весь пакет
type BatchResponse struct {
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Results    []*EventAck `json:"results,omitempty"`
	ServerTime time.Time   `json:"server_time"`
}

// ConflictInfo конфликт в представлении API
type ConflictInfo struct {
	ID            string        `json:"id"`
	EntityID      string        `json:"entity_id"`
	Entity        EntityType    `json:"entity"`
	ConflictType  ConflictType  `json:"conflict_type"`
	ServerRecord  *EntityRecord `json:"server_record,omitempty"`
	ClientVersion int64         `json:"client_version,omitempty"`
	DetectedAt    time.Time     `json:"detected_at"`
}

// GetStatusResponse ответ со статусом синхронизации
type GetStatusResponse struct {
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Data   *SyncStatus `json:"data,omitempty"`
}

// GetConflictsResponse ответ с конфликтами
type GetConflictsResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   []*ConflictInfo `json:"data,omitempty"`
}

// ResolveConflictRequest запрос на разрешение конфликта
type ResolveConflictRequest struct {
	Resolution   Resolution    `json:"resolution" enum:"local,server,merged"`
	ResolvedData *EntityRecord `json:"resolved_data,omitempty"`
	ResolvedBy   string        `json:"resolved_by,omitempty"`
}

// ResolveConflictResponse ответ на разрешение конфликта
type ResolveConflictResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// GetDevicesResponse ответ со списком устройств
type GetDevicesResponse struct {
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	Data   []*DeviceInfo `json:"data,omitempty"`
}

// RemoveDeviceResponse ответ на удаление устройства
type RemoveDeviceResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
