package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Servicer интерфейс серверного сервиса синхронизации
type Servicer interface {
	// GetIncremental возвращает дельту по сущности относительно чекпоинта клиента
	GetIncremental(ctx context.Context, entity EntityType, req IncrementalRequest) (*IncrementalResponse, error)

	// Push применяет локальные изменения клиента по одной сущности
	Push(ctx context.Context, entity EntityType, req PushRequest) (*PushResponse, error)

	// ProcessBatch обрабатывает пакет офлайн-событий
	ProcessBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error)

	// GetStatus возвращает текущий статус синхронизации
	GetStatus(ctx context.Context) (*GetStatusResponse, error)

	// GetConflicts возвращает список неразрешенных конфликтов
	GetConflicts(ctx context.Context) (*GetConflictsResponse, error)

	// ResolveConflict разрешает указанный конфликт
	ResolveConflict(ctx context.Context, conflictID string, req ResolveConflictRequest) (*ResolveConflictResponse, error)

	// GetDevices возвращает список устройств
	GetDevices(ctx context.Context) ([]*DeviceInfo, error)

	// RemoveDevice удаляет устройство из списка синхронизации
	RemoveDevice(ctx context.Context, deviceID string) (*RemoveDeviceResponse, error)
}

// Service реализация сервиса синхронизации
type Service struct {
	repo   Repository
	log    *slog.Logger
	config *ServiceConfig
}

// NewService создает новый сервис синхронизации
func NewService(repo Repository, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{
			BatchSize:      200,
			MaxSyncRecords: 1000,
			ConflictTTL:    7 * 24 * time.Hour,
		}
	}

	return &Service{
		repo:   repo,
		log:    log,
		config: config,
	}
}

// GetIncremental возвращает все записи сущности с updated_at строго
// больше чекпоинта клиента, по возрастанию. Расхождение контрольных
// сумм отражается в ответе: клиент сам решает, делать ли полный ресинк.
func (s *Service) GetIncremental(ctx context.Context, entity EntityType, req IncrementalRequest) (*IncrementalResponse, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("unknown entity type: %s", entity)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.config.BatchSize
	}
	if limit > s.config.MaxSyncRecords {
		limit = s.config.MaxSyncRecords
	}

	changed, err := s.repo.GetChangedSince(ctx, entity, req.LastSyncTimestamp, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get changed records: %w", err)
	}

	deleted, err := s.repo.GetDeletedSince(ctx, entity, req.LastSyncTimestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to get deleted records: %w", err)
	}

	// Записи, созданные после чекпоинта, отделяем от обновленных
	var added, updated []*EntityRecord
	for _, rec := range changed {
		if rec.CreatedAt.After(req.LastSyncTimestamp) {
			added = append(added, rec)
		} else {
			updated = append(updated, rec)
		}
	}

	pairs, err := s.repo.ChecksumPairs(ctx, entity)
	if err != nil {
		s.log.Warn("Failed to compute checksum pairs", "entity", entity, "error", err)
	}

	if req.DeviceID != "" {
		s.touchDevice(ctx, req.DeviceID)
	}

	return &IncrementalResponse{
		Status:     "Ok",
		Added:      added,
		Updated:    updated,
		Deleted:    deleted,
		HasMore:    len(changed) >= limit,
		Checksum:   Checksum(pairs),
		ServerTime: time.Now(),
	}, nil
}

// Push применяет изменения клиента. Версионный конфликт не роняет
// пакет: запись о конфликте сохраняется и возвращается клиенту.
func (s *Service) Push(ctx context.Context, entity EntityType, req PushRequest) (*PushResponse, error) {
	if !entity.Valid() {
		return nil, fmt.Errorf("unknown entity type: %s", entity)
	}

	resp := &PushResponse{Status: "Ok"}

	for _, change := range req.Changes {
		change.Entity = entity

		existing, err := s.repo.GetRecord(ctx, entity, change.ID)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("record %s: %v", change.ID, err))
			continue
		}

		if existing != nil && existing.Version > change.Version {
			// Сервер уже ушел вперед: фиксируем конфликт, запись не трогаем
			conflict := &ConflictInfo{
				ID:            uuid.NewString(),
				EntityID:      change.ID,
				Entity:        entity,
				ConflictType:  ConflictUpdateUpdate,
				ServerRecord:  existing,
				ClientVersion: change.Version,
				DetectedAt:    time.Now(),
			}
			if err := s.repo.SaveConflict(ctx, conflict); err != nil {
				s.log.Warn("Failed to save conflict", "entity_id", change.ID, "error", err)
			}
			resp.Conflicts = append(resp.Conflicts, conflict)
			resp.Failed++
			continue
		}

		if existing != nil {
			change.Version = existing.Version + 1
			change.CreatedAt = existing.CreatedAt
		} else if change.Version == 0 {
			change.Version = 1
		}
		change.UpdatedAt = time.Now()

		if err := s.repo.SaveRecord(ctx, change); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, fmt.Sprintf("record %s: %v", change.ID, err))
			continue
		}
		resp.Processed++
	}

	if req.DeviceID != "" {
		s.touchDevice(ctx, req.DeviceID)
	}

	return resp, nil
}

// ProcessBatch обрабатывает офлайн-события по одному; подтверждение
// возвращается на каждое событие отдельно.
func (s *Service) ProcessBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	resp := &BatchResponse{
		Status:     "Ok",
		ServerTime: time.Now(),
		Results:    make([]*EventAck, 0, len(req.Events)),
	}

	for _, event := range req.Events {
		resp.Results = append(resp.Results, s.applyEvent(ctx, event))
	}

	if req.DeviceID != "" {
		s.touchDevice(ctx, req.DeviceID)
	}

	return resp, nil
}

func (s *Service) applyEvent(ctx context.Context, event *OfflineEvent) *EventAck {
	ack := &EventAck{EventID: event.ID, Status: "ok"}

	if err := event.Validate(); err != nil {
		ack.Status = "error"
		ack.Error = err.Error()
		return ack
	}

	existing, err := s.repo.GetRecord(ctx, event.Entity, event.EntityID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		ack.Status = "error"
		ack.Error = err.Error()
		return ack
	}

	switch event.Type {
	case EventCreate:
		duplicate := existing
		if duplicate != nil && duplicate.Deleted {
			// Удаленную запись событие создания воскрешает
			duplicate = nil
		}
		if duplicate == nil {
			duplicate = s.findQRDuplicate(ctx, event)
		}
		if duplicate != nil {
			// Независимое создание с обеих сторон
			conflict := &ConflictInfo{
				ID:           uuid.NewString(),
				EntityID:     event.EntityID,
				Entity:       event.Entity,
				ConflictType: ConflictCreateCreate,
				ServerRecord: duplicate,
				DetectedAt:   time.Now(),
			}
			if err := s.repo.SaveConflict(ctx, conflict); err != nil {
				s.log.Warn("Failed to save conflict", "entity_id", event.EntityID, "error", err)
			}
			ack.Status = "conflict"
			ack.Conflict = conflict
			return ack
		}
		rec := &EntityRecord{
			ID:        event.EntityID,
			Entity:    event.Entity,
			Data:      event.Data,
			Version:   1,
			CreatedAt: event.Timestamp,
			UpdatedAt: time.Now(),
		}
		if err := s.repo.SaveRecord(ctx, rec); err != nil {
			ack.Status = "error"
			ack.Error = err.Error()
		}

	case EventUpdate, EventMove, EventAssign:
		if existing == nil {
			ack.Status = "error"
			ack.Error = ErrRecordNotFound.Error()
			return ack
		}
		if existing.UpdatedAt.After(event.Timestamp) {
			conflictType := ConflictUpdateUpdate
			if event.Type == EventMove {
				conflictType = ConflictMoveMove
			}
			if existing.Deleted {
				conflictType = ConflictDeleteUpdate
			}
			conflict := &ConflictInfo{
				ID:           uuid.NewString(),
				EntityID:     event.EntityID,
				Entity:       event.Entity,
				ConflictType: conflictType,
				ServerRecord: existing,
				DetectedAt:   time.Now(),
			}
			if err := s.repo.SaveConflict(ctx, conflict); err != nil {
				s.log.Warn("Failed to save conflict", "entity_id", event.EntityID, "error", err)
			}
			ack.Status = "conflict"
			ack.Conflict = conflict
			return ack
		}
		for k, v := range event.Data {
			existing.Data[k] = v
		}
		existing.Version++
		existing.UpdatedAt = time.Now()
		if err := s.repo.SaveRecord(ctx, existing); err != nil {
			ack.Status = "error"
			ack.Error = err.Error()
		}

	case EventDelete:
		// Удаление несуществующей записи считаем успехом
		if existing == nil {
			return ack
		}
		if err := s.repo.SoftDeleteRecord(ctx, event.Entity, event.EntityID); err != nil {
			ack.Status = "error"
			ack.Error = err.Error()
		}
	}

	return ack
}

// findQRDuplicate ищет живую запись с тем же qr-кодом: независимые
// создания сталкиваются на уникальном поле даже при разных ID
func (s *Service) findQRDuplicate(ctx context.Context, event *OfflineEvent) *EntityRecord {
	qr := event.Metadata.QRCode
	if qr == "" {
		qr, _ = event.Data["qrCode"].(string)
	}
	if qr == "" {
		return nil
	}

	dup, err := s.repo.GetRecordByQRCode(ctx, event.Entity, qr)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			s.log.Warn("Failed to look up record by qr code", "entity", event.Entity, "error", err)
		}
		return nil
	}
	if dup.ID == event.EntityID {
		return nil
	}
	return dup
}

// GetStatus возвращает текущий статус синхронизации
func (s *Service) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	status, err := s.repo.GetSyncStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	return &GetStatusResponse{
		Status: "Ok",
		Data:   status,
	}, nil
}

// GetConflicts возвращает список неразрешенных конфликтов
func (s *Service) GetConflicts(ctx context.Context) (*GetConflictsResponse, error) {
	conflicts, err := s.repo.GetConflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get conflicts: %w", err)
	}

	return &GetConflictsResponse{
		Status: "Ok",
		Data:   conflicts,
	}, nil
}

// ResolveConflict разрешает конфликт. Повторное разрешение отвергается
// на уровне репозитория.
func (s *Service) ResolveConflict(ctx context.Context, conflictID string, req ResolveConflictRequest) (*ResolveConflictResponse, error) {
	if _, err := s.repo.GetConflictByID(ctx, conflictID); err != nil {
		return nil, fmt.Errorf("failed to get conflict: %w", err)
	}

	if err := s.repo.ResolveConflict(ctx, conflictID, req.Resolution, req.ResolvedData); err != nil {
		return nil, fmt.Errorf("failed to resolve conflict: %w", err)
	}

	return &ResolveConflictResponse{
		Status:  "Ok",
		Message: "Conflict resolved successfully",
	}, nil
}

// GetDevices возвращает список устройств
func (s *Service) GetDevices(ctx context.Context) ([]*DeviceInfo, error) {
	devices, err := s.repo.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	return devices, nil
}

// RemoveDevice удаляет устройство из списка синхронизации
func (s *Service) RemoveDevice(ctx context.Context, deviceID string) (*RemoveDeviceResponse, error) {
	if _, err := s.repo.GetDeviceInfo(ctx, deviceID); err != nil {
		return nil, fmt.Errorf("failed to get device info: %w", err)
	}

	if err := s.repo.DeleteDevice(ctx, deviceID); err != nil {
		return nil, fmt.Errorf("failed to delete device: %w", err)
	}

	return &RemoveDeviceResponse{
		Status:  "Ok",
		Message: "Device removed successfully",
	}, nil
}

// CleanupConflicts удаляет разрешенные конфликты старше TTL
func (s *Service) CleanupConflicts(ctx context.Context) (int, error) {
	return s.repo.PurgeConflictsBefore(ctx, time.Now().Add(-s.config.ConflictTTL))
}

// touchDevice регистрирует устройство и обновляет время синхронизации;
// сбои здесь вторичны и не влияют на результат запроса.
func (s *Service) touchDevice(ctx context.Context, deviceID string) {
	now := time.Now()
	err := s.repo.RegisterDevice(ctx, &DeviceInfo{
		ID:           deviceID,
		LastSyncTime: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		s.log.Warn("Failed to register device", "device_id", deviceID, "error", err)
	}
}
