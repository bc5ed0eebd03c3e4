package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invkeeper/internal/domain/sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Servicer defines the business logic for inventory operations
type Servicer interface {
	List(ctx context.Context, entity sync.EntityType, criteria SearchCriteria) (ListResponse, error)
	Create(ctx context.Context, entity sync.EntityType, data map[string]any) (*sync.EntityRecord, error)
	Find(ctx context.Context, entity sync.EntityType, id string) (Model, error)
	Update(ctx context.Context, entity sync.EntityType, id string, data map[string]any) (*sync.EntityRecord, error)
	Delete(ctx context.Context, entity sync.EntityType, id string) error
	Move(ctx context.Context, entity sync.EntityType, id, containerID, locationID string) (*sync.EntityRecord, error)
	FindByQRCode(ctx context.Context, qrCode string) (Model, error)
	Stats(ctx context.Context) (StatsResponse, error)
}

// Service реализация сервиса инвентаря
type Service struct {
	repo    Repository
	factory *Factory
	log     *slog.Logger
}

// NewService creates a new inventory service
func NewService(repo Repository, factory *Factory, log *slog.Logger) Servicer {
	return &Service{
		repo:    repo,
		factory: factory,
		log:     log.With("component", "inventory_service"),
	}
}

// List returns entities matching the criteria
func (s *Service) List(ctx context.Context, entity sync.EntityType, criteria SearchCriteria) (ListResponse, error) {
	records, err := s.repo.List(ctx, entity, criteria)
	if err != nil {
		s.log.Error("failed to list entities", "entity", entity, "error", err)
		return ListResponse{}, fmt.Errorf("list %s: %w", entity, err)
	}

	items := make([]EntityItem, len(records))
	for i, r := range records {
		items[i] = EntityItem{
			ID:        r.ID,
			Entity:    r.Entity,
			Data:      r.Data,
			Version:   r.Version,
			UpdatedAt: r.UpdatedAt,
		}
	}

	return ListResponse{
		Entities: items,
		Total:    len(items),
	}, nil
}

// Create validates and stores a new entity
func (s *Service) Create(ctx context.Context, entity sync.EntityType, data map[string]any) (*sync.EntityRecord, error) {
	if err := s.factory.ValidateData(entity, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	if err := s.checkQRCode(ctx, data, ""); err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &sync.EntityRecord{
		ID:        uuid.NewString(),
		Entity:    entity,
		Data:      data,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.log.Error("failed to create entity", "entity", entity, "error", err.Error())
		return nil, fmt.Errorf("create %s: %w", entity, err)
	}

	s.log.Info("entity created successfully", "entity", entity, "id", rec.ID)

	return rec, nil
}

// Find returns a specific entity by ID
func (s *Service) Find(ctx context.Context, entity sync.EntityType, id string) (Model, error) {
	rec, err := s.repo.Get(ctx, entity, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, sync.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		s.log.Error("failed to find entity", "entity", entity, "id", id, "error", err)
		return nil, fmt.Errorf("find %s: %w", entity, err)
	}

	if rec.Deleted {
		return nil, ErrEntityDeleted
	}

	return s.factory.Parse(entity, rec.ID, rec.Data)
}

// Update merges new field values into an existing entity
func (s *Service) Update(ctx context.Context, entity sync.EntityType, id string, data map[string]any) (*sync.EntityRecord, error) {
	rec, err := s.repo.Get(ctx, entity, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, sync.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s for update: %w", entity, err)
	}

	if rec.Deleted {
		return nil, ErrEntityDeleted
	}

	if err := s.checkQRCode(ctx, data, id); err != nil {
		return nil, err
	}

	for k, v := range data {
		rec.Data[k] = v
	}

	if err := s.factory.ValidateData(entity, rec.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	rec.Version++
	rec.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, rec); err != nil {
		s.log.Error("failed to update entity", "entity", entity, "id", id, "error", err)
		return nil, fmt.Errorf("update %s: %w", entity, err)
	}

	s.log.Info("entity updated successfully", "entity", entity, "id", id, "new_version", rec.Version)
	return rec, nil
}

// Delete marks an entity as deleted without removing it
func (s *Service) Delete(ctx context.Context, entity sync.EntityType, id string) error {
	rec, err := s.repo.Get(ctx, entity, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, sync.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get %s for delete: %w", entity, err)
	}

	if rec.Deleted {
		// Already deleted
		return nil
	}

	if err := s.repo.SoftDelete(ctx, entity, id); err != nil {
		s.log.Error("failed to delete entity", "entity", entity, "id", id, "error", err)
		return fmt.Errorf("delete %s: %w", entity, err)
	}

	s.log.Info("entity deleted", "entity", entity, "id", id)
	return nil
}

// Move переносит предмет или контейнер в другой контейнер/локацию
func (s *Service) Move(ctx context.Context, entity sync.EntityType, id, containerID, locationID string) (*sync.EntityRecord, error) {
	if entity != sync.EntityItem && entity != sync.EntityContainer {
		return nil, fmt.Errorf("%w: entity %s cannot be moved", ErrInvalidData, entity)
	}

	data := map[string]any{}
	if containerID != "" {
		data["containerId"] = containerID
	}
	if locationID != "" {
		data["locationId"] = locationID
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: move target is empty", ErrInvalidData)
	}

	return s.Update(ctx, entity, id, data)
}

// FindByQRCode ищет предмет или контейнер по QR-коду
func (s *Service) FindByQRCode(ctx context.Context, qrCode string) (Model, error) {
	rec, err := s.repo.GetByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, sync.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find by qr code: %w", err)
	}

	return s.factory.Parse(rec.Entity, rec.ID, rec.Data)
}

// Stats returns per-entity counters
func (s *Service) Stats(ctx context.Context) (StatsResponse, error) {
	response := StatsResponse{ByEntity: make(map[string]int)}

	for _, entity := range sync.AllEntities {
		count, err := s.repo.Count(ctx, entity)
		if err != nil {
			s.log.Error("failed to count entities", "entity", entity, "error", err)
			return StatsResponse{}, fmt.Errorf("count %s: %w", entity, err)
		}
		response.ByEntity[string(entity)] = count
		response.Total += count
	}

	return response, nil
}

// checkQRCode проверяет уникальность QR-кода; selfID исключает саму
// обновляемую запись из проверки.
func (s *Service) checkQRCode(ctx context.Context, data map[string]any, selfID string) error {
	qrCode := mapString(data, "qrCode")
	if qrCode == "" {
		return nil
	}

	existing, err := s.repo.GetByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, sync.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("check qr code: %w", err)
	}

	if existing != nil && existing.ID != selfID {
		return fmt.Errorf("%w: %s", ErrDuplicateQRCode, qrCode)
	}
	return nil
}
