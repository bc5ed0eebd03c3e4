package inventory

import (
	"context"

	"invkeeper/internal/domain/sync"
)

// Repository интерфейс серверного хранилища инвентаря
type Repository interface {
	// Базовые CRUD операции
	List(ctx context.Context, entity sync.EntityType, criteria SearchCriteria) ([]*sync.EntityRecord, error)
	Get(ctx context.Context, entity sync.EntityType, id string) (*sync.EntityRecord, error)
	Create(ctx context.Context, rec *sync.EntityRecord) error
	Update(ctx context.Context, rec *sync.EntityRecord) error
	SoftDelete(ctx context.Context, entity sync.EntityType, id string) error

	// Поиск
	GetByQRCode(ctx context.Context, qrCode string) (*sync.EntityRecord, error)
	Count(ctx context.Context, entity sync.EntityType) (int, error)
}
