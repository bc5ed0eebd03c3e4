package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/inventory"
	"invkeeper/internal/domain/sync"
)

// InventoryRepository реализация репозитория инвентаря для PostgreSQL.
// Работает поверх той же таблицы entities, что и репозиторий синхронизации:
// CRUD через REST и офлайн-синхронизация видят одни и те же данные.
type InventoryRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewInventoryRepository создает новый репозиторий инвентаря
func NewInventoryRepository(pool *pgxpool.Pool, log *slog.Logger) *InventoryRepository {
	return &InventoryRepository{
		pool: pool,
		log:  log.With("component", "inventory_repository"),
	}
}

func (r *InventoryRepository) List(ctx context.Context, entity sync.EntityType, criteria inventory.SearchCriteria) ([]*sync.EntityRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, entity, data, version, deleted, created_at, updated_at
		FROM entities
		WHERE entity = $1 AND deleted = false`)

	args := []any{entity}

	if criteria.Query != "" {
		args = append(args, "%"+criteria.Query+"%")
		n := strconv.Itoa(len(args))
		sb.WriteString(" AND (data->>'name' ILIKE $" + n + " OR data->>'description' ILIKE $" + n + ")")
	}
	if criteria.Status != "" {
		args = append(args, string(criteria.Status))
		sb.WriteString(" AND data->>'status' = $" + strconv.Itoa(len(args)))
	}
	if criteria.CategoryID != "" {
		args = append(args, criteria.CategoryID)
		sb.WriteString(" AND data->>'categoryId' = $" + strconv.Itoa(len(args)))
	}
	if criteria.LocationID != "" {
		args = append(args, criteria.LocationID)
		sb.WriteString(" AND data->>'locationId' = $" + strconv.Itoa(len(args)))
	}

	sb.WriteString(" ORDER BY updated_at DESC, id ASC")

	if criteria.Limit > 0 {
		args = append(args, criteria.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if criteria.Offset > 0 {
		args = append(args, criteria.Offset)
		sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		r.log.Error("failed to list records", "entity", entity, "error", err)
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	return scanEntityRecords(rows)
}

func (r *InventoryRepository) Get(ctx context.Context, entity sync.EntityType, id string) (*sync.EntityRecord, error) {
	const query = `
		SELECT id, entity, data, version, deleted, created_at, updated_at
		FROM entities
		WHERE entity = $1 AND id = $2`

	rec, err := scanEntityRecord(r.pool.QueryRow(ctx, query, entity, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		r.log.Error("failed to get record", "entity", entity, "id", id, "error", err)
		return nil, fmt.Errorf("get record: %w", err)
	}

	return rec, nil
}

func (r *InventoryRepository) Create(ctx context.Context, rec *sync.EntityRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal record data: %w", err)
	}

	const query = `
		INSERT INTO entities (id, entity, data, version, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Entity, data, rec.Version, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		r.log.Error("failed to create record", "entity", rec.Entity, "id", rec.ID, "error", err)
		return fmt.Errorf("create record: %w", err)
	}

	return nil
}

func (r *InventoryRepository) Update(ctx context.Context, rec *sync.EntityRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal record data: %w", err)
	}

	const query = `
		UPDATE entities
		SET data = $3, version = $4, updated_at = $5
		WHERE entity = $1 AND id = $2 AND deleted = false`

	tag, err := r.pool.Exec(ctx, query, rec.Entity, rec.ID, data, rec.Version, rec.UpdatedAt)
	if err != nil {
		r.log.Error("failed to update record", "entity", rec.Entity, "id", rec.ID, "error", err)
		return fmt.Errorf("update record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}

	return nil
}

func (r *InventoryRepository) SoftDelete(ctx context.Context, entity sync.EntityType, id string) error {
	const query = `
		UPDATE entities
		SET deleted = true, version = version + 1, updated_at = now()
		WHERE entity = $1 AND id = $2 AND deleted = false`

	tag, err := r.pool.Exec(ctx, query, entity, id)
	if err != nil {
		r.log.Error("failed to soft delete record", "entity", entity, "id", id, "error", err)
		return fmt.Errorf("soft delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}

	return nil
}

// GetByQRCode ищет запись с данным QR-кодом среди предметов и контейнеров
func (r *InventoryRepository) GetByQRCode(ctx context.Context, qrCode string) (*sync.EntityRecord, error) {
	const query = `
		SELECT id, entity, data, version, deleted, created_at, updated_at
		FROM entities
		WHERE entity IN ('item', 'container') AND deleted = false AND data->>'qrCode' = $1
		LIMIT 1`

	rec, err := scanEntityRecord(r.pool.QueryRow(ctx, query, qrCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		r.log.Error("failed to get record by qr code", "error", err)
		return nil, fmt.Errorf("get record by qr code: %w", err)
	}

	return rec, nil
}

func (r *InventoryRepository) Count(ctx context.Context, entity sync.EntityType) (int, error) {
	const query = `
		SELECT count(*)
		FROM entities
		WHERE entity = $1 AND deleted = false`

	var count int
	if err := r.pool.QueryRow(ctx, query, entity).Scan(&count); err != nil {
		r.log.Error("failed to count records", "entity", entity, "error", err)
		return 0, fmt.Errorf("count records: %w", err)
	}

	return count, nil
}
