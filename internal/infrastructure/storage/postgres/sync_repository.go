package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/sync"
)

// SyncRepository реализация репозитория синхронизации для PostgreSQL
type SyncRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewSyncRepository создает новый репозиторий синхронизации
func NewSyncRepository(pool *pgxpool.Pool, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		pool: pool,
		log:  log.With("component", "sync_repository"),
	}
}

const entityColumns = "id, entity, data, version, deleted, created_at, updated_at"

func (r *SyncRepository) GetChangedSince(ctx context.Context, entity sync.EntityType, since time.Time, limit int) ([]*sync.EntityRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM entities
		WHERE entity = $1 AND deleted = false AND updated_at > $2
		ORDER BY updated_at ASC, id ASC
		LIMIT $3`, entityColumns)

	rows, err := r.pool.Query(ctx, query, entity, since, limit)
	if err != nil {
		r.log.Error("failed to query changed records", "entity", entity, "error", err)
		return nil, fmt.Errorf("get changed since: %w", err)
	}
	defer rows.Close()

	return scanEntityRecords(rows)
}

func (r *SyncRepository) GetDeletedSince(ctx context.Context, entity sync.EntityType, since time.Time) ([]string, error) {
	const query = `
		SELECT id
		FROM entities
		WHERE entity = $1 AND deleted = true AND updated_at > $2
		ORDER BY updated_at ASC`

	rows, err := r.pool.Query(ctx, query, entity, since)
	if err != nil {
		r.log.Error("failed to query deleted records", "entity", entity, "error", err)
		return nil, fmt.Errorf("get deleted since: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *SyncRepository) GetRecord(ctx context.Context, entity sync.EntityType, id string) (*sync.EntityRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM entities
		WHERE entity = $1 AND id = $2`, entityColumns)

	rec, err := scanEntityRecord(r.pool.QueryRow(ctx, query, entity, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrRecordNotFound
		}
		r.log.Error("failed to get record", "entity", entity, "id", id, "error", err)
		return nil, fmt.Errorf("get record: %w", err)
	}

	return rec, nil
}

// GetRecordByQRCode ищет живую запись по qr-коду внутри сущности
func (r *SyncRepository) GetRecordByQRCode(ctx context.Context, entity sync.EntityType, qrCode string) (*sync.EntityRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM entities
		WHERE entity = $1 AND deleted = false AND data->>'qrCode' = $2`, entityColumns)

	rec, err := scanEntityRecord(r.pool.QueryRow(ctx, query, entity, qrCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrRecordNotFound
		}
		r.log.Error("failed to get record by qr code", "entity", entity, "error", err)
		return nil, fmt.Errorf("get record by qr code: %w", err)
	}

	return rec, nil
}

func (r *SyncRepository) SaveRecord(ctx context.Context, rec *sync.EntityRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal record data: %w", err)
	}

	const query = `
		INSERT INTO entities (id, entity, data, version, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity, id) DO UPDATE SET
			data = EXCLUDED.data,
			version = EXCLUDED.version,
			deleted = EXCLUDED.deleted,
			updated_at = EXCLUDED.updated_at`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Entity, data, rec.Version, rec.Deleted, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		r.log.Error("failed to save record", "entity", rec.Entity, "id", rec.ID, "error", err)
		return fmt.Errorf("save record: %w", err)
	}

	return nil
}

func (r *SyncRepository) SoftDeleteRecord(ctx context.Context, entity sync.EntityType, id string) error {
	const query = `
		UPDATE entities
		SET deleted = true, version = version + 1, updated_at = now()
		WHERE entity = $1 AND id = $2`

	tag, err := r.pool.Exec(ctx, query, entity, id)
	if err != nil {
		r.log.Error("failed to soft delete record", "entity", entity, "id", id, "error", err)
		return fmt.Errorf("soft delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrRecordNotFound
	}

	return nil
}

func (r *SyncRepository) ChecksumPairs(ctx context.Context, entity sync.EntityType) ([]sync.ChecksumPair, error) {
	const query = `
		SELECT id, updated_at
		FROM entities
		WHERE entity = $1 AND deleted = false`

	rows, err := r.pool.Query(ctx, query, entity)
	if err != nil {
		r.log.Error("failed to query checksum pairs", "entity", entity, "error", err)
		return nil, fmt.Errorf("checksum pairs: %w", err)
	}
	defer rows.Close()

	var pairs []sync.ChecksumPair
	for rows.Next() {
		var pair sync.ChecksumPair
		if err := rows.Scan(&pair.ID, &pair.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan checksum pair: %w", err)
		}
		pairs = append(pairs, pair)
	}

	return pairs, rows.Err()
}

func (r *SyncRepository) SaveConflict(ctx context.Context, conflict *sync.ConflictInfo) error {
	var serverRecord []byte
	if conflict.ServerRecord != nil {
		var err error
		serverRecord, err = json.Marshal(conflict.ServerRecord)
		if err != nil {
			return fmt.Errorf("marshal server record: %w", err)
		}
	}

	const query = `
		INSERT INTO conflicts (id, entity, entity_id, conflict_type, server_record, client_version, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		conflict.ID, conflict.Entity, conflict.EntityID, conflict.ConflictType,
		serverRecord, conflict.ClientVersion, conflict.DetectedAt)
	if err != nil {
		r.log.Error("failed to save conflict", "conflict_id", conflict.ID, "error", err)
		return fmt.Errorf("save conflict: %w", err)
	}

	return nil
}

func (r *SyncRepository) GetConflicts(ctx context.Context) ([]*sync.ConflictInfo, error) {
	const query = `
		SELECT id, entity, entity_id, conflict_type, server_record, client_version, detected_at
		FROM conflicts
		WHERE resolved_at IS NULL
		ORDER BY detected_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.log.Error("failed to query conflicts", "error", err)
		return nil, fmt.Errorf("get conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*sync.ConflictInfo
	for rows.Next() {
		conflict, err := scanConflictInfo(rows.Scan)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, conflict)
	}

	return conflicts, rows.Err()
}

func (r *SyncRepository) GetConflictByID(ctx context.Context, conflictID string) (*sync.ConflictInfo, error) {
	const query = `
		SELECT id, entity, entity_id, conflict_type, server_record, client_version, detected_at
		FROM conflicts
		WHERE id = $1 AND resolved_at IS NULL`

	conflict, err := scanConflictInfo(r.pool.QueryRow(ctx, query, conflictID).Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrConflictNotFound
		}
		r.log.Error("failed to get conflict", "conflict_id", conflictID, "error", err)
		return nil, fmt.Errorf("get conflict: %w", err)
	}

	return conflict, nil
}

func (r *SyncRepository) ResolveConflict(ctx context.Context, conflictID string, resolution sync.Resolution, resolved *sync.EntityRecord) error {
	var resolvedData []byte
	if resolved != nil {
		var err error
		resolvedData, err = json.Marshal(resolved)
		if err != nil {
			return fmt.Errorf("marshal resolved record: %w", err)
		}
	}

	const query = `
		UPDATE conflicts
		SET resolution = $2, resolved_data = $3, resolved_at = now()
		WHERE id = $1 AND resolved_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, conflictID, resolution, resolvedData)
	if err != nil {
		r.log.Error("failed to resolve conflict", "conflict_id", conflictID, "error", err)
		return fmt.Errorf("resolve conflict: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrConflictNotFound
	}

	return nil
}

func (r *SyncRepository) PurgeConflictsBefore(ctx context.Context, threshold time.Time) (int, error) {
	const query = `
		DELETE FROM conflicts
		WHERE resolved_at IS NOT NULL AND resolved_at < $1`

	tag, err := r.pool.Exec(ctx, query, threshold)
	if err != nil {
		r.log.Error("failed to purge conflicts", "error", err)
		return 0, fmt.Errorf("purge conflicts: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *SyncRepository) RegisterDevice(ctx context.Context, device *sync.DeviceInfo) error {
	const query = `
		INSERT INTO devices (id, name, last_sync_time, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			last_sync_time = EXCLUDED.last_sync_time,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query, device.ID, device.Name, device.LastSyncTime)
	if err != nil {
		r.log.Error("failed to register device", "device_id", device.ID, "error", err)
		return fmt.Errorf("register device: %w", err)
	}

	return nil
}

func (r *SyncRepository) GetDeviceInfo(ctx context.Context, deviceID string) (*sync.DeviceInfo, error) {
	const query = `
		SELECT id, name, last_sync_time, created_at, updated_at
		FROM devices
		WHERE id = $1`

	var device sync.DeviceInfo
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(
		&device.ID, &device.Name, &device.LastSyncTime, &device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sync.ErrDeviceNotFound
		}
		r.log.Error("failed to get device", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("get device: %w", err)
	}

	return &device, nil
}

func (r *SyncRepository) UpdateDeviceSyncTime(ctx context.Context, deviceID string, syncTime time.Time) error {
	const query = `
		UPDATE devices
		SET last_sync_time = $2, updated_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, deviceID, syncTime)
	if err != nil {
		r.log.Error("failed to update device sync time", "device_id", deviceID, "error", err)
		return fmt.Errorf("update device sync time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrDeviceNotFound
	}

	return nil
}

func (r *SyncRepository) ListDevices(ctx context.Context) ([]*sync.DeviceInfo, error) {
	const query = `
		SELECT id, name, last_sync_time, created_at, updated_at
		FROM devices
		ORDER BY last_sync_time DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.log.Error("failed to list devices", "error", err)
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []*sync.DeviceInfo
	for rows.Next() {
		var device sync.DeviceInfo
		if err := rows.Scan(&device.ID, &device.Name, &device.LastSyncTime,
			&device.CreatedAt, &device.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, &device)
	}

	return devices, rows.Err()
}

func (r *SyncRepository) DeleteDevice(ctx context.Context, deviceID string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM devices WHERE id = $1", deviceID)
	if err != nil {
		r.log.Error("failed to delete device", "device_id", deviceID, "error", err)
		return fmt.Errorf("delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrDeviceNotFound
	}

	return nil
}

func (r *SyncRepository) GetSyncStatus(ctx context.Context) (*sync.SyncStatus, error) {
	const query = `
		SELECT last_sync_time, total_records, device_count, sync_version, updated_at
		FROM sync_status
		WHERE id = 1`

	var status sync.SyncStatus
	err := r.pool.QueryRow(ctx, query).Scan(
		&status.LastSyncTime, &status.TotalRecords, &status.DeviceCount,
		&status.SyncVersion, &status.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Начальный статус до первой синхронизации
			return &sync.SyncStatus{}, nil
		}
		r.log.Error("failed to get sync status", "error", err)
		return nil, fmt.Errorf("get sync status: %w", err)
	}

	return &status, nil
}

func (r *SyncRepository) UpdateSyncStatus(ctx context.Context, status *sync.SyncStatus) error {
	const query = `
		INSERT INTO sync_status (id, last_sync_time, total_records, device_count, sync_version, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			last_sync_time = EXCLUDED.last_sync_time,
			total_records = EXCLUDED.total_records,
			device_count = EXCLUDED.device_count,
			sync_version = EXCLUDED.sync_version,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		status.LastSyncTime, status.TotalRecords, status.DeviceCount,
		status.SyncVersion, status.UpdatedAt)
	if err != nil {
		r.log.Error("failed to update sync status", "error", err)
		return fmt.Errorf("update sync status: %w", err)
	}

	return nil
}

func scanEntityRecord(row pgx.Row) (*sync.EntityRecord, error) {
	var rec sync.EntityRecord
	var data []byte

	if err := row.Scan(&rec.ID, &rec.Entity, &data, &rec.Version, &rec.Deleted,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return nil, fmt.Errorf("unmarshal record data: %w", err)
	}

	return &rec, nil
}

func scanEntityRecords(rows pgx.Rows) ([]*sync.EntityRecord, error) {
	var records []*sync.EntityRecord
	for rows.Next() {
		rec, err := scanEntityRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanConflictInfo(scan func(dest ...any) error) (*sync.ConflictInfo, error) {
	var conflict sync.ConflictInfo
	var serverRecord []byte

	if err := scan(&conflict.ID, &conflict.Entity, &conflict.EntityID, &conflict.ConflictType,
		&serverRecord, &conflict.ClientVersion, &conflict.DetectedAt); err != nil {
		return nil, err
	}

	if len(serverRecord) > 0 {
		conflict.ServerRecord = &sync.EntityRecord{}
		if err := json.Unmarshal(serverRecord, conflict.ServerRecord); err != nil {
			return nil, fmt.Errorf("unmarshal server record: %w", err)
		}
	}

	return &conflict, nil
}
