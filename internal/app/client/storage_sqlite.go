package client

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"invkeeper/internal/domain/sync"
)

// SQLiteStorage - локальное хранилище клиента. Четыре таблицы: снапшоты
// сущностей, журнал офлайн-событий, конфликты и чекпоинты. Журнал
// пишется до применения мутации, поэтому незавершенная работа
// переживает перезапуск процесса.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	storage := &SQLiteStorage{db: db}

	// Создаем таблицы
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT NOT NULL,
			entity TEXT NOT NULL,
			data TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			deleted BOOLEAN NOT NULL DEFAULT 0,
			dirty BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (entity, id)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_updated ON snapshots(entity, updated_at);
		CREATE INDEX IF NOT EXISTS idx_snapshots_deleted ON snapshots(deleted);

		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			entity TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			data TEXT NOT NULL,
			original_data TEXT,
			timestamp DATETIME NOT NULL,
			user_id TEXT,
			device_id TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			sync_attempts INTEGER NOT NULL DEFAULT 0,
			last_sync_attempt DATETIME,
			error_message TEXT,
			metadata TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_events_status ON events(status, timestamp);
		CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity, entity_id);

		CREATE TABLE IF NOT EXISTS conflicts (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			entity TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			event_id TEXT,
			local_data TEXT,
			server_data TEXT,
			local_timestamp DATETIME,
			server_timestamp DATETIME,
			detected_at DATETIME NOT NULL,
			similarity REAL NOT NULL DEFAULT 0,
			resolution TEXT,
			resolved_data TEXT,
			resolved_by TEXT,
			resolved_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_conflicts_entity ON conflicts(entity, entity_id);

		CREATE TABLE IF NOT EXISTS checkpoints (
			entity TEXT PRIMARY KEY,
			last_sync_timestamp DATETIME NOT NULL,
			last_synced_id TEXT,
			sync_version INTEGER NOT NULL DEFAULT 0,
			checksum TEXT
		);
	`)

	return err
}

// storageErr помечает ошибку как сбой хранилища: такие ошибки повторяемы
func storageErr(op string, err error) error {
	return &sync.StorageError{Op: op, Err: err}
}

func (s *SQLiteStorage) SaveSnapshot(snap *Snapshot) error {
	dataJSON, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO snapshots (id, entity, data, version, deleted, dirty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity, id) DO UPDATE SET
			data = excluded.data,
			version = excluded.version,
			deleted = excluded.deleted,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at
	`, snap.ID, snap.Entity, dataJSON, snap.Version, snap.Deleted, snap.Dirty,
		snap.CreatedAt.Format(time.RFC3339Nano), snap.UpdatedAt.Format(time.RFC3339Nano))

	if err != nil {
		return storageErr("save snapshot", err)
	}

	return nil
}

func (s *SQLiteStorage) GetSnapshot(entity sync.EntityType, id string) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, entity, data, version, deleted, dirty, created_at, updated_at
		FROM snapshots
		WHERE entity = ? AND id = ?
	`, entity, id)

	snap, err := scanSnapshot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, sync.ErrRecordNotFound
	}
	if err != nil {
		return nil, storageErr("get snapshot", err)
	}

	return snap, nil
}

func (s *SQLiteStorage) ListSnapshots(filter *SnapshotFilter) ([]*Snapshot, error) {
	query := "SELECT id, entity, data, version, deleted, dirty, created_at, updated_at FROM snapshots WHERE 1=1"
	args := []any{}

	if filter.Entity != "" {
		query += " AND entity = ?"
		args = append(args, filter.Entity)
	}
	if !filter.ShowDeleted {
		query += " AND deleted = 0"
	}

	query += " ORDER BY updated_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list snapshots", err)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, storageErr("scan snapshot", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

func (s *SQLiteStorage) DeleteSnapshot(entity sync.EntityType, id string) error {
	_, err := s.db.Exec("DELETE FROM snapshots WHERE entity = ? AND id = ?", entity, id)
	if err != nil {
		return storageErr("delete snapshot", err)
	}
	return nil
}

func (s *SQLiteStorage) PurgeSnapshots(entity sync.EntityType) error {
	_, err := s.db.Exec("DELETE FROM snapshots WHERE entity = ?", entity)
	if err != nil {
		return storageErr("purge snapshots", err)
	}
	return nil
}

func (s *SQLiteStorage) CountSnapshots(entity sync.EntityType) (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM snapshots WHERE entity = ? AND deleted = 0", entity).Scan(&count)
	if err != nil {
		return 0, storageErr("count snapshots", err)
	}
	return count, nil
}

// SnapshotChecksumPairs возвращает пары id:updated_at для подсчета
// контрольной суммы локального состояния сущности
func (s *SQLiteStorage) SnapshotChecksumPairs(entity sync.EntityType) ([]sync.ChecksumPair, error) {
	rows, err := s.db.Query("SELECT id, updated_at FROM snapshots WHERE entity = ? AND deleted = 0", entity)
	if err != nil {
		return nil, storageErr("checksum pairs", err)
	}
	defer rows.Close()

	var pairs []sync.ChecksumPair
	for rows.Next() {
		var pair sync.ChecksumPair
		var updatedAt string
		if err := rows.Scan(&pair.ID, &updatedAt); err != nil {
			return nil, storageErr("scan checksum pair", err)
		}
		pair.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		pairs = append(pairs, pair)
	}

	return pairs, rows.Err()
}

func (s *SQLiteStorage) SaveEvent(event *sync.OfflineEvent) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных события: %w", err)
	}
	originalJSON, err := json.Marshal(event.OriginalData)
	if err != nil {
		return fmt.Errorf("ошибка сериализации исходных данных: %w", err)
	}
	metaJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	var lastAttempt any
	if event.LastSyncAttempt != nil {
		lastAttempt = event.LastSyncAttempt.Format(time.RFC3339Nano)
	}

	_, err = s.db.Exec(`
		INSERT INTO events (id, type, entity, entity_id, data, original_data, timestamp,
		                    user_id, device_id, status, sync_attempts, last_sync_attempt,
		                    error_message, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			data = excluded.data,
			status = excluded.status,
			sync_attempts = excluded.sync_attempts,
			last_sync_attempt = excluded.last_sync_attempt,
			error_message = excluded.error_message,
			metadata = excluded.metadata
	`, event.ID, event.Type, event.Entity, event.EntityID, dataJSON, originalJSON,
		event.Timestamp.Format(time.RFC3339Nano), event.UserID, event.DeviceID,
		event.Status, event.SyncAttempts, lastAttempt, event.ErrorMessage, metaJSON)

	if err != nil {
		return storageErr("save event", err)
	}

	return nil
}

func (s *SQLiteStorage) GetEvent(id string) (*sync.OfflineEvent, error) {
	row := s.db.QueryRow(`
		SELECT id, type, entity, entity_id, data, original_data, timestamp,
		       user_id, device_id, status, sync_attempts, last_sync_attempt,
		       error_message, metadata
		FROM events WHERE id = ?
	`, id)

	event, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, sync.ErrEventNotFound
	}
	if err != nil {
		return nil, storageErr("get event", err)
	}

	return event, nil
}

func (s *SQLiteStorage) ListEvents(status sync.EventStatus, limit int) ([]*sync.OfflineEvent, error) {
	query := `
		SELECT id, type, entity, entity_id, data, original_data, timestamp,
		       user_id, device_id, status, sync_attempts, last_sync_attempt,
		       error_message, metadata
		FROM events
	`
	args := []any{}

	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	query += " ORDER BY timestamp ASC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	defer rows.Close()

	var events []*sync.OfflineEvent
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, storageErr("scan event", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// FindMergeCandidate ищет свежее ожидающее событие того же типа по той
// же сущности: повторная правка в пределах окна склеивается с ним
func (s *SQLiteStorage) FindMergeCandidate(entity sync.EntityType, entityID string, typ sync.EventType, window time.Duration) (*sync.OfflineEvent, error) {
	threshold := time.Now().Add(-window)

	row := s.db.QueryRow(`
		SELECT id, type, entity, entity_id, data, original_data, timestamp,
		       user_id, device_id, status, sync_attempts, last_sync_attempt,
		       error_message, metadata
		FROM events
		WHERE entity = ? AND entity_id = ? AND type = ? AND status = 'pending' AND timestamp > ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, entity, entityID, typ, threshold.Format(time.RFC3339Nano))

	event, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, sync.ErrEventNotFound
	}
	if err != nil {
		return nil, storageErr("find merge candidate", err)
	}

	return event, nil
}

func (s *SQLiteStorage) DeleteEvent(id string) error {
	_, err := s.db.Exec("DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return storageErr("delete event", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteEventsBefore(status sync.EventStatus, threshold time.Time) (int, error) {
	res, err := s.db.Exec("DELETE FROM events WHERE status = ? AND timestamp < ?",
		status, threshold.Format(time.RFC3339Nano))
	if err != nil {
		return 0, storageErr("delete events", err)
	}

	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (s *SQLiteStorage) CountEvents(status sync.EventStatus) (int, error) {
	query := "SELECT COUNT(*) FROM events"
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, storageErr("count events", err)
	}
	return count, nil
}

func (s *SQLiteStorage) SaveConflict(conflict *sync.ConflictRecord) error {
	localJSON, err := json.Marshal(conflict.LocalData)
	if err != nil {
		return fmt.Errorf("ошибка сериализации локальных данных: %w", err)
	}
	serverJSON, err := json.Marshal(conflict.ServerData)
	if err != nil {
		return fmt.Errorf("ошибка сериализации серверных данных: %w", err)
	}
	resolvedJSON, err := json.Marshal(conflict.ResolvedData)
	if err != nil {
		return fmt.Errorf("ошибка сериализации разрешенных данных: %w", err)
	}

	var resolvedAt any
	if conflict.ResolvedAt != nil {
		resolvedAt = conflict.ResolvedAt.Format(time.RFC3339Nano)
	}

	_, err = s.db.Exec(`
		INSERT INTO conflicts (id, type, entity, entity_id, event_id, local_data, server_data,
		                       local_timestamp, server_timestamp, detected_at, similarity,
		                       resolution, resolved_data, resolved_by, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			resolution = excluded.resolution,
			resolved_data = excluded.resolved_data,
			resolved_by = excluded.resolved_by,
			resolved_at = excluded.resolved_at
	`, conflict.ID, conflict.Type, conflict.Entity, conflict.EntityID, conflict.EventID,
		localJSON, serverJSON,
		conflict.LocalTimestamp.Format(time.RFC3339Nano),
		conflict.ServerTimestamp.Format(time.RFC3339Nano),
		conflict.DetectedAt.Format(time.RFC3339Nano),
		conflict.Similarity, conflict.Resolution, resolvedJSON, conflict.ResolvedBy, resolvedAt)

	if err != nil {
		return storageErr("save conflict", err)
	}

	return nil
}

func (s *SQLiteStorage) GetConflict(id string) (*sync.ConflictRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, type, entity, entity_id, event_id, local_data, server_data,
		       local_timestamp, server_timestamp, detected_at, similarity,
		       resolution, resolved_data, resolved_by, resolved_at
		FROM conflicts WHERE id = ?
	`, id)

	conflict, err := scanConflict(row.Scan)
	if err == sql.ErrNoRows {
		return nil, sync.ErrConflictNotFound
	}
	if err != nil {
		return nil, storageErr("get conflict", err)
	}

	return conflict, nil
}

func (s *SQLiteStorage) ListConflicts(unresolvedOnly bool) ([]*sync.ConflictRecord, error) {
	query := `
		SELECT id, type, entity, entity_id, event_id, local_data, server_data,
		       local_timestamp, server_timestamp, detected_at, similarity,
		       resolution, resolved_data, resolved_by, resolved_at
		FROM conflicts
	`
	if unresolvedOnly {
		query += " WHERE resolution IS NULL OR resolution = '' OR resolution = 'manual'"
	}
	query += " ORDER BY detected_at DESC"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, storageErr("list conflicts", err)
	}
	defer rows.Close()

	var conflicts []*sync.ConflictRecord
	for rows.Next() {
		conflict, err := scanConflict(rows.Scan)
		if err != nil {
			return nil, storageErr("scan conflict", err)
		}
		conflicts = append(conflicts, conflict)
	}

	return conflicts, rows.Err()
}

func (s *SQLiteStorage) SaveCheckpoint(cp *sync.Checkpoint) error {
	_, err := s.db.Exec(`
		INSERT INTO checkpoints (entity, last_sync_timestamp, last_synced_id, sync_version, checksum)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity) DO UPDATE SET
			last_sync_timestamp = excluded.last_sync_timestamp,
			last_synced_id = excluded.last_synced_id,
			sync_version = excluded.sync_version,
			checksum = excluded.checksum
	`, cp.Entity, cp.LastSyncTimestamp.Format(time.RFC3339Nano), cp.LastSyncedID, cp.SyncVersion, cp.Checksum)

	if err != nil {
		return storageErr("save checkpoint", err)
	}

	return nil
}

func (s *SQLiteStorage) GetCheckpoint(entity sync.EntityType) (*sync.Checkpoint, error) {
	var cp sync.Checkpoint
	var ts string

	err := s.db.QueryRow(`
		SELECT entity, last_sync_timestamp, last_synced_id, sync_version, checksum
		FROM checkpoints WHERE entity = ?
	`, entity).Scan(&cp.Entity, &ts, &cp.LastSyncedID, &cp.SyncVersion, &cp.Checksum)

	if err == sql.ErrNoRows {
		// Чекпоинта еще нет: нулевое время означает полную синхронизацию
		return &sync.Checkpoint{Entity: entity}, nil
	}
	if err != nil {
		return nil, storageErr("get checkpoint", err)
	}

	cp.LastSyncTimestamp, _ = time.Parse(time.RFC3339Nano, ts)
	return &cp, nil
}

func (s *SQLiteStorage) ResetCheckpoint(entity sync.EntityType) error {
	_, err := s.db.Exec("DELETE FROM checkpoints WHERE entity = ?", entity)
	if err != nil {
		return storageErr("reset checkpoint", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Вспомогательные функции сканирования строк

func scanSnapshot(scan func(dest ...any) error) (*Snapshot, error) {
	var snap Snapshot
	var dataJSON string
	var createdAt, updatedAt string

	if err := scan(&snap.ID, &snap.Entity, &dataJSON, &snap.Version, &snap.Deleted,
		&snap.Dirty, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(dataJSON), &snap.Data); err != nil {
		return nil, fmt.Errorf("ошибка парсинга данных: %w", err)
	}

	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	snap.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &snap, nil
}

func scanEvent(scan func(dest ...any) error) (*sync.OfflineEvent, error) {
	var event sync.OfflineEvent
	var dataJSON, originalJSON, metaJSON sql.NullString
	var timestamp string
	var lastAttempt sql.NullString
	var userID, deviceID, errorMessage sql.NullString

	if err := scan(&event.ID, &event.Type, &event.Entity, &event.EntityID,
		&dataJSON, &originalJSON, &timestamp, &userID, &deviceID,
		&event.Status, &event.SyncAttempts, &lastAttempt, &errorMessage, &metaJSON); err != nil {
		return nil, err
	}

	if dataJSON.Valid && dataJSON.String != "null" {
		if err := json.Unmarshal([]byte(dataJSON.String), &event.Data); err != nil {
			return nil, fmt.Errorf("ошибка парсинга данных события: %w", err)
		}
	}
	if originalJSON.Valid && originalJSON.String != "null" {
		if err := json.Unmarshal([]byte(originalJSON.String), &event.OriginalData); err != nil {
			return nil, fmt.Errorf("ошибка парсинга исходных данных: %w", err)
		}
	}
	if metaJSON.Valid && metaJSON.String != "null" {
		if err := json.Unmarshal([]byte(metaJSON.String), &event.Metadata); err != nil {
			return nil, fmt.Errorf("ошибка парсинга метаданных: %w", err)
		}
	}

	event.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	event.UserID = userID.String
	event.DeviceID = deviceID.String
	event.ErrorMessage = errorMessage.String

	if lastAttempt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastAttempt.String); err == nil {
			event.LastSyncAttempt = &t
		}
	}

	return &event, nil
}

func scanConflict(scan func(dest ...any) error) (*sync.ConflictRecord, error) {
	var conflict sync.ConflictRecord
	var localJSON, serverJSON, resolvedJSON sql.NullString
	var localTS, serverTS, detectedAt string
	var eventID, resolution, resolvedBy sql.NullString
	var resolvedAt sql.NullString

	if err := scan(&conflict.ID, &conflict.Type, &conflict.Entity, &conflict.EntityID,
		&eventID, &localJSON, &serverJSON, &localTS, &serverTS, &detectedAt,
		&conflict.Similarity, &resolution, &resolvedJSON, &resolvedBy, &resolvedAt); err != nil {
		return nil, err
	}

	if localJSON.Valid && localJSON.String != "null" {
		if err := json.Unmarshal([]byte(localJSON.String), &conflict.LocalData); err != nil {
			return nil, fmt.Errorf("ошибка парсинга локальных данных: %w", err)
		}
	}
	if serverJSON.Valid && serverJSON.String != "null" {
		if err := json.Unmarshal([]byte(serverJSON.String), &conflict.ServerData); err != nil {
			return nil, fmt.Errorf("ошибка парсинга серверных данных: %w", err)
		}
	}
	if resolvedJSON.Valid && resolvedJSON.String != "null" {
		if err := json.Unmarshal([]byte(resolvedJSON.String), &conflict.ResolvedData); err != nil {
			return nil, fmt.Errorf("ошибка парсинга разрешенных данных: %w", err)
		}
	}

	conflict.EventID = eventID.String
	conflict.Resolution = sync.Resolution(resolution.String)
	conflict.ResolvedBy = resolvedBy.String
	conflict.LocalTimestamp, _ = time.Parse(time.RFC3339Nano, localTS)
	conflict.ServerTimestamp, _ = time.Parse(time.RFC3339Nano, serverTS)
	conflict.DetectedAt, _ = time.Parse(time.RFC3339Nano, detectedAt)

	if resolvedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, resolvedAt.String); err == nil {
			conflict.ResolvedAt = &t
		}
	}

	return &conflict, nil
}
