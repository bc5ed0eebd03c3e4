package client

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/sync"
)

// SyncState фаза цикла синхронизации
type SyncState string

const (
	StateIdle       SyncState = "idle"
	StateChecking   SyncState = "checking"
	StatePulling    SyncState = "pulling"
	StateDetecting  SyncState = "detecting"
	StateResolving  SyncState = "resolving"
	StatePushing    SyncState = "pushing"
	StateFinalizing SyncState = "finalizing"
)

// SyncConfig конфигурация синхронизации
type SyncConfig struct {
	Enabled           bool          `json:"enabled"`
	Interval          time.Duration `json:"interval"`
	BatchSize         int           `json:"batch_size"`
	PullLimit         int           `json:"pull_limit"`
	MinSyncGap        time.Duration `json:"min_sync_gap"`
	BreakerTrips      int           `json:"breaker_trips"`
	BreakerRecoveries int           `json:"breaker_recoveries"`
	BreakerPause      time.Duration `json:"breaker_pause"`
	RetryPolicy       *RetryPolicy  `json:"retry_policy"`
	AutoResolve       bool          `json:"auto_resolve"`
	DeviceID          string        `json:"device_id"`
	CleanupSynced     bool          `json:"cleanup_synced"`
}

// SyncError ошибка одной операции внутри цикла
type SyncError struct {
	EventID   string    `json:"event_id,omitempty"`
	Entity    string    `json:"entity,omitempty"`
	Error     string    `json:"error"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncResult результат цикла синхронизации
type SyncResult struct {
	Success    bool          `json:"success"`
	Uploaded   int           `json:"uploaded"`
	Downloaded int           `json:"downloaded"`
	Discarded  int           `json:"discarded"`
	Conflicts  int           `json:"conflicts"`
	Resolved   int           `json:"resolved"`
	Manual     int           `json:"manual"`
	Resynced   []string      `json:"resynced,omitempty"`
	Errors     []SyncError   `json:"errors"`
	Duration   time.Duration `json:"duration"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
}

// SyncStats накопленная статистика синхронизации
type SyncStats struct {
	TotalSyncs      int       `json:"total_syncs"`
	LastSuccessful  time.Time `json:"last_successful"`
	LastFailed      time.Time `json:"last_failed"`
	TotalUploaded   int       `json:"total_uploaded"`
	TotalDownloaded int       `json:"total_downloaded"`
	TotalConflicts  int       `json:"total_conflicts"`
	TotalResolved   int       `json:"total_resolved"`
	TotalErrors     int       `json:"total_errors"`
	AvgSyncDuration float64   `json:"avg_sync_duration"`
}

// SyncListener получает уведомления о смене фазы
type SyncListener func(state SyncState)

// SyncService - оркестратор синхронизации. Один цикл: проверка условий,
// вытягивание серверных дельт, обнаружение и разрешение конфликтов,
// отправка очереди, продвижение чекпоинтов. Цикл не параллелится:
// второй запуск во время первого отклоняется.
type SyncService struct {
	storage    Storage
	queue      *EventQueue
	detector   *ConflictDetector
	resolver   *ConflictResolver
	httpClient *httpClient
	breakers   *BreakerRegistry
	log        *slog.Logger
	config     *SyncConfig

	mu        gosync.RWMutex
	state     SyncState
	isSyncing bool
	lastSync  time.Time
	stats     *SyncStats
	listeners []SyncListener
	cancel    context.CancelFunc
}

// NewSyncService создает оркестратор синхронизации
func NewSyncService(storage Storage, queue *EventQueue, detector *ConflictDetector, resolver *ConflictResolver, httpCl *httpClient, log *slog.Logger, config *SyncConfig) *SyncService {
	if config == nil {
		config = &SyncConfig{
			Enabled:           true,
			Interval:          30 * time.Second,
			BatchSize:         50,
			PullLimit:         200,
			MinSyncGap:        5 * time.Second,
			BreakerTrips:      5,
			BreakerRecoveries: 2,
			BreakerPause:      30 * time.Second,
			AutoResolve:       true,
			CleanupSynced:     true,
		}
	}
	if config.RetryPolicy == nil {
		config.RetryPolicy = DefaultRetryPolicy()
	}

	return &SyncService{
		storage:    storage,
		queue:      queue,
		detector:   detector,
		resolver:   resolver,
		httpClient: httpCl,
		breakers:   NewBreakerRegistry(config.BreakerTrips, config.BreakerRecoveries, config.BreakerPause),
		log:        log,
		config:     config,
		state:      StateIdle,
		stats:      &SyncStats{},
	}
}

// Subscribe добавляет слушателя смены фаз
func (s *SyncService) Subscribe(listener SyncListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *SyncService) setState(state SyncState) {
	s.mu.Lock()
	s.state = state
	listeners := make([]SyncListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(state)
	}
}

// State возвращает текущую фазу
func (s *SyncService) State() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsSyncing проверяет, выполняется ли синхронизация
func (s *SyncService) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// GetLastSyncTime возвращает время последней синхронизации
func (s *SyncService) GetLastSyncTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// GetStats возвращает копию статистики
func (s *SyncService) GetStats() *SyncStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	statsCopy := *s.stats
	return &statsCopy
}

// Cancel прерывает выполняющийся цикл
func (s *SyncService) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Sync запускает цикл синхронизации
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return nil, sync.ErrSyncInProgress
	}
	s.isSyncing = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.cancel = nil
		s.mu.Unlock()
		s.setState(StateIdle)
	}()

	result := &SyncResult{
		StartTime: time.Now(),
		Errors:    []SyncError{},
	}

	finish := func(err error) (*SyncResult, error) {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		result.Success = err == nil && len(result.Errors) == 0
		s.updateStats(result)

		if result.Success {
			s.log.Info("Синхронизация успешно завершена",
				"duration", result.Duration,
				"uploaded", result.Uploaded,
				"downloaded", result.Downloaded,
				"conflicts", result.Conflicts)
		} else {
			s.log.Warn("Синхронизация завершена с ошибками",
				"duration", result.Duration,
				"errors", len(result.Errors))
		}
		return result, err
	}

	// 1. Проверяем условия
	s.setState(StateChecking)
	quality, err := s.preSyncChecks(ctx)
	if err != nil {
		result.Errors = append(result.Errors, SyncError{
			Error:     err.Error(),
			Operation: "pre_sync_check",
			Timestamp: time.Now(),
		})
		return finish(err)
	}

	// 2-5. Обрабатываем сущности в порядке зависимостей
	for _, entity := range sync.AllEntities {
		if ctx.Err() != nil {
			return finish(sync.ErrSyncAborted)
		}

		if err := s.syncEntity(ctx, entity, quality, result); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, sync.ErrSyncAborted) {
				return finish(sync.ErrSyncAborted)
			}
			result.Errors = append(result.Errors, SyncError{
				Entity:    string(entity),
				Error:     err.Error(),
				Operation: "sync_entity",
				Timestamp: time.Now(),
			})
		}
	}

	// 6. Убираем подтвержденные события из журнала
	s.setState(StateFinalizing)
	if s.config.CleanupSynced {
		if removed, err := s.queue.Cleanup(); err != nil {
			s.log.Warn("Ошибка очистки журнала событий", "error", err)
		} else if removed > 0 {
			s.log.Debug("Журнал событий очищен", "removed", removed)
		}
	}

	s.mu.Lock()
	s.lastSync = time.Now()
	s.mu.Unlock()

	return finish(nil)
}

// preSyncChecks проверяет условия для синхронизации
func (s *SyncService) preSyncChecks(ctx context.Context) (NetworkQuality, error) {
	if !s.config.Enabled {
		return NetworkOffline, fmt.Errorf("синхронизация отключена")
	}

	if time.Since(s.GetLastSyncTime()) < s.config.MinSyncGap {
		return NetworkOffline, fmt.Errorf("синхронизация выполняется слишком часто")
	}

	quality := s.httpClient.NetworkQuality(ctx)
	if quality == NetworkOffline {
		return quality, fmt.Errorf("сервер недоступен")
	}

	return quality, nil
}

// syncEntity выполняет полный цикл по одной сущности
func (s *SyncService) syncEntity(ctx context.Context, entity sync.EntityType, quality NetworkQuality, result *SyncResult) error {
	// Вытягиваем серверные дельты
	s.setState(StatePulling)
	serverRecords, deleted, serverChecksum, serverTime, err := s.pull(ctx, entity)
	if err != nil {
		return err
	}

	// Сопоставляем с ожидающими событиями
	s.setState(StateDetecting)
	events, err := s.queue.Pending(0)
	if err != nil {
		return err
	}

	entityEvents := make([]*sync.OfflineEvent, 0, len(events))
	for _, event := range events {
		if event.Entity == entity {
			entityEvents = append(entityEvents, event)
		}
	}

	detections := s.detector.Detect(entityEvents, serverRecords)
	result.Conflicts += len(detections)

	// Разрешаем конфликты
	s.setState(StateResolving)
	shadowed := make(map[string]bool)
	for _, event := range entityEvents {
		detection, ok := detections[event.ID]
		if !ok {
			continue
		}

		if detection.DiscardEvent {
			if err := s.queue.MarkSynced(event); err != nil {
				return err
			}
			result.Discarded++
			continue
		}

		outcome, err := s.handleConflict(event, detection.Conflict)
		if err != nil {
			result.Errors = append(result.Errors, SyncError{
				EventID:   event.ID,
				Entity:    string(entity),
				Error:     err.Error(),
				Operation: "resolve_conflict",
				Timestamp: time.Now(),
			})
			continue
		}

		switch outcome {
		case sync.ResolutionManual:
			result.Manual++
			shadowed[event.EntityID] = true
		case sync.ResolutionServer:
			result.Resolved++
		default:
			result.Resolved++
			shadowed[event.EntityID] = true
		}
	}

	// Применяем серверные изменения к снапшотам. Записи, за которые
	// борется локальная правка, не перетираем: их судьбу решило
	// разрешение конфликта.
	downloaded, err := s.applyServerChanges(entity, serverRecords, deleted, shadowed)
	if err != nil {
		return err
	}
	result.Downloaded += downloaded

	// Отправляем очередь
	s.setState(StatePushing)
	uploaded, err := s.push(ctx, entity, quality, result)
	if err != nil {
		return err
	}
	result.Uploaded += uploaded

	// Продвигаем чекпоинт
	s.setState(StateFinalizing)
	return s.advanceCheckpoint(entity, serverChecksum, serverTime, result)
}

// pull вытягивает все страницы дельты по сущности
func (s *SyncService) pull(ctx context.Context, entity sync.EntityType) ([]*sync.EntityRecord, []string, string, time.Time, error) {
	checkpoint, err := s.storage.GetCheckpoint(entity)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}

	var records []*sync.EntityRecord
	var deleted []string
	var checksum string
	var serverTime time.Time

	since := checkpoint.LastSyncTimestamp
	for {
		var resp *sync.IncrementalResponse
		err := s.breakers.Execute(ctx, s.config.RetryPolicy, s.log, "pull_"+string(entity), func(ctx context.Context) error {
			var reqErr error
			resp, reqErr = s.httpClient.GetIncremental(ctx, entity, sync.IncrementalRequest{
				LastSyncTimestamp: since,
				LastSyncedID:      checkpoint.LastSyncedID,
				Checksum:          checkpoint.Checksum,
				Limit:             s.config.PullLimit,
				DeviceID:          s.config.DeviceID,
			})
			return reqErr
		})
		if err != nil {
			return nil, nil, "", time.Time{}, err
		}

		records = append(records, resp.Added...)
		records = append(records, resp.Updated...)
		deleted = append(deleted, resp.Deleted...)
		checksum = resp.Checksum
		serverTime = resp.ServerTime

		if !resp.HasMore {
			break
		}

		// Следующая страница начинается с последней полученной записи
		for _, rec := range records {
			if rec.UpdatedAt.After(since) {
				since = rec.UpdatedAt
			}
		}
	}

	s.log.Debug("Получены изменения с сервера",
		"entity", entity,
		"records", len(records),
		"deleted", len(deleted))

	return records, deleted, checksum, serverTime, nil
}

// handleConflict сохраняет конфликт и применяет его разрешение
func (s *SyncService) handleConflict(event *sync.OfflineEvent, conflict *sync.ConflictRecord) (sync.Resolution, error) {
	if !s.config.AutoResolve {
		conflict.Resolution = sync.ResolutionManual
	}

	resolved := conflict
	if s.config.AutoResolve {
		var err error
		resolved, err = s.resolver.Resolve(conflict)
		if err != nil {
			return "", err
		}
	}

	if err := s.storage.SaveConflict(resolved); err != nil {
		return "", err
	}

	switch resolved.Resolution {
	case sync.ResolutionManual:
		// Событие замирает до решения человека
		if err := s.queue.MarkConflict(event); err != nil {
			return "", err
		}

	case sync.ResolutionServer:
		// Серверная версия победила: локальная правка снимается
		if err := s.queue.MarkSynced(event); err != nil {
			return "", err
		}
		if resolved.Type == sync.ConflictCreateCreate {
			// Локальный дубль уступает серверной записи
			if err := s.storage.DeleteSnapshot(event.Entity, event.EntityID); err != nil {
				return "", err
			}
		}

	case sync.ResolutionLocal:
		// Локальная версия едет на сервер как есть
		break

	case sync.ResolutionMerged:
		// Слитые данные замещают данные события и уходят на сервер
		event.Data = resolved.ResolvedData
		if err := s.storage.SaveEvent(event); err != nil {
			return "", err
		}
		if err := s.applyResolvedToSnapshot(event, resolved.ResolvedData); err != nil {
			return "", err
		}
	}

	return resolved.Resolution, nil
}

func (s *SyncService) applyResolvedToSnapshot(event *sync.OfflineEvent, data map[string]any) error {
	snap, err := s.storage.GetSnapshot(event.Entity, event.EntityID)
	if err != nil {
		if errors.Is(err, sync.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	for k, v := range data {
		snap.Data[k] = v
	}
	snap.Dirty = true
	snap.UpdatedAt = time.Now()
	return s.storage.SaveSnapshot(snap)
}

// applyServerChanges применяет серверные записи к локальным снапшотам
func (s *SyncService) applyServerChanges(entity sync.EntityType, records []*sync.EntityRecord, deleted []string, shadowed map[string]bool) (int, error) {
	applied := 0

	for _, rec := range records {
		if shadowed[rec.ID] {
			continue
		}

		snap := &Snapshot{
			ID:        rec.ID,
			Entity:    entity,
			Data:      rec.Data,
			Version:   rec.Version,
			Deleted:   rec.Deleted,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		}
		if err := s.storage.SaveSnapshot(snap); err != nil {
			return applied, err
		}
		applied++
	}

	for _, id := range deleted {
		if shadowed[id] {
			continue
		}
		if err := s.storage.DeleteSnapshot(entity, id); err != nil {
			return applied, err
		}
		applied++
	}

	return applied, nil
}

// push отправляет ожидающие события сущности пакетами
func (s *SyncService) push(ctx context.Context, entity sync.EntityType, quality NetworkQuality, result *SyncResult) (int, error) {
	batchSize := BatchSizeFor(quality, s.config.BatchSize)
	if batchSize == 0 {
		return 0, nil
	}

	uploaded := 0
	for {
		events, err := s.queue.Pending(0)
		if err != nil {
			return uploaded, err
		}

		batch := make([]*sync.OfflineEvent, 0, batchSize)
		for _, event := range events {
			if event.Entity != entity {
				continue
			}
			batch = append(batch, event)
			if len(batch) >= batchSize {
				break
			}
		}
		if len(batch) == 0 {
			return uploaded, nil
		}

		for _, event := range batch {
			if err := s.queue.MarkSyncing(event); err != nil {
				return uploaded, err
			}
		}

		var resp *sync.BatchResponse
		err = s.breakers.Execute(ctx, s.config.RetryPolicy, s.log, "push_batch", func(ctx context.Context) error {
			var reqErr error
			resp, reqErr = s.httpClient.PushBatch(ctx, sync.BatchRequest{
				DeviceID: s.config.DeviceID,
				Events:   batch,
			})
			return reqErr
		})
		if err != nil {
			// Пакет не дошел: возвращаем события в очередь
			for _, event := range batch {
				if markErr := s.queue.MarkFailed(event, err); markErr != nil {
					s.log.Warn("Ошибка возврата события в очередь",
						"event_id", event.ID, "error", markErr)
				}
			}
			return uploaded, err
		}

		acks := make(map[string]*sync.EventAck, len(resp.Results))
		for _, ack := range resp.Results {
			acks[ack.EventID] = ack
		}

		for _, event := range batch {
			ack, ok := acks[event.ID]
			if !ok {
				if err := s.queue.MarkFailed(event, fmt.Errorf("сервер не подтвердил событие")); err != nil {
					return uploaded, err
				}
				continue
			}

			switch ack.Status {
			case "ok":
				if err := s.queue.MarkSynced(event); err != nil {
					return uploaded, err
				}
				if err := s.markSnapshotClean(event); err != nil {
					s.log.Warn("Ошибка обновления снапшота",
						"event_id", event.ID, "error", err)
				}
				uploaded++

			case "conflict":
				conflict := serverConflictToRecord(event, ack.Conflict)
				if err := s.storage.SaveConflict(conflict); err != nil {
					return uploaded, err
				}
				if err := s.queue.MarkConflict(event); err != nil {
					return uploaded, err
				}
				result.Conflicts++

			default:
				if err := s.queue.MarkFailed(event, errors.New(ack.Error)); err != nil {
					return uploaded, err
				}
				result.Errors = append(result.Errors, SyncError{
					EventID:   event.ID,
					Entity:    string(entity),
					Error:     ack.Error,
					Operation: "push",
					Timestamp: time.Now(),
				})
			}
		}

		if len(batch) < batchSize {
			return uploaded, nil
		}
	}
}

func (s *SyncService) markSnapshotClean(event *sync.OfflineEvent) error {
	snap, err := s.storage.GetSnapshot(event.Entity, event.EntityID)
	if err != nil {
		if errors.Is(err, sync.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	snap.Dirty = false
	return s.storage.SaveSnapshot(snap)
}

// serverConflictToRecord переводит серверный конфликт в локальную запись
func serverConflictToRecord(event *sync.OfflineEvent, info *sync.ConflictInfo) *sync.ConflictRecord {
	conflict := &sync.ConflictRecord{
		ID:             info.ID,
		Type:           info.ConflictType,
		Entity:         event.Entity,
		EntityID:       event.EntityID,
		EventID:        event.ID,
		LocalData:      event.Data,
		LocalTimestamp: event.Timestamp,
		DetectedAt:     info.DetectedAt,
	}
	if info.ServerRecord != nil {
		conflict.ServerData = info.ServerRecord.Data
		conflict.ServerTimestamp = info.ServerRecord.UpdatedAt
	}
	return conflict
}

// advanceCheckpoint двигает чекпоинт вперед и проверяет дрейф
// контрольной суммы. Чекпоинт монотонен: назад не откатывается, кроме
// явного сброса при дрейфе.
func (s *SyncService) advanceCheckpoint(entity sync.EntityType, serverChecksum string, serverTime time.Time, result *SyncResult) error {
	checkpoint, err := s.storage.GetCheckpoint(entity)
	if err != nil {
		return err
	}

	if serverTime.After(checkpoint.LastSyncTimestamp) {
		checkpoint.LastSyncTimestamp = serverTime
	}
	checkpoint.SyncVersion++
	checkpoint.Checksum = serverChecksum

	if serverChecksum != "" {
		pairs, err := s.storage.SnapshotChecksumPairs(entity)
		if err != nil {
			return err
		}
		if local := sync.Checksum(pairs); local != serverChecksum {
			// Локальное состояние разъехалось с серверным: следующий
			// цикл вытянет сущность целиком
			s.log.Warn("Дрейф контрольной суммы, чекпоинт сброшен",
				"entity", entity,
				"local", local,
				"server", serverChecksum)

			if err := s.storage.ResetCheckpoint(entity); err != nil {
				return err
			}
			result.Resynced = append(result.Resynced, string(entity))
			return nil
		}
	}

	return s.storage.SaveCheckpoint(checkpoint)
}

// updateStats обновляет накопленную статистику
func (s *SyncService) updateStats(result *SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalSyncs++

	if result.Success {
		s.stats.LastSuccessful = time.Now()
	} else {
		s.stats.LastFailed = time.Now()
	}

	s.stats.TotalUploaded += result.Uploaded
	s.stats.TotalDownloaded += result.Downloaded
	s.stats.TotalConflicts += result.Conflicts
	s.stats.TotalResolved += result.Resolved
	s.stats.TotalErrors += len(result.Errors)

	if s.stats.AvgSyncDuration == 0 {
		s.stats.AvgSyncDuration = result.Duration.Seconds()
	} else {
		s.stats.AvgSyncDuration = (s.stats.AvgSyncDuration*float64(s.stats.TotalSyncs-1) +
			result.Duration.Seconds()) / float64(s.stats.TotalSyncs)
	}
}

// ResetCheckpoints сбрасывает чекпоинты всех сущностей: следующая
// синхронизация будет полной
func (s *SyncService) ResetCheckpoints() error {
	for _, entity := range sync.AllEntities {
		if err := s.storage.ResetCheckpoint(entity); err != nil {
			return err
		}
	}
	return nil
}

// StartAutoSync запускает автоматическую синхронизацию
func (s *SyncService) StartAutoSync(ctx context.Context) {
	if !s.config.Enabled {
		s.log.Info("Автоматическая синхронизация отключена")
		return
	}

	s.log.Info("Запуск автоматической синхронизации", "interval", s.config.Interval)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Автоматическая синхронизация остановлена")
			return
		case <-ticker.C:
			if _, err := s.Sync(ctx); err != nil && !errors.Is(err, sync.ErrSyncInProgress) {
				s.log.Error("Ошибка автоматической синхронизации", "error", err)
			}
		}
	}
}

// ForceSync принудительная синхронизация без учета минимального зазора
func (s *SyncService) ForceSync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	s.lastSync = time.Time{}
	s.mu.Unlock()

	s.log.Info("Запуск принудительной синхронизации")
	return s.Sync(ctx)
}
