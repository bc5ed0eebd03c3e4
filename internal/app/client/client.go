package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"invkeeper/internal/app/client/config"
	"invkeeper/internal/domain/inventory"
	"invkeeper/internal/domain/sync"
)

// App - клиентское приложение. Собирает хранилище, очередь событий,
// перехватчик мутаций и оркестратор синхронизации в одно целое.
type App struct {
	config      *config.Config
	log         *slog.Logger
	httpClient  *httpClient
	storage     Storage
	queue       *EventQueue
	interceptor *WriteInterceptor
	syncService *SyncService
	resolver    *ConflictResolver
	factory     *inventory.Factory
	state       *AppState
	mu          gosync.RWMutex
	cancel      context.CancelFunc
	wg          gosync.WaitGroup
}

// AppState хранит состояние приложения между запусками
type AppState struct {
	Initialized bool      `json:"initialized"`
	DeviceID    string    `json:"device_id"`
	LastSync    time.Time `json:"last_sync"`
	ItemsCount  int       `json:"items_count"`
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg)
	if err != nil {
		log.Warn("Не удалось загрузить состояние приложения", "error", err)
		state = &AppState{}
	}

	// Идентификатор устройства создается один раз и переживает
	// переустановки конфигурации
	if state.DeviceID == "" {
		state.DeviceID = uuid.NewString()
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = state.DeviceID
	}

	// Инициализируем HTTP клиент
	httpCl, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации HTTP клиента: %w", err)
	}

	// Инициализируем локальное хранилище
	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	factory := inventory.NewFactory()
	queue := NewEventQueue(storage, log, nil)
	detector := NewConflictDetector(log, nil)
	resolver := NewConflictResolver(log, nil)

	syncConfig := &SyncConfig{
		Enabled:           true,
		Interval:          time.Duration(cfg.SyncInterval) * time.Second,
		BatchSize:         50,
		PullLimit:         200,
		MinSyncGap:        5 * time.Second,
		BreakerTrips:      5,
		BreakerRecoveries: 2,
		BreakerPause:      30 * time.Second,
		AutoResolve:       true,
		DeviceID:          cfg.DeviceID,
		CleanupSynced:     true,
	}

	app := &App{
		config:      cfg,
		log:         log,
		httpClient:  httpCl,
		storage:     storage,
		queue:       queue,
		resolver:    resolver,
		factory:     factory,
		interceptor: NewWriteInterceptor(storage, queue, factory, log, cfg.DeviceID),
		syncService: NewSyncService(storage, queue, detector, resolver, httpCl, log, syncConfig),
		state:       state,
	}

	// Загружаем токен если он есть
	if token, err := app.GetToken(); err == nil && token != "" {
		httpCl.SetToken(token)
		log.Debug("Токен загружен из файла")
	}

	if err := app.saveState(); err != nil {
		log.Warn("Не удалось сохранить состояние приложения", "error", err)
	}

	return app, nil
}

func loadAppState(cfg *config.Config) (*AppState, error) {
	statePath := cfg.ConfigDir + "/state.json"

	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return &AppState{}, nil
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (a *App) saveState() error {
	a.mu.RLock()
	data, err := json.MarshalIndent(a.state, "", "  ")
	a.mu.RUnlock()
	if err != nil {
		return err
	}

	return os.WriteFile(a.config.ConfigDir+"/state.json", data, 0600)
}

// GetToken читает токен аутентификации из файла
func (a *App) GetToken() (string, error) {
	data, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveToken сохраняет токен аутентификации
func (a *App) SaveToken(token string) error {
	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}
	a.httpClient.SetToken(token)
	return nil
}

// IsInitialized сообщает, прошел ли клиент первоначальную настройку
func (a *App) IsInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Initialized
}

// MarkInitialized отмечает завершение первоначальной настройки
func (a *App) MarkInitialized() error {
	a.mu.Lock()
	a.state.Initialized = true
	a.mu.Unlock()
	return a.saveState()
}

// DeviceID возвращает постоянный идентификатор этого устройства
func (a *App) DeviceID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.DeviceID
}

// CheckConnection проверяет доступность сервера
func (a *App) CheckConnection(ctx context.Context) error {
	return a.httpClient.HealthCheck(ctx)
}

// IsOffline сообщает, доступен ли сервер прямо сейчас
func (a *App) IsOffline(ctx context.Context) bool {
	return a.httpClient.NetworkQuality(ctx) == NetworkOffline
}

// Interceptor возвращает перехватчик мутаций
func (a *App) Interceptor() *WriteInterceptor {
	return a.interceptor
}

// SyncService возвращает оркестратор синхронизации
func (a *App) SyncService() *SyncService {
	return a.syncService
}

// Queue возвращает очередь событий
func (a *App) Queue() *EventQueue {
	return a.queue
}

// Config возвращает конфигурацию приложения
func (a *App) Config() *config.Config {
	return a.config
}

// ListSnapshots возвращает локальные снапшоты сущности
func (a *App) ListSnapshots(entity sync.EntityType, limit, offset int) ([]*Snapshot, error) {
	return a.storage.ListSnapshots(&SnapshotFilter{
		Entity: entity,
		Limit:  limit,
		Offset: offset,
	})
}

// GetModel возвращает типизированную модель из снапшота
func (a *App) GetModel(entity sync.EntityType, id string) (inventory.Model, error) {
	snap, err := a.storage.GetSnapshot(entity, id)
	if err != nil {
		return nil, err
	}
	if snap.Deleted {
		return nil, inventory.ErrEntityDeleted
	}

	return a.factory.Parse(entity, snap.ID, snap.Data)
}

// ListConflicts возвращает конфликты, ожидающие решения
func (a *App) ListConflicts(unresolvedOnly bool) ([]*sync.ConflictRecord, error) {
	return a.storage.ListConflicts(unresolvedOnly)
}

// ResolveConflict применяет решение человека по конфликту. Повторное
// разрешение отклоняется. Победившие данные сразу уходят на сервер;
// если он недоступен, событие возвращается в очередь.
func (a *App) ResolveConflict(ctx context.Context, conflictID string, resolution sync.Resolution, mergedData map[string]any) error {
	conflict, err := a.storage.GetConflict(conflictID)
	if err != nil {
		return err
	}
	if conflict.Resolved() {
		return sync.ErrConflictResolved
	}

	now := time.Now()
	conflict.Resolution = resolution
	conflict.ResolvedAt = &now
	conflict.ResolvedBy = "user"

	var winner map[string]any
	switch resolution {
	case sync.ResolutionLocal:
		winner = conflict.LocalData
	case sync.ResolutionServer:
		winner = conflict.ServerData
	case sync.ResolutionMerged:
		if mergedData == nil {
			return fmt.Errorf("для merged нужны объединенные данные")
		}
		winner = mergedData
	default:
		return fmt.Errorf("неизвестное разрешение: %s", resolution)
	}
	conflict.ResolvedData = winner

	if err := a.storage.SaveConflict(conflict); err != nil {
		return err
	}

	directPush := false
	if resolution != sync.ResolutionServer {
		directPush = a.pushResolved(ctx, conflict)
	}

	// Будим замершее событие
	if conflict.EventID != "" {
		event, err := a.storage.GetEvent(conflict.EventID)
		if err == nil {
			if resolution == sync.ResolutionServer || directPush {
				event.Status = sync.StatusSynced
			} else {
				event.Data = winner
				event.Status = sync.StatusPending
				event.Timestamp = now
			}
			if err := a.storage.SaveEvent(event); err != nil {
				return err
			}
		} else if !errors.Is(err, sync.ErrEventNotFound) {
			return err
		}
	}

	// Обновляем снапшот победившими данными
	snap, err := a.storage.GetSnapshot(conflict.Entity, conflict.EntityID)
	if err == nil {
		for k, v := range winner {
			snap.Data[k] = v
		}
		snap.Dirty = resolution != sync.ResolutionServer && !directPush
		snap.UpdatedAt = now
		return a.storage.SaveSnapshot(snap)
	}
	if errors.Is(err, sync.ErrRecordNotFound) {
		return nil
	}
	return err
}

// pushResolved отправляет победившие данные конфликта напрямую на
// сервер. Неудача не фатальна: событие доедет пакетным путем.
func (a *App) pushResolved(ctx context.Context, conflict *sync.ConflictRecord) bool {
	var version int64
	if snap, err := a.storage.GetSnapshot(conflict.Entity, conflict.EntityID); err == nil {
		version = snap.Version
	}

	resp, err := a.httpClient.PushChanges(ctx, conflict.Entity, sync.PushRequest{
		DeviceID: a.config.DeviceID,
		Changes: []*sync.EntityRecord{{
			ID:        conflict.EntityID,
			Entity:    conflict.Entity,
			Data:      conflict.ResolvedData,
			Version:   version,
			UpdatedAt: time.Now(),
		}},
	})
	if err != nil {
		a.log.Debug("Прямая отправка разрешения не удалась",
			"conflict_id", conflict.ID, "error", err)
		return false
	}

	return resp.Processed > 0 && resp.Failed == 0
}

// RetryFailedEvents возвращает провалившиеся события в очередь
func (a *App) RetryFailedEvents() (int, error) {
	return a.queue.RetryFailed()
}

// StartBackground запускает фоновую синхронизацию и слив очереди
func (a *App) StartBackground(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.syncService.StartAutoSync(ctx)
	}()

	a.queue.StartDrain(ctx, func(ctx context.Context) error {
		_, err := a.syncService.Sync(ctx)
		return err
	})
}

// Close останавливает фоновые задачи и закрывает хранилище
func (a *App) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.queue.StopDrain()
	a.wg.Wait()

	a.mu.Lock()
	a.state.LastSync = a.syncService.GetLastSyncTime()
	a.mu.Unlock()
	if err := a.saveState(); err != nil {
		a.log.Warn("Не удалось сохранить состояние приложения", "error", err)
	}

	return a.storage.Close()
}
