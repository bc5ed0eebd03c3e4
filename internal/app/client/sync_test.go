package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invkeeper/internal/app/client/config"
	"invkeeper/internal/domain/sync"
)

// testSyncEnv - клиент с реальным хранилищем против тестового сервера
type testSyncEnv struct {
	service *SyncService
	storage *SQLiteStorage
	queue   *EventQueue
}

func newTestSyncEnv(t *testing.T, handler http.Handler) *testSyncEnv {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		ServerAddress:  strings.TrimPrefix(srv.URL, "http://"),
		RequestTimeout: 5 * time.Second,
		DeviceID:       "device-1",
	}

	log := testLogger()
	httpCl, err := NewHTTPClient(cfg, log)
	if err != nil {
		t.Fatalf("Ошибка создания HTTP клиента: %v", err)
	}

	storage := newTestStorage(t)
	queue := NewEventQueue(storage, log, nil)

	service := NewSyncService(storage, queue,
		NewConflictDetector(log, nil),
		NewConflictResolver(log, nil),
		httpCl, log,
		&SyncConfig{
			Enabled:      true,
			Interval:     time.Minute,
			BatchSize:    50,
			PullLimit:    200,
			BreakerTrips: 5,
			BreakerPause: time.Minute,
			RetryPolicy:  fastPolicy(0),
			AutoResolve:  true,
			DeviceID:     "device-1",
		})

	return &testSyncEnv{service: service, storage: storage, queue: queue}
}

// syncHandler минимальный сервер синхронизации для тестов
type syncHandler struct {
	// incremental по имени сущности; nil означает пустую дельту
	incremental map[sync.EntityType]*sync.IncrementalResponse

	// batch обрабатывает пакет событий; nil подтверждает все события
	batch func(req sync.BatchRequest) *sync.BatchResponse

	batchStatus int
}

func (h *syncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/health":
		w.WriteHeader(http.StatusOK)

	case r.URL.Path == "/api/sync/batch":
		if h.batchStatus != 0 {
			w.WriteHeader(h.batchStatus)
			return
		}

		var req sync.BatchRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := &sync.BatchResponse{Status: "success", ServerTime: time.Now()}
		if h.batch != nil {
			resp = h.batch(req)
		} else {
			for _, event := range req.Events {
				resp.Results = append(resp.Results, &sync.EventAck{EventID: event.ID, Status: "ok"})
			}
		}
		json.NewEncoder(w).Encode(resp)

	case strings.HasSuffix(r.URL.Path, "/incremental"):
		parts := strings.Split(r.URL.Path, "/")
		entity := sync.EntityType(parts[len(parts)-2])

		resp := h.incremental[entity]
		if resp == nil {
			resp = &sync.IncrementalResponse{Status: "success", ServerTime: time.Now()}
		}
		json.NewEncoder(w).Encode(resp)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestSyncService_PullAppliesServerChanges(t *testing.T) {
	serverTime := time.Now()
	recTime := serverTime.Add(-time.Minute)

	rec := &sync.EntityRecord{
		ID:        "item-1",
		Entity:    sync.EntityItem,
		Data:      map[string]any{"name": "Стол", "status": "available"},
		Version:   1,
		CreatedAt: recTime,
		UpdatedAt: recTime,
	}

	env := newTestSyncEnv(t, &syncHandler{
		incremental: map[sync.EntityType]*sync.IncrementalResponse{
			sync.EntityItem: {
				Status:     "success",
				Added:      []*sync.EntityRecord{rec},
				Checksum:   sync.Checksum([]sync.ChecksumPair{{ID: "item-1", UpdatedAt: recTime}}),
				ServerTime: serverTime,
			},
		},
	})

	result, err := env.service.Sync(context.Background())
	if err != nil {
		t.Fatalf("Ошибка синхронизации: %v", err)
	}

	if !result.Success {
		t.Fatalf("Синхронизация должна быть успешной: %+v", result.Errors)
	}
	if result.Downloaded != 1 {
		t.Errorf("Ожидалась одна загруженная запись, получено: %d", result.Downloaded)
	}
	if len(result.Resynced) != 0 {
		t.Errorf("Контрольные суммы совпадают, сброс не ожидался: %v", result.Resynced)
	}

	snap, err := env.storage.GetSnapshot(sync.EntityItem, "item-1")
	if err != nil {
		t.Fatalf("Снапшот должен появиться: %v", err)
	}
	if snap.Data["name"] != "Стол" {
		t.Errorf("Данные снапшота: %v", snap.Data)
	}
	if snap.Dirty {
		t.Error("Серверная запись не должна быть dirty")
	}

	cp, err := env.storage.GetCheckpoint(sync.EntityItem)
	if err != nil {
		t.Fatalf("Ошибка чтения чекпоинта: %v", err)
	}
	if cp.LastSyncTimestamp.Before(recTime) {
		t.Errorf("Чекпоинт должен продвинуться: %v", cp.LastSyncTimestamp)
	}
	if cp.SyncVersion != 1 {
		t.Errorf("Версия синхронизации должна вырасти: %d", cp.SyncVersion)
	}
}

func TestSyncService_PushMarksEventsSynced(t *testing.T) {
	env := newTestSyncEnv(t, &syncHandler{})

	event, err := env.queue.Enqueue(newTestEvent(sync.EventCreate, sync.EntityItem, "item-1",
		map[string]any{"name": "Стол", "status": "available"}))
	if err != nil {
		t.Fatalf("Ошибка постановки в очередь: %v", err)
	}
	if err := env.storage.SaveSnapshot(&Snapshot{
		ID:        "item-1",
		Entity:    sync.EntityItem,
		Data:      event.Data,
		Version:   1,
		Dirty:     true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Ошибка сохранения снапшота: %v", err)
	}

	result, err := env.service.Sync(context.Background())
	if err != nil {
		t.Fatalf("Ошибка синхронизации: %v", err)
	}

	if result.Uploaded != 1 {
		t.Errorf("Ожидалось одно отправленное событие, получено: %d", result.Uploaded)
	}

	stored, err := env.storage.GetEvent(event.ID)
	if err != nil {
		t.Fatalf("Ошибка чтения события: %v", err)
	}
	if stored.Status != sync.StatusSynced {
		t.Errorf("Событие должно стать synced, получено: %s", stored.Status)
	}

	snap, err := env.storage.GetSnapshot(sync.EntityItem, "item-1")
	if err != nil {
		t.Fatalf("Ошибка чтения снапшота: %v", err)
	}
	if snap.Dirty {
		t.Error("Подтвержденный снапшот должен стать чистым")
	}
}

func TestSyncService_ConflictMergedAndPushed(t *testing.T) {
	// Локально предмет зарезервировали, на сервере успели продать:
	// после слияния побеждает sold
	serverTime := time.Now()

	serverRec := &sync.EntityRecord{
		ID:        "item-1",
		Entity:    sync.EntityItem,
		Data:      map[string]any{"name": "Стол", "status": "sold"},
		Version:   2,
		CreatedAt: serverTime.Add(-time.Hour),
		UpdatedAt: serverTime,
	}

	env := newTestSyncEnv(t, &syncHandler{
		incremental: map[sync.EntityType]*sync.IncrementalResponse{
			sync.EntityItem: {
				Status:     "success",
				Updated:    []*sync.EntityRecord{serverRec},
				ServerTime: serverTime,
			},
		},
	})

	if err := env.storage.SaveSnapshot(&Snapshot{
		ID:        "item-1",
		Entity:    sync.EntityItem,
		Data:      map[string]any{"name": "Стол", "status": "reserved"},
		Version:   1,
		Dirty:     true,
		CreatedAt: serverTime.Add(-time.Hour),
		UpdatedAt: serverTime.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Ошибка сохранения снапшота: %v", err)
	}

	event := newTestEvent(sync.EventUpdate, sync.EntityItem, "item-1", map[string]any{"status": "reserved"})
	event.Timestamp = serverTime.Add(-time.Minute)
	event.OriginalData = map[string]any{"status": "available"}
	if _, err := env.queue.Enqueue(event); err != nil {
		t.Fatalf("Ошибка постановки в очередь: %v", err)
	}

	result, err := env.service.Sync(context.Background())
	if err != nil {
		t.Fatalf("Ошибка синхронизации: %v", err)
	}

	if result.Conflicts != 1 {
		t.Errorf("Ожидался один конфликт, получено: %d", result.Conflicts)
	}
	if result.Resolved != 1 {
		t.Errorf("Конфликт должен разрешиться автоматически: %d", result.Resolved)
	}
	if result.Manual != 0 {
		t.Errorf("Ручных конфликтов не ожидалось: %d", result.Manual)
	}

	// Статус продажи необратим
	snap, err := env.storage.GetSnapshot(sync.EntityItem, "item-1")
	if err != nil {
		t.Fatalf("Ошибка чтения снапшота: %v", err)
	}
	if snap.Data["status"] != "sold" {
		t.Errorf("После слияния ожидался sold, получено: %v", snap.Data["status"])
	}

	conflicts, err := env.storage.ListConflicts(false)
	if err != nil {
		t.Fatalf("Ошибка чтения конфликтов: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("Конфликт должен быть сохранен: %d", len(conflicts))
	}
	if conflicts[0].Resolution != sync.ResolutionMerged {
		t.Errorf("Ожидалось merged, получено: %s", conflicts[0].Resolution)
	}
}

func TestSyncService_ManualConflictFreezesEvent(t *testing.T) {
	// Расхождение qrCode автоматика не разрешает
	serverTime := time.Now()

	serverRec := &sync.EntityRecord{
		ID:        "item-1",
		Entity:    sync.EntityItem,
		Data:      map[string]any{"name": "Стол", "qrCode": "QR-SERVER"},
		Version:   2,
		CreatedAt: serverTime.Add(-time.Hour),
		UpdatedAt: serverTime,
	}

	env := newTestSyncEnv(t, &syncHandler{
		incremental: map[sync.EntityType]*sync.IncrementalResponse{
			sync.EntityItem: {
				Status:     "success",
				Updated:    []*sync.EntityRecord{serverRec},
				ServerTime: serverTime,
			},
		},
	})

	event := newTestEvent(sync.EventUpdate, sync.EntityItem, "item-1", map[string]any{"qrCode": "QR-LOCAL"})
	event.Timestamp = serverTime.Add(-time.Minute)
	event.OriginalData = map[string]any{"qrCode": "QR-OLD"}
	queued, err := env.queue.Enqueue(event)
	if err != nil {
		t.Fatalf("Ошибка постановки в очередь: %v", err)
	}

	result, err := env.service.Sync(context.Background())
	if err != nil {
		t.Fatalf("Ошибка синхронизации: %v", err)
	}

	if result.Manual != 1 {
		t.Errorf("Ожидался один ручной конфликт: %d", result.Manual)
	}
	if result.Uploaded != 0 {
		t.Errorf("Замершее событие не должно отправляться: %d", result.Uploaded)
	}

	stored, err := env.storage.GetEvent(queued.ID)
	if err != nil {
		t.Fatalf("Ошибка чтения события: %v", err)
	}
	if stored.Status != sync.StatusConflict {
		t.Errorf("Событие должно замереть в conflict, получено: %s", stored.Status)
	}
}

func TestSyncService_DuplicateCreateResolvedToServer(t *testing.T) {
	// Один и тот же предмет создали на двух устройствах под разными ID:
	// столкновение на qr-коде, серверная запись остается, дубль снимается
	serverTime := time.Now()

	serverRec := &sync.EntityRecord{
		ID:        "item-server",
		Entity:    sync.EntityItem,
		Data:      map[string]any{"name": "Стол офисный", "qrCode": "QR-001"},
		Version:   1,
		CreatedAt: serverTime.Add(-time.Hour),
		UpdatedAt: serverTime.Add(-time.Hour),
	}

	env := newTestSyncEnv(t, &syncHandler{
		incremental: map[sync.EntityType]*sync.IncrementalResponse{
			sync.EntityItem: {
				Status:     "success",
				Added:      []*sync.EntityRecord{serverRec},
				ServerTime: serverTime,
			},
		},
	})

	if err := env.storage.SaveSnapshot(&Snapshot{
		ID:        "item-local",
		Entity:    sync.EntityItem,
		Data:      map[string]any{"name": "Стол офисный", "qrCode": "QR-001"},
		Version:   0,
		Dirty:     true,
		CreatedAt: serverTime.Add(-time.Minute),
		UpdatedAt: serverTime.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("Ошибка сохранения снапшота: %v", err)
	}

	event := newTestEvent(sync.EventCreate, sync.EntityItem, "item-local",
		map[string]any{"name": "Стол офисный", "qrCode": "QR-001"})
	event.Timestamp = serverTime.Add(-time.Minute)
	event.Metadata.QRCode = "QR-001"
	queued, err := env.queue.Enqueue(event)
	if err != nil {
		t.Fatalf("Ошибка постановки в очередь: %v", err)
	}

	result, err := env.service.Sync(context.Background())
	if err != nil {
		t.Fatalf("Ошибка синхронизации: %v", err)
	}

	if result.Conflicts != 1 {
		t.Errorf("Ожидался один конфликт, получено: %d", result.Conflicts)
	}
	if result.Resolved != 1 {
		t.Errorf("Дубль должен сняться автоматически: %d", result.Resolved)
	}
	if result.Uploaded != 0 {
		t.Errorf("Снятое событие не должно отправляться: %d", result.Uploaded)
	}

	stored, err := env.storage.GetEvent(queued.ID)
	if err != nil {
		t.Fatalf("Ошибка чтения события: %v", err)
	}
	if stored.Status != sync.StatusSynced {
		t.Errorf("Событие дубля должно стать synced, получено: %s", stored.Status)
	}

	if _, err := env.storage.GetSnapshot(sync.EntityItem, "item-server"); err != nil {
		t.Errorf("Серверная запись должна остаться: %v", err)
	}
	if _, err := env.storage.GetSnapshot(sync.EntityItem, "item-local"); !errors.Is(err, sync.ErrRecordNotFound) {
		t.Errorf("Локальный дубль должен быть удален, получено: %v", err)
	}
}

func TestSyncService_ChecksumDriftResetsCheckpoint(t *testing.T) {
	env := newTestSyncEnv(t, &syncHandler{
		incremental: map[sync.EntityType]*sync.IncrementalResponse{
			sync.EntityItem: {
				Status:     "success",
				Checksum:   "ffffffffffffffff",
				ServerTime: time.Now(),
			},
		},
	})

	result, err := env.service.Sync(context.Background())
	if err != nil {
		t.Fatalf("Ошибка синхронизации: %v", err)
	}

	if len(result.Resynced) != 1 || result.Resynced[0] != string(sync.EntityItem) {
		t.Errorf("Ожидался сброс только по item, получено: %v", result.Resynced)
	}

	// Сброшенный чекпоинт означает полную синхронизацию в следующем цикле
	cp, err := env.storage.GetCheckpoint(sync.EntityItem)
	if err != nil {
		t.Fatalf("Ошибка чтения чекпоинта: %v", err)
	}
	if !cp.LastSyncTimestamp.IsZero() {
		t.Errorf("Чекпоинт должен быть сброшен: %v", cp.LastSyncTimestamp)
	}
}

func TestSyncService_PushFailureReturnsEventsToQueue(t *testing.T) {
	env := newTestSyncEnv(t, &syncHandler{batchStatus: http.StatusInternalServerError})

	event, err := env.queue.Enqueue(newTestEvent(sync.EventCreate, sync.EntityItem, "item-1",
		map[string]any{"name": "Стол"}))
	if err != nil {
		t.Fatalf("Ошибка постановки в очередь: %v", err)
	}

	result, err := env.service.Sync(context.Background())
	if err != nil {
		t.Fatalf("Сбой отправки не должен валить весь цикл: %v", err)
	}
	if result.Success {
		t.Error("Цикл с ошибками не может быть успешным")
	}

	stored, err := env.storage.GetEvent(event.ID)
	if err != nil {
		t.Fatalf("Ошибка чтения события: %v", err)
	}
	if stored.Status != sync.StatusPending {
		t.Errorf("Событие должно вернуться в pending, получено: %s", stored.Status)
	}
	if stored.SyncAttempts != 1 {
		t.Errorf("Попытка должна быть зафиксирована: %d", stored.SyncAttempts)
	}
}

func TestSyncService_RejectsConcurrentSync(t *testing.T) {
	env := newTestSyncEnv(t, &syncHandler{})

	release := make(chan struct{})
	env.service.Subscribe(func(state SyncState) {
		if state == StatePulling {
			select {
			case <-release:
			default:
				close(release)
				if _, err := env.service.Sync(context.Background()); err != sync.ErrSyncInProgress {
					t.Errorf("Ожидалась ErrSyncInProgress, получено: %v", err)
				}
			}
		}
	})

	if _, err := env.service.Sync(context.Background()); err != nil {
		t.Fatalf("Ошибка синхронизации: %v", err)
	}
}

func TestSyncService_MinSyncGap(t *testing.T) {
	env := newTestSyncEnv(t, &syncHandler{})
	env.service.config.MinSyncGap = time.Minute

	if _, err := env.service.Sync(context.Background()); err != nil {
		t.Fatalf("Первая синхронизация должна пройти: %v", err)
	}

	if _, err := env.service.Sync(context.Background()); err == nil {
		t.Error("Повтор раньше минимального зазора должен отклоняться")
	}

	// Принудительная синхронизация игнорирует зазор
	if _, err := env.service.ForceSync(context.Background()); err != nil {
		t.Errorf("Принудительная синхронизация должна пройти: %v", err)
	}
}
