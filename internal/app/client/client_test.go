package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"invkeeper/internal/app/client/config"
	"invkeeper/internal/domain/sync"
)

func newTestApp(t *testing.T, handler http.Handler) *App {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := &config.Config{
		ServerAddress:  strings.TrimPrefix(srv.URL, "http://"),
		ConfigDir:      dir,
		TokenPath:      filepath.Join(dir, "token"),
		DataPath:       filepath.Join(dir, "inventory.db"),
		RequestTimeout: 5 * time.Second,
		SyncInterval:   30,
	}

	app, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("Ошибка создания приложения: %v", err)
	}
	t.Cleanup(func() { app.Close() })

	return app
}

// seedManualConflict кладет в хранилище конфликт, ждущий решения
// человека, вместе с замершим событием
func seedManualConflict(t *testing.T, app *App) *sync.ConflictRecord {
	t.Helper()

	conflict := &sync.ConflictRecord{
		ID:              "conf-1",
		Type:            sync.ConflictUpdateUpdate,
		Entity:          sync.EntityItem,
		EntityID:        "item-1",
		EventID:         "ev-1",
		LocalData:       map[string]any{"name": "Стол локальный"},
		ServerData:      map[string]any{"name": "Стол"},
		LocalTimestamp:  time.Now(),
		ServerTimestamp: time.Now().Add(-time.Hour),
		Resolution:      sync.ResolutionManual,
		DetectedAt:      time.Now(),
	}
	if err := app.storage.SaveConflict(conflict); err != nil {
		t.Fatalf("Ошибка сохранения конфликта: %v", err)
	}

	event := newTestEvent(sync.EventUpdate, sync.EntityItem, "item-1",
		map[string]any{"name": "Стол локальный"})
	event.ID = "ev-1"
	event.Status = sync.StatusConflict
	event.Timestamp = time.Now()
	if err := app.storage.SaveEvent(event); err != nil {
		t.Fatalf("Ошибка сохранения события: %v", err)
	}

	if err := app.storage.SaveSnapshot(&Snapshot{
		ID:        "item-1",
		Entity:    sync.EntityItem,
		Data:      map[string]any{"name": "Стол"},
		Version:   2,
		Dirty:     true,
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("Ошибка сохранения снапшота: %v", err)
	}

	return conflict
}

func TestApp_ResolveConflictPushesWinner(t *testing.T) {
	var got sync.PushRequest
	app := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/health":
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/push"):
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(&sync.PushResponse{Status: "Ok", Processed: 1})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	seedManualConflict(t, app)

	if err := app.ResolveConflict(context.Background(), "conf-1", sync.ResolutionLocal, nil); err != nil {
		t.Fatalf("Ошибка разрешения конфликта: %v", err)
	}

	// Победившие данные уехали на сервер напрямую
	if len(got.Changes) != 1 {
		t.Fatalf("Ожидалась одна запись в отправке: %d", len(got.Changes))
	}
	if got.Changes[0].ID != "item-1" {
		t.Errorf("Ожидался item-1, получено: %s", got.Changes[0].ID)
	}
	if got.Changes[0].Data["name"] != "Стол локальный" {
		t.Errorf("Ожидались локальные данные: %v", got.Changes[0].Data)
	}

	// Событию больше нечего делать в очереди
	event, err := app.storage.GetEvent("ev-1")
	if err != nil {
		t.Fatalf("Ошибка чтения события: %v", err)
	}
	if event.Status != sync.StatusSynced {
		t.Errorf("Событие должно стать synced, получено: %s", event.Status)
	}

	snap, err := app.storage.GetSnapshot(sync.EntityItem, "item-1")
	if err != nil {
		t.Fatalf("Ошибка чтения снапшота: %v", err)
	}
	if snap.Data["name"] != "Стол локальный" {
		t.Errorf("Снапшот должен получить победившие данные: %v", snap.Data)
	}
	if snap.Dirty {
		t.Error("Отправленный снапшот должен быть чистым")
	}
}

func TestApp_ResolveConflictOfflineFallsBackToQueue(t *testing.T) {
	app := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	seedManualConflict(t, app)

	if err := app.ResolveConflict(context.Background(), "conf-1", sync.ResolutionLocal, nil); err != nil {
		t.Fatalf("Недоступный сервер не должен ронять разрешение: %v", err)
	}

	// Событие возвращается в очередь и уедет пакетным путем
	event, err := app.storage.GetEvent("ev-1")
	if err != nil {
		t.Fatalf("Ошибка чтения события: %v", err)
	}
	if event.Status != sync.StatusPending {
		t.Errorf("Событие должно вернуться в pending, получено: %s", event.Status)
	}
	if event.Data["name"] != "Стол локальный" {
		t.Errorf("Событие должно нести победившие данные: %v", event.Data)
	}

	snap, err := app.storage.GetSnapshot(sync.EntityItem, "item-1")
	if err != nil {
		t.Fatalf("Ошибка чтения снапшота: %v", err)
	}
	if !snap.Dirty {
		t.Error("Неотправленный снапшот должен оставаться dirty")
	}
}

func TestApp_ResolveConflictRejectsRepeat(t *testing.T) {
	app := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&sync.PushResponse{Status: "Ok", Processed: 1})
	}))

	seedManualConflict(t, app)

	if err := app.ResolveConflict(context.Background(), "conf-1", sync.ResolutionServer, nil); err != nil {
		t.Fatalf("Ошибка разрешения конфликта: %v", err)
	}

	err := app.ResolveConflict(context.Background(), "conf-1", sync.ResolutionLocal, nil)
	if !errors.Is(err, sync.ErrConflictResolved) {
		t.Errorf("Ожидалась ErrConflictResolved, получено: %v", err)
	}
}
