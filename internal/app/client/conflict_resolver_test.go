package client

import (
	"errors"
	"testing"
	"time"

	"invkeeper/internal/domain/sync"
)

func newConflict(typ sync.ConflictType, local, server map[string]any) *sync.ConflictRecord {
	return &sync.ConflictRecord{
		ID:              "conflict-1",
		Type:            typ,
		Entity:          sync.EntityItem,
		EntityID:        "item-1",
		EventID:         "ev-1",
		LocalData:       local,
		ServerData:      server,
		LocalTimestamp:  time.Now(),
		ServerTimestamp: time.Now().Add(-time.Hour),
		DetectedAt:      time.Now(),
	}
}

func TestResolver_FieldMerge(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	conflict := newConflict(sync.ConflictUpdateUpdate,
		map[string]any{
			"name":         "Стол офисный дубовый",
			"sellingPrice": 1500.0,
		},
		map[string]any{
			"name":         "Стол",
			"sellingPrice": 2000.0,
			"description":  "Серверное описание",
		})

	resolved, err := resolver.Resolve(conflict)
	if err != nil {
		t.Fatalf("Ошибка разрешения: %v", err)
	}

	if resolved.Resolution != sync.ResolutionMerged {
		t.Fatalf("Ожидалось merged, получено: %s", resolved.Resolution)
	}
	// Более длинное имя побеждает
	if resolved.ResolvedData["name"] != "Стол офисный дубовый" {
		t.Errorf("Ожидалось локальное имя, получено: %v", resolved.ResolvedData["name"])
	}
	// Цены решает сервер
	if resolved.ResolvedData["sellingPrice"] != 2000.0 {
		t.Errorf("Ожидалась серверная цена, получено: %v", resolved.ResolvedData["sellingPrice"])
	}
	// Нетронутые серверные поля сохраняются
	if resolved.ResolvedData["description"] != "Серверное описание" {
		t.Errorf("Серверное описание потеряно: %v", resolved.ResolvedData)
	}
	if resolved.ResolvedBy != "auto" {
		t.Errorf("Ожидался автор auto, получен: %s", resolved.ResolvedBy)
	}
	if resolved.ResolvedAt == nil {
		t.Error("Время разрешения должно быть заполнено")
	}
}

func TestResolver_StatusPrecedence(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	tests := []struct {
		name   string
		local  string
		server string
		want   string
	}{
		{"sold побеждает available", "available", "sold", "sold"},
		{"sold побеждает reserved", "sold", "reserved", "sold"},
		{"reserved побеждает available", "reserved", "available", "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflict := newConflict(sync.ConflictUpdateUpdate,
				map[string]any{"status": tt.local},
				map[string]any{"status": tt.server})

			resolved, err := resolver.Resolve(conflict)
			if err != nil {
				t.Fatalf("Ошибка разрешения: %v", err)
			}
			if resolved.Resolution != sync.ResolutionMerged {
				t.Fatalf("Ожидалось merged, получено: %s", resolved.Resolution)
			}
			if resolved.ResolvedData["status"] != tt.want {
				t.Errorf("Ожидался статус %s, получен: %v", tt.want, resolved.ResolvedData["status"])
			}
		})
	}
}

func TestResolver_UnknownStatusGoesManual(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	conflict := newConflict(sync.ConflictUpdateUpdate,
		map[string]any{"status": "broken"},
		map[string]any{"status": "sold"})

	resolved, err := resolver.Resolve(conflict)
	if err != nil {
		t.Fatalf("Ошибка разрешения: %v", err)
	}
	if resolved.Resolution != sync.ResolutionManual {
		t.Errorf("Неизвестный статус должен уходить человеку, получено: %s", resolved.Resolution)
	}
}

func TestResolver_UniqueFieldGoesManual(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	conflict := newConflict(sync.ConflictUpdateUpdate,
		map[string]any{"qrCode": "QR-001", "name": "Стол офисный"},
		map[string]any{"qrCode": "QR-002", "name": "Стол"})

	resolved, err := resolver.Resolve(conflict)
	if err != nil {
		t.Fatalf("Ошибка разрешения: %v", err)
	}

	// Расхождение уникального поля отменяет слияние целиком
	if resolved.Resolution != sync.ResolutionManual {
		t.Errorf("Ожидалось manual, получено: %s", resolved.Resolution)
	}
	if resolved.ResolvedData != nil {
		t.Errorf("Частичное слияние недопустимо: %v", resolved.ResolvedData)
	}
}

func TestResolver_DeleteUpdate(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	t.Run("FreshDeleteWins", func(t *testing.T) {
		// Правка легла через полчаса после удаления: удаление осознанно
		conflict := newConflict(sync.ConflictDeleteUpdate,
			map[string]any{},
			map[string]any{"name": "Стол"})
		conflict.LocalTimestamp = time.Now().Add(-time.Hour)
		conflict.ServerTimestamp = time.Now().Add(-30 * time.Minute)

		resolved, err := resolver.Resolve(conflict)
		if err != nil {
			t.Fatalf("Ошибка разрешения: %v", err)
		}
		if resolved.Resolution != sync.ResolutionLocal {
			t.Errorf("Свежее удаление должно побеждать, получено: %s", resolved.Resolution)
		}
	})

	t.Run("StaleDeleteLosesToLaterUpdate", func(t *testing.T) {
		// Сервер правил запись спустя 25 часов после удаления
		conflict := newConflict(sync.ConflictDeleteUpdate,
			map[string]any{},
			map[string]any{"name": "Стол"})
		conflict.LocalTimestamp = time.Now().Add(-26 * time.Hour)
		conflict.ServerTimestamp = time.Now().Add(-time.Hour)

		resolved, err := resolver.Resolve(conflict)
		if err != nil {
			t.Fatalf("Ошибка разрешения: %v", err)
		}
		if resolved.Resolution != sync.ResolutionServer {
			t.Errorf("Поздняя правка должна восстанавливать запись, получено: %s", resolved.Resolution)
		}
		if resolved.ResolvedData["name"] != "Стол" {
			t.Errorf("Ожидались серверные данные: %v", resolved.ResolvedData)
		}
	})
}

func TestResolver_CreateCreate(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	t.Run("HighSimilarityKeepsServer", func(t *testing.T) {
		conflict := newConflict(sync.ConflictCreateCreate,
			map[string]any{"name": "Стол офисный"},
			map[string]any{"name": "Стол офисный", "description": "описание"})
		conflict.Similarity = 0.95

		resolved, err := resolver.Resolve(conflict)
		if err != nil {
			t.Fatalf("Ошибка разрешения: %v", err)
		}
		// Дважды созданная запись: остается серверная, дубль снимается
		if resolved.Resolution != sync.ResolutionServer {
			t.Errorf("Ожидалось server, получено: %s", resolved.Resolution)
		}
		if resolved.ResolvedData["description"] != "описание" {
			t.Errorf("Ожидались серверные данные: %v", resolved.ResolvedData)
		}
	})

	t.Run("MediumSimilarityGoesManual", func(t *testing.T) {
		conflict := newConflict(sync.ConflictCreateCreate,
			map[string]any{"name": "Стол офисный"},
			map[string]any{"name": "Стол обеденный"})
		conflict.Similarity = 0.75

		resolved, err := resolver.Resolve(conflict)
		if err != nil {
			t.Fatalf("Ошибка разрешения: %v", err)
		}
		if resolved.Resolution != sync.ResolutionManual {
			t.Errorf("Ожидалось manual, получено: %s", resolved.Resolution)
		}
	})
}

func TestResolver_MoveMoveLastWriteWins(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	t.Run("LocalNewer", func(t *testing.T) {
		conflict := newConflict(sync.ConflictMoveMove,
			map[string]any{"containerId": "box-local"},
			map[string]any{"containerId": "box-server"})
		conflict.LocalTimestamp = time.Now()
		conflict.ServerTimestamp = time.Now().Add(-time.Hour)

		resolved, err := resolver.Resolve(conflict)
		if err != nil {
			t.Fatalf("Ошибка разрешения: %v", err)
		}
		if resolved.Resolution != sync.ResolutionLocal {
			t.Errorf("Ожидалось local, получено: %s", resolved.Resolution)
		}
		if resolved.ResolvedData["containerId"] != "box-local" {
			t.Errorf("Ожидался локальный контейнер: %v", resolved.ResolvedData)
		}
	})

	t.Run("ServerNewer", func(t *testing.T) {
		conflict := newConflict(sync.ConflictMoveMove,
			map[string]any{"containerId": "box-local"},
			map[string]any{"containerId": "box-server"})
		conflict.LocalTimestamp = time.Now().Add(-time.Hour)
		conflict.ServerTimestamp = time.Now()

		resolved, err := resolver.Resolve(conflict)
		if err != nil {
			t.Fatalf("Ошибка разрешения: %v", err)
		}
		if resolved.Resolution != sync.ResolutionServer {
			t.Errorf("Ожидалось server, получено: %s", resolved.Resolution)
		}
	})
}

func TestResolver_AlreadyResolved(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	conflict := newConflict(sync.ConflictUpdateUpdate,
		map[string]any{"name": "Стол"},
		map[string]any{"name": "Стул"})
	conflict.Resolution = sync.ResolutionServer

	if _, err := resolver.Resolve(conflict); !errors.Is(err, sync.ErrConflictResolved) {
		t.Errorf("Ожидалась ErrConflictResolved, получено: %v", err)
	}
}

func TestResolver_LastWriteWinsFallback(t *testing.T) {
	resolver := NewConflictResolver(testLogger(), nil)

	// Поле без специального правила: побеждает более поздняя правка
	conflict := newConflict(sync.ConflictUpdateUpdate,
		map[string]any{"categoryId": "cat-local"},
		map[string]any{"categoryId": "cat-server"})
	conflict.LocalTimestamp = time.Now()
	conflict.ServerTimestamp = time.Now().Add(-time.Hour)

	resolved, err := resolver.Resolve(conflict)
	if err != nil {
		t.Fatalf("Ошибка разрешения: %v", err)
	}
	if resolved.Resolution != sync.ResolutionMerged {
		t.Fatalf("Ожидалось merged, получено: %s", resolved.Resolution)
	}
	if resolved.ResolvedData["categoryId"] != "cat-local" {
		t.Errorf("Ожидалось локальное значение: %v", resolved.ResolvedData)
	}
}
