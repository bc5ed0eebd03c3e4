package client

import (
	"fmt"
	"reflect"
	"time"

	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/inventory"
	"invkeeper/internal/domain/sync"
)

// ResolverConfig конфигурация автоматического разрешения конфликтов
type ResolverConfig struct {
	AutoMergeSimilarity float64 `json:"auto_merge_similarity"`

	// Удаление побеждает конкурирующую правку, если та легла не позже
	// этого срока после удаления; более поздняя правка восстанавливает
	// запись
	StaleDeleteCutoff time.Duration `json:"stale_delete_cutoff"`

	// Поля, по которым при расхождении решает только человек
	UniqueFields []string `json:"unique_fields"`

	// Строковые поля, где побеждает более длинное значение
	LongerWinsFields []string `json:"longer_wins_fields"`

	// Числовые поля, где серверное значение считается истиной
	ServerWinsFields []string `json:"server_wins_fields"`
}

// ConflictResolver применяет правила слияния к обнаруженным конфликтам.
// Если ни одно правило не дает однозначного ответа, конфликт уходит на
// ручное разрешение.
type ConflictResolver struct {
	log    *slog.Logger
	config *ResolverConfig
}

// NewConflictResolver создает резолвер конфликтов
func NewConflictResolver(log *slog.Logger, config *ResolverConfig) *ConflictResolver {
	if config == nil {
		config = &ResolverConfig{
			AutoMergeSimilarity: 0.9,
			StaleDeleteCutoff:   24 * time.Hour,
			UniqueFields:        []string{"qrCode", "number"},
			LongerWinsFields:    []string{"name", "description"},
			ServerWinsFields:    []string{"sellingPrice", "purchasePrice"},
		}
	}

	return &ConflictResolver{
		log:    log,
		config: config,
	}
}

// Resolve разрешает конфликт и возвращает его с заполненным исходом.
// Resolution manual означает, что автоматика сдалась: ResolvedData
// пуст, событие остается в статусе conflict.
func (r *ConflictResolver) Resolve(conflict *sync.ConflictRecord) (*sync.ConflictRecord, error) {
	if conflict.Resolved() {
		return nil, sync.ErrConflictResolved
	}

	resolved := *conflict

	switch conflict.Type {
	case sync.ConflictUpdateUpdate:
		r.resolveFieldMerge(&resolved)

	case sync.ConflictDeleteUpdate:
		// Свежее удаление осознанно: пользователь видел близкую к
		// актуальной версию. Правка сильно позже удаления запись
		// восстанавливает.
		if conflict.ServerTimestamp.Sub(conflict.LocalTimestamp) <= r.config.StaleDeleteCutoff {
			resolved.Resolution = sync.ResolutionLocal
			resolved.ResolvedData = conflict.LocalData
		} else {
			resolved.Resolution = sync.ResolutionServer
			resolved.ResolvedData = conflict.ServerData
		}

	case sync.ConflictCreateCreate:
		if conflict.Similarity >= r.config.AutoMergeSimilarity {
			// Одна запись, созданная дважды: серверная остается,
			// локальный дубль снимается
			resolved.Resolution = sync.ResolutionServer
			resolved.ResolvedData = conflict.ServerData
		} else {
			resolved.Resolution = sync.ResolutionManual
		}

	case sync.ConflictMoveMove:
		// Побеждает более позднее перемещение
		if conflict.LocalTimestamp.After(conflict.ServerTimestamp) {
			resolved.Resolution = sync.ResolutionLocal
			resolved.ResolvedData = conflict.LocalData
		} else {
			resolved.Resolution = sync.ResolutionServer
			resolved.ResolvedData = conflict.ServerData
		}

	default:
		return nil, fmt.Errorf("неизвестный тип конфликта: %s", conflict.Type)
	}

	if resolved.Resolution != sync.ResolutionManual {
		now := time.Now()
		resolved.ResolvedAt = &now
		resolved.ResolvedBy = "auto"
	}

	r.log.Debug("Конфликт обработан",
		"conflict_id", conflict.ID,
		"type", conflict.Type,
		"resolution", resolved.Resolution)

	return &resolved, nil
}

// resolveFieldMerge сливает данные по полям. Любое поле, для которого
// правила не дают ответа, переводит весь конфликт в ручной режим.
func (r *ConflictResolver) resolveFieldMerge(conflict *sync.ConflictRecord) {
	merged := make(map[string]any, len(conflict.ServerData))
	for k, v := range conflict.ServerData {
		merged[k] = v
	}

	for field, localValue := range conflict.LocalData {
		serverValue, onServer := conflict.ServerData[field]
		if !onServer || reflect.DeepEqual(localValue, serverValue) {
			merged[field] = localValue
			continue
		}

		value, ok := r.mergeField(field, localValue, serverValue, conflict)
		if !ok {
			conflict.Resolution = sync.ResolutionManual
			conflict.ResolvedData = nil
			return
		}
		merged[field] = value
	}

	conflict.Resolution = sync.ResolutionMerged
	conflict.ResolvedData = merged
}

func (r *ConflictResolver) mergeField(field string, localValue, serverValue any, conflict *sync.ConflictRecord) (any, bool) {
	for _, unique := range r.config.UniqueFields {
		if field == unique {
			return nil, false
		}
	}

	if field == "status" {
		local, _ := localValue.(string)
		server, _ := serverValue.(string)
		status, ok := inventory.MergeStatus(inventory.ItemStatus(local), inventory.ItemStatus(server))
		if !ok {
			return nil, false
		}
		return string(status), true
	}

	for _, longer := range r.config.LongerWinsFields {
		if field == longer {
			local, lok := localValue.(string)
			server, sok := serverValue.(string)
			if !lok || !sok {
				break
			}
			if len([]rune(local)) >= len([]rune(server)) {
				return local, true
			}
			return server, true
		}
	}

	for _, serverWins := range r.config.ServerWinsFields {
		if field == serverWins {
			return serverValue, true
		}
	}

	// Последний довод: побеждает более поздняя правка
	if conflict.LocalTimestamp.After(conflict.ServerTimestamp) {
		return localValue, true
	}
	return serverValue, true
}
