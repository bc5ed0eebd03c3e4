package client

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/sync"
)

// DetectorConfig конфигурация детектора конфликтов
type DetectorConfig struct {
	// StaleDeleteCutoff - если серверная правка легла позже локального
	// удаления больше чем на этот срок, удаление отбрасывается молча:
	// пользователь удалял заведомо устаревшую версию.
	StaleDeleteCutoff time.Duration `json:"stale_delete_cutoff"`

	// Пороги похожести имен для CREATE_CREATE
	AutoMergeSimilarity float64 `json:"auto_merge_similarity"`
	ManualSimilarity    float64 `json:"manual_similarity"`
}

// ConflictDetector сопоставляет ожидающие события с изменениями сервера
type ConflictDetector struct {
	log    *slog.Logger
	config *DetectorConfig
}

// DetectionResult итог проверки одного события
type DetectionResult struct {
	Conflict     *sync.ConflictRecord
	DiscardEvent bool
}

// NewConflictDetector создает детектор конфликтов
func NewConflictDetector(log *slog.Logger, config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = &DetectorConfig{
			StaleDeleteCutoff:   24 * time.Hour,
			AutoMergeSimilarity: 0.9,
			ManualSimilarity:    0.7,
		}
	}

	return &ConflictDetector{
		log:    log,
		config: config,
	}
}

// Detect проверяет ожидающие события против свежих серверных записей.
// Серверные записи индексируются по ID; создания дополнительно
// сопоставляются по qr-коду, чтобы ловить независимые записи с разными
// идентификаторами, но одним кодом.
func (d *ConflictDetector) Detect(events []*sync.OfflineEvent, serverRecords []*sync.EntityRecord) map[string]*DetectionResult {
	serverMap := make(map[string]*sync.EntityRecord, len(serverRecords))
	qrMap := make(map[string]*sync.EntityRecord)
	for _, rec := range serverRecords {
		serverMap[string(rec.Entity)+":"+rec.ID] = rec
		if rec.Deleted {
			continue
		}
		if qr, ok := rec.Data["qrCode"].(string); ok && qr != "" {
			qrMap[string(rec.Entity)+":"+qr] = rec
		}
	}

	results := make(map[string]*DetectionResult)

	for _, event := range events {
		serverRec, exists := serverMap[string(event.Entity)+":"+event.EntityID]
		if !exists {
			if event.Type == sync.EventCreate {
				if result := d.checkQRCollision(event, qrMap); result != nil {
					results[event.ID] = result
				}
			}
			continue
		}

		if result := d.check(event, serverRec); result != nil {
			results[event.ID] = result
		}
	}

	if len(results) > 0 {
		d.log.Debug("Обнаружены конфликты", "count", len(results))
	}

	return results
}

// check классифицирует расхождение одного события с серверной записью
func (d *ConflictDetector) check(event *sync.OfflineEvent, serverRec *sync.EntityRecord) *DetectionResult {
	// Сервер не менял запись после локальной правки: конфликта нет
	if !serverRec.UpdatedAt.After(event.Timestamp) && !serverRec.Deleted {
		return nil
	}

	switch event.Type {
	case sync.EventDelete:
		if serverRec.Deleted {
			// Обе стороны удалили: событие больше не нужно
			return &DetectionResult{DiscardEvent: true}
		}
		// Сервер правил запись сильно позже удаления: такое удаление
		// отбрасываем без вопросов. Сравниваются сами метки событий,
		// момент выхода устройства в сеть роли не играет.
		if serverRec.UpdatedAt.Sub(event.Timestamp) > d.config.StaleDeleteCutoff {
			d.log.Info("Устаревшее удаление отброшено",
				"entity", event.Entity,
				"entity_id", event.EntityID)
			return &DetectionResult{DiscardEvent: true}
		}
		return &DetectionResult{Conflict: d.newConflict(sync.ConflictDeleteUpdate, event, serverRec, 0)}

	case sync.EventCreate:
		if serverRec.Deleted {
			// Сервер уже удалил одноименную запись: локальное создание проходит
			return nil
		}
		similarity := nameSimilarity(event.Data, serverRec.Data)
		if similarity < d.config.ManualSimilarity {
			// Слишком разные, считаем независимыми записями
			return nil
		}
		return &DetectionResult{Conflict: d.newConflict(sync.ConflictCreateCreate, event, serverRec, similarity)}

	case sync.EventMove:
		if movedDifferently(event.Data, serverRec.Data) {
			return &DetectionResult{Conflict: d.newConflict(sync.ConflictMoveMove, event, serverRec, 0)}
		}
		return nil

	case sync.EventUpdate, sync.EventAssign:
		if serverRec.Deleted {
			return &DetectionResult{Conflict: d.newConflict(sync.ConflictDeleteUpdate, event, serverRec, 0)}
		}
		if !touchesSameFields(event, serverRec) {
			// Правки не пересекаются по полям: безопасно применить обе
			return nil
		}
		return &DetectionResult{Conflict: d.newConflict(sync.ConflictUpdateUpdate, event, serverRec, 0)}
	}

	return nil
}

// checkQRCollision ловит независимые создания, столкнувшиеся на
// уникальном qr-коде. Похожесть записывается в конфликт: по ней
// резолвер решает, снять ли локальный дубль автоматически.
func (d *ConflictDetector) checkQRCollision(event *sync.OfflineEvent, qrMap map[string]*sync.EntityRecord) *DetectionResult {
	qr := event.Metadata.QRCode
	if qr == "" {
		qr, _ = event.Data["qrCode"].(string)
	}
	if qr == "" {
		return nil
	}

	serverRec, ok := qrMap[string(event.Entity)+":"+qr]
	if !ok || serverRec.ID == event.EntityID {
		return nil
	}

	similarity := nameSimilarity(event.Data, serverRec.Data)
	return &DetectionResult{Conflict: d.newConflict(sync.ConflictCreateCreate, event, serverRec, similarity)}
}

func (d *ConflictDetector) newConflict(typ sync.ConflictType, event *sync.OfflineEvent, serverRec *sync.EntityRecord, similarity float64) *sync.ConflictRecord {
	return &sync.ConflictRecord{
		ID:              uuid.NewString(),
		Type:            typ,
		Entity:          event.Entity,
		EntityID:        event.EntityID,
		EventID:         event.ID,
		LocalData:       event.Data,
		ServerData:      serverRec.Data,
		LocalTimestamp:  event.Timestamp,
		ServerTimestamp: serverRec.UpdatedAt,
		DetectedAt:      time.Now(),
		Similarity:      similarity,
	}
}

// touchesSameFields проверяет, поменял ли сервер хотя бы одно поле из
// тех, что трогает событие. OriginalData хранит значения на момент
// правки: отличие от серверных значений означает пересечение.
func touchesSameFields(event *sync.OfflineEvent, serverRec *sync.EntityRecord) bool {
	if len(event.OriginalData) == 0 {
		// Базовой версии нет, перестраховываемся
		return true
	}

	for field := range event.Data {
		original, hadOriginal := event.OriginalData[field]
		server, hasServer := serverRec.Data[field]
		if !hadOriginal && !hasServer {
			continue
		}
		if hadOriginal != hasServer || !reflect.DeepEqual(original, server) {
			return true
		}
	}
	return false
}

// movedDifferently сравнивает целевые контейнер и локацию
func movedDifferently(local, server map[string]any) bool {
	for _, field := range []string{"containerId", "locationId"} {
		lv, lok := local[field]
		sv, sok := server[field]
		if lok && sok && lv != sv {
			return true
		}
	}
	return false
}

// nameSimilarity похожесть имен двух записей по Левенштейну,
// нормированная в [0, 1]
func nameSimilarity(local, server map[string]any) float64 {
	localName, _ := local["name"].(string)
	serverName, _ := server["name"].(string)
	if localName == "" || serverName == "" {
		return 0
	}

	distance := levenshtein(localName, serverName)
	maxLen := len([]rune(localName))
	if l := len([]rune(serverName)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}

	return 1 - float64(distance)/float64(maxLen)
}

// levenshtein редакционное расстояние между строками
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
