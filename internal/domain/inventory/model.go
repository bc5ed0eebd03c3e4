package inventory

import (
	"time"

	"invkeeper/internal/domain/sync"
)

// Model - интерфейс доменной модели инвентаря. Каждая сущность умеет
// валидировать себя и превращаться в плоскую карту полей: в таком виде
// она живет в очереди событий и в серверном хранилище.
type Model interface {
	GetEntity() sync.EntityType
	GetID() string
	Validate() error
	ToMap() map[string]any
	FromMap(data map[string]any) error
}

// Timestamps общие временные поля сущностей
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SearchCriteria критерии поиска по сущностям
type SearchCriteria struct {
	Query      string
	Status     ItemStatus
	CategoryID string
	LocationID string
	Limit      int
	Offset     int
}

// Вспомогательные функции чтения плоской карты: после JSON-раунда
// числа приходят как float64, отсутствие ключа не считается ошибкой.

func mapString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func mapFloat(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func mapTime(data map[string]any, key string) time.Time {
	switch v := data[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func mapStrings(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
