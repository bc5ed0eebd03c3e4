package inventory

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

type ItemStatus string

const (
	StatusAvailable ItemStatus = "available"
	StatusReserved  ItemStatus = "reserved"
	StatusSold      ItemStatus = "sold"
)

// StatusPrecedence порядок старшинства статусов при слиянии: продажа
// необратима и всегда побеждает, бронь старше наличия.
var StatusPrecedence = []ItemStatus{StatusSold, StatusReserved, StatusAvailable}

func (ItemStatus) Schema() huma.Schema {
	return huma.Schema{
		Type: "string",
		Enum: []any{
			string(StatusAvailable),
			string(StatusReserved),
			string(StatusSold),
		},
		Description: "Статус предмета инвентаря",
		Examples:    []any{StatusAvailable},
	}
}

// Validate реализует интерфейс huma.Validatable.
func (s ItemStatus) Validate() error {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold:
		return nil
	}
	return fmt.Errorf("неверный статус предмета: %s", s)
}

// String возвращает строковое представление статуса.
func (s ItemStatus) String() string {
	return string(s)
}

// DisplayName возвращает человекочитаемое название статуса.
func (s ItemStatus) DisplayName() string {
	switch s {
	case StatusAvailable:
		return "В наличии"
	case StatusReserved:
		return "Забронирован"
	case StatusSold:
		return "Продан"
	default:
		return "Неизвестный статус"
	}
}

// Rank возвращает позицию статуса в порядке старшинства;
// неизвестный статус дает -1.
func (s ItemStatus) Rank() int {
	for i, st := range StatusPrecedence {
		if st == s {
			return i
		}
	}
	return -1
}

// MergeStatus выбирает победителя из двух статусов по старшинству.
// Если хотя бы один статус неизвестен, слияние невозможно: второй
// результат false означает, что решение остается за человеком.
func MergeStatus(local, server ItemStatus) (ItemStatus, bool) {
	lr, sr := local.Rank(), server.Rank()
	if lr < 0 || sr < 0 {
		return "", false
	}
	if lr <= sr {
		return local, true
	}
	return server, true
}
