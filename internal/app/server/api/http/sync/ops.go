package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) incrementalOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-incremental",
		Method:      http.MethodPost,
		Path:        "/api/sync/{entity}/incremental",
		Summary:     "Получить дельту по сущности",
		Description: "Возвращает записи сущности, измененные после чекпоинта клиента",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pushOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-push",
		Method:      http.MethodPost,
		Path:        "/api/sync/{entity}/push",
		Summary:     "Отправить изменения сущности",
		Description: "Применяет локальные изменения клиента с проверкой версий",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) batchOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-batch",
		Method:      http.MethodPost,
		Path:        "/api/sync/batch",
		Summary:     "Пакет офлайн-событий",
		Description: "Обрабатывает пакет офлайн-событий с по-событийными подтверждениями",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-status",
		Method:      http.MethodGet,
		Path:        "/api/sync/status",
		Summary:     "Получить статус синхронизации",
		Description: "Возвращает агрегированный статус синхронизации",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getConflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/sync/conflicts",
		Summary:     "Получить конфликты синхронизации",
		Description: "Возвращает список неразрешенных конфликтов",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resolveConflictOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-resolve-conflict",
		Method:      http.MethodPost,
		Path:        "/api/sync/conflicts/{id}/resolve",
		Summary:     "Разрешить конфликт синхронизации",
		Description: "Разрешает указанный конфликт; повторное разрешение отклоняется",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getDevicesOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-devices",
		Method:      http.MethodGet,
		Path:        "/api/sync/devices",
		Summary:     "Получить список устройств",
		Description: "Возвращает список устройств, участвующих в синхронизации",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) removeDeviceOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-remove-device",
		Method:      http.MethodDelete,
		Path:        "/api/sync/devices/{id}",
		Summary:     "Удалить устройство",
		Description: "Удаляет устройство из списка синхронизации",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
