package inventory

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "inventory-list",
		Method:      http.MethodGet,
		Path:        "/api/inventory/{entity}",
		Summary:     "Список сущностей инвентаря",
		Tags:        []string{"inventory"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "inventory-create",
		Method:      http.MethodPost,
		Path:        "/api/inventory/{entity}",
		Summary:     "Создать сущность",
		Tags:        []string{"inventory"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "inventory-find",
		Method:      http.MethodGet,
		Path:        "/api/inventory/{entity}/{id}",
		Summary:     "Получить сущность",
		Tags:        []string{"inventory"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "inventory-update",
		Method:      http.MethodPut,
		Path:        "/api/inventory/{entity}/{id}",
		Summary:     "Обновить сущность",
		Tags:        []string{"inventory"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "inventory-delete",
		Method:      http.MethodDelete,
		Path:        "/api/inventory/{entity}/{id}",
		Summary:     "Удалить сущность",
		Tags:        []string{"inventory"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) moveOp() huma.Operation {
	return huma.Operation{
		OperationID: "inventory-move",
		Method:      http.MethodPost,
		Path:        "/api/inventory/{entity}/{id}/move",
		Summary:     "Переместить предмет или контейнер",
		Tags:        []string{"inventory"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) qrOp() huma.Operation {
	return huma.Operation{
		OperationID: "inventory-qr",
		Method:      http.MethodGet,
		Path:        "/api/inventory/qr/{code}",
		Summary:     "Найти сущность по QR-коду",
		Tags:        []string{"inventory"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) statsOp() huma.Operation {
	return huma.Operation{
		OperationID: "inventory-stats",
		Method:      http.MethodGet,
		Path:        "/api/inventory/stats",
		Summary:     "Счетчики по сущностям",
		Tags:        []string{"inventory"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}
