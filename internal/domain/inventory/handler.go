package inventory

import (
	"context"
	"errors"

	"invkeeper/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
	huma.Register(api, h.moveOp(), h.move)
	huma.Register(api, h.qrOp(), h.findByQR)
	huma.Register(api, h.statsOp(), h.stats)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	criteria := SearchCriteria{
		Query:      input.Query,
		Status:     ItemStatus(input.Status),
		CategoryID: input.CategoryID,
		LocationID: input.LocationID,
		Limit:      input.Limit,
		Offset:     input.Offset,
	}

	entities, err := h.service.List(ctx, sync.EntityType(input.Entity), criteria)
	if err != nil {
		return nil, err
	}

	return &listOutput{
		Body: entities,
	}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*entityOutput, error) {
	rec, err := h.service.Create(ctx, sync.EntityType(input.Entity), input.Body)
	if err != nil {
		if errors.Is(err, ErrInvalidData) || errors.Is(err, ErrDuplicateQRCode) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return &entityOutput{
			Body: entityResponse{Status: "Error"},
		}, err
	}

	return &entityOutput{
		Body: entityResponse{
			ID:      rec.ID,
			Status:  "Ok",
			Version: rec.Version,
		},
	}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	model, err := h.service.Find(ctx, sync.EntityType(input.Entity), input.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEntityDeleted) {
			return nil, huma.Error404NotFound("Entity not found")
		}
		return &findOutput{
			Body: findResponse{Status: "Error"},
		}, err
	}

	return &findOutput{
		Body: findResponse{
			Status: "Ok",
			Entity: model,
		},
	}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*entityOutput, error) {
	rec, err := h.service.Update(ctx, sync.EntityType(input.Entity), input.ID, input.Body)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEntityDeleted) {
			return nil, huma.Error404NotFound("Entity not found")
		}
		if errors.Is(err, ErrInvalidData) || errors.Is(err, ErrDuplicateQRCode) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return &entityOutput{
			Body: entityResponse{ID: input.ID, Status: "Error"},
		}, err
	}

	return &entityOutput{
		Body: entityResponse{
			ID:      input.ID,
			Status:  "Ok",
			Version: rec.Version,
		},
	}, nil
}

func (h *Handler) delete(ctx context.Context, input *findInput) (*entityOutput, error) {
	err := h.service.Delete(ctx, sync.EntityType(input.Entity), input.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, huma.Error404NotFound("Entity not found")
		}
		return &entityOutput{
			Body: entityResponse{Status: "Error"},
		}, err
	}

	return &entityOutput{
		Body: entityResponse{ID: input.ID, Status: "Ok"},
	}, nil
}

func (h *Handler) move(ctx context.Context, input *moveInput) (*entityOutput, error) {
	rec, err := h.service.Move(ctx, sync.EntityType(input.Entity), input.ID, input.Body.ContainerID, input.Body.LocationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEntityDeleted) {
			return nil, huma.Error404NotFound("Entity not found")
		}
		if errors.Is(err, ErrInvalidData) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return &entityOutput{
			Body: entityResponse{ID: input.ID, Status: "Error"},
		}, err
	}

	return &entityOutput{
		Body: entityResponse{
			ID:      input.ID,
			Status:  "Ok",
			Version: rec.Version,
		},
	}, nil
}

func (h *Handler) findByQR(ctx context.Context, input *qrInput) (*findOutput, error) {
	model, err := h.service.FindByQRCode(ctx, input.Code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, huma.Error404NotFound("Entity not found")
		}
		return &findOutput{
			Body: findResponse{Status: "Error"},
		}, err
	}

	return &findOutput{
		Body: findResponse{
			Status: "Ok",
			Entity: model,
		},
	}, nil
}

func (h *Handler) stats(ctx context.Context, _ *struct{}) (*statsOutput, error) {
	stats, err := h.service.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &statsOutput{
		Body: stats,
	}, nil
}
