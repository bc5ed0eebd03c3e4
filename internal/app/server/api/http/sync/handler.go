package sync

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/sync"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.incrementalOp(), h.incremental)
	huma.Register(api, h.pushOp(), h.push)
	huma.Register(api, h.batchOp(), h.batch)
	huma.Register(api, h.getStatusOp(), h.getStatus)
	huma.Register(api, h.getConflictsOp(), h.getConflicts)
	huma.Register(api, h.resolveConflictOp(), h.resolveConflict)
	huma.Register(api, h.getDevicesOp(), h.getDevices)
	huma.Register(api, h.removeDeviceOp(), h.removeDevice)
}

func (h *Handler) incremental(ctx context.Context, input *incrementalInput) (*incrementalOutput, error) {
	response, err := h.service.GetIncremental(ctx, sync.EntityType(input.Entity), input.Body)
	if err != nil {
		return &incrementalOutput{
			Body: sync.IncrementalResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &incrementalOutput{
		Body: *response,
	}, nil
}

func (h *Handler) push(ctx context.Context, input *pushInput) (*pushOutput, error) {
	response, err := h.service.Push(ctx, sync.EntityType(input.Entity), input.Body)
	if err != nil {
		return &pushOutput{
			Body: sync.PushResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &pushOutput{
		Body: *response,
	}, nil
}

func (h *Handler) batch(ctx context.Context, input *batchInput) (*batchOutput, error) {
	response, err := h.service.ProcessBatch(ctx, input.Body)
	if err != nil {
		return &batchOutput{
			Body: sync.BatchResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &batchOutput{
		Body: *response,
	}, nil
}

func (h *Handler) getStatus(ctx context.Context, _ *getStatusInput) (*getStatusOutput, error) {
	response, err := h.service.GetStatus(ctx)
	if err != nil {
		return &getStatusOutput{
			Body: sync.GetStatusResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &getStatusOutput{
		Body: *response,
	}, nil
}

func (h *Handler) getConflicts(ctx context.Context, _ *getConflictsInput) (*getConflictsOutput, error) {
	response, err := h.service.GetConflicts(ctx)
	if err != nil {
		return &getConflictsOutput{
			Body: sync.GetConflictsResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &getConflictsOutput{
		Body: *response,
	}, nil
}

func (h *Handler) resolveConflict(ctx context.Context, input *resolveConflictInput) (*resolveConflictOutput, error) {
	response, err := h.service.ResolveConflict(ctx, input.ID, input.Body)
	if err != nil {
		if errors.Is(err, sync.ErrConflictNotFound) {
			return nil, huma.Error404NotFound("Conflict not found")
		}
		if errors.Is(err, sync.ErrConflictResolved) {
			return nil, huma.Error409Conflict("Conflict already resolved")
		}
		return &resolveConflictOutput{
			Body: sync.ResolveConflictResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &resolveConflictOutput{
		Body: *response,
	}, nil
}

func (h *Handler) getDevices(ctx context.Context, _ *getDevicesInput) (*getDevicesOutput, error) {
	response, err := h.service.GetDevices(ctx)
	if err != nil {
		return &getDevicesOutput{
			Body: sync.GetDevicesResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &getDevicesOutput{
		Body: sync.GetDevicesResponse{
			Status: "Ok",
			Data:   response,
		},
	}, nil
}

func (h *Handler) removeDevice(ctx context.Context, input *removeDeviceInput) (*removeDeviceOutput, error) {
	response, err := h.service.RemoveDevice(ctx, input.ID)
	if err != nil {
		if errors.Is(err, sync.ErrDeviceNotFound) {
			return nil, huma.Error404NotFound("Device not found")
		}
		return &removeDeviceOutput{
			Body: sync.RemoveDeviceResponse{
				Status: "Error",
				Error:  err.Error(),
			},
		}, nil
	}

	return &removeDeviceOutput{
		Body: *response,
	}, nil
}
