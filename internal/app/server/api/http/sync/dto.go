package sync

import (
	"invkeeper/internal/domain/sync"
)

// Обертки huma над DTO домена синхронизации

type incrementalInput struct {
	Entity string `path:"entity" enum:"item,category,container,location"`
	Body   sync.IncrementalRequest
}

type incrementalOutput struct {
	Body sync.IncrementalResponse
}

type pushInput struct {
	Entity string `path:"entity" enum:"item,category,container,location"`
	Body   sync.PushRequest
}

type pushOutput struct {
	Body sync.PushResponse
}

type batchInput struct {
	Body sync.BatchRequest
}

type batchOutput struct {
	Body sync.BatchResponse
}

type getStatusInput struct {
}

type getStatusOutput struct {
	Body sync.GetStatusResponse
}

type getConflictsInput struct {
}

type getConflictsOutput struct {
	Body sync.GetConflictsResponse
}

type resolveConflictInput struct {
	ID   string `path:"id"`
	Body sync.ResolveConflictRequest
}

type resolveConflictOutput struct {
	Body sync.ResolveConflictResponse
}

type getDevicesInput struct {
}

type getDevicesOutput struct {
	Body sync.GetDevicesResponse
}

type removeDeviceInput struct {
	ID string `path:"id"`
}

type removeDeviceOutput struct {
	Body sync.RemoveDeviceResponse
}
