package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/inventory"
	"invkeeper/internal/domain/sync"
)

// EventHook вызывается перед постановкой события в очередь; ошибка
// отменяет всю операцию вместе с локальной мутацией
type EventHook func(event *sync.OfflineEvent) error

// WriteInterceptor - прослойка между локальными правками и очередью.
// Каждая мутация инвентаря проходит здесь: сначала событие в журнал,
// потом изменение снапшота. Пользователь видит результат сразу,
// сервер узнает о нем при следующей синхронизации.
type WriteInterceptor struct {
	storage  Storage
	queue    *EventQueue
	factory  *inventory.Factory
	log      *slog.Logger
	deviceID string
	hooks    []EventHook
}

// NewWriteInterceptor создает перехватчик мутаций
func NewWriteInterceptor(storage Storage, queue *EventQueue, factory *inventory.Factory, log *slog.Logger, deviceID string) *WriteInterceptor {
	return &WriteInterceptor{
		storage:  storage,
		queue:    queue,
		factory:  factory,
		log:      log,
		deviceID: deviceID,
	}
}

// Use добавляет хук, выполняемый перед каждым событием
func (w *WriteInterceptor) Use(hook EventHook) {
	w.hooks = append(w.hooks, hook)
}

func (w *WriteInterceptor) runHooks(event *sync.OfflineEvent) error {
	for _, hook := range w.hooks {
		if err := hook(event); err != nil {
			return err
		}
	}
	return nil
}

// Create создает сущность локально и ставит CREATE в очередь
func (w *WriteInterceptor) Create(model inventory.Model) (*sync.OfflineEvent, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}

	id := model.GetID()
	if id == "" {
		id = uuid.NewString()
	}

	data := model.ToMap()
	now := time.Now()

	event := &sync.OfflineEvent{
		ID:       uuid.NewString(),
		Type:     sync.EventCreate,
		Entity:   model.GetEntity(),
		EntityID: id,
		Data:     data,
		DeviceID: w.deviceID,
	}
	if qr, ok := data["qrCode"].(string); ok {
		event.Metadata.QRCode = qr
	}

	if err := w.runHooks(event); err != nil {
		return nil, err
	}

	event, err := w.queue.Enqueue(event)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:        id,
		Entity:    model.GetEntity(),
		Data:      data,
		Version:   1,
		Dirty:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.storage.SaveSnapshot(snap); err != nil {
		return nil, err
	}

	return event, nil
}

// Update применяет частичную правку и ставит UPDATE в очередь.
// OriginalData события запоминает прежние значения измененных полей:
// по ним детектор конфликтов отличает пересекающиеся правки.
func (w *WriteInterceptor) Update(entity sync.EntityType, id string, changes map[string]any) (*sync.OfflineEvent, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("нет изменений для применения")
	}

	snap, err := w.storage.GetSnapshot(entity, id)
	if err != nil {
		return nil, err
	}
	if snap.Deleted {
		return nil, inventory.ErrEntityDeleted
	}

	original := make(map[string]any, len(changes))
	for field := range changes {
		if value, ok := snap.Data[field]; ok {
			original[field] = value
		}
	}

	for k, v := range changes {
		snap.Data[k] = v
	}

	if err := w.factory.ValidateData(entity, snap.Data); err != nil {
		return nil, err
	}

	event := &sync.OfflineEvent{
		ID:           uuid.NewString(),
		Type:         sync.EventUpdate,
		Entity:       entity,
		EntityID:     id,
		Data:         changes,
		OriginalData: original,
		DeviceID:     w.deviceID,
	}

	if err := w.runHooks(event); err != nil {
		return nil, err
	}

	event, err = w.queue.Enqueue(event)
	if err != nil {
		return nil, err
	}

	snap.Dirty = true
	snap.UpdatedAt = time.Now()
	if err := w.storage.SaveSnapshot(snap); err != nil {
		return nil, err
	}

	return event, nil
}

// Delete помечает сущность удаленной и ставит DELETE в очередь
func (w *WriteInterceptor) Delete(entity sync.EntityType, id string) (*sync.OfflineEvent, error) {
	snap, err := w.storage.GetSnapshot(entity, id)
	if err != nil {
		return nil, err
	}
	if snap.Deleted {
		return nil, nil
	}

	event := &sync.OfflineEvent{
		ID:           uuid.NewString(),
		Type:         sync.EventDelete,
		Entity:       entity,
		EntityID:     id,
		Data:         map[string]any{},
		OriginalData: snap.Data,
		DeviceID:     w.deviceID,
	}

	if err := w.runHooks(event); err != nil {
		return nil, err
	}

	event, err = w.queue.Enqueue(event)
	if err != nil {
		return nil, err
	}

	snap.Deleted = true
	snap.Dirty = true
	snap.UpdatedAt = time.Now()
	if err := w.storage.SaveSnapshot(snap); err != nil {
		return nil, err
	}

	return event, nil
}

// Move переносит предмет или контейнер и ставит MOVE в очередь
func (w *WriteInterceptor) Move(entity sync.EntityType, id, containerID, locationID string) (*sync.OfflineEvent, error) {
	if entity != sync.EntityItem && entity != sync.EntityContainer {
		return nil, fmt.Errorf("сущность %s нельзя переместить", entity)
	}

	changes := map[string]any{}
	if containerID != "" {
		changes["containerId"] = containerID
	}
	if locationID != "" {
		changes["locationId"] = locationID
	}
	if len(changes) == 0 {
		return nil, errors.New("не указана цель перемещения")
	}

	snap, err := w.storage.GetSnapshot(entity, id)
	if err != nil {
		return nil, err
	}

	original := make(map[string]any, len(changes))
	for field := range changes {
		if value, ok := snap.Data[field]; ok {
			original[field] = value
		}
	}

	event := &sync.OfflineEvent{
		ID:           uuid.NewString(),
		Type:         sync.EventMove,
		Entity:       entity,
		EntityID:     id,
		Data:         changes,
		OriginalData: original,
		DeviceID:     w.deviceID,
		Metadata:     sync.EventMetadata{ParentEntityID: containerID},
	}

	if err := w.runHooks(event); err != nil {
		return nil, err
	}

	event, err = w.queue.Enqueue(event)
	if err != nil {
		return nil, err
	}

	for k, v := range changes {
		snap.Data[k] = v
	}
	snap.Dirty = true
	snap.UpdatedAt = time.Now()
	if err := w.storage.SaveSnapshot(snap); err != nil {
		return nil, err
	}

	return event, nil
}

// AssignQR привязывает QR-код и ставит ASSIGN в очередь
func (w *WriteInterceptor) AssignQR(entity sync.EntityType, id, qrCode string) (*sync.OfflineEvent, error) {
	if qrCode == "" {
		return nil, errors.New("пустой QR-код")
	}

	snap, err := w.storage.GetSnapshot(entity, id)
	if err != nil {
		return nil, err
	}

	original := map[string]any{}
	if value, ok := snap.Data["qrCode"]; ok {
		original["qrCode"] = value
	}

	event := &sync.OfflineEvent{
		ID:           uuid.NewString(),
		Type:         sync.EventAssign,
		Entity:       entity,
		EntityID:     id,
		Data:         map[string]any{"qrCode": qrCode},
		OriginalData: original,
		DeviceID:     w.deviceID,
		Metadata:     sync.EventMetadata{QRCode: qrCode},
	}

	if err := w.runHooks(event); err != nil {
		return nil, err
	}

	event, err = w.queue.Enqueue(event)
	if err != nil {
		return nil, err
	}

	snap.Data["qrCode"] = qrCode
	snap.Dirty = true
	snap.UpdatedAt = time.Now()
	if err := w.storage.SaveSnapshot(snap); err != nil {
		return nil, err
	}

	return event, nil
}
