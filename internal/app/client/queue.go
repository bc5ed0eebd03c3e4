package client

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/sync"
)

// QueueConfig конфигурация очереди событий
type QueueConfig struct {
	MergeWindow    time.Duration `json:"merge_window"`
	MaxAttempts    int           `json:"max_attempts"`
	RetentionAge   time.Duration `json:"retention_age"`
	DrainInterval  time.Duration `json:"drain_interval"`
	MaxQueueLength int           `json:"max_queue_length"`
}

// EventQueue - журнал локальных мутаций. Каждая правка сначала попадает
// сюда и только потом уходит на сервер; пока событие pending,
// пользователь видит его эффект через снапшот.
type EventQueue struct {
	storage Storage
	log     *slog.Logger
	config  *QueueConfig
	wake    chan struct{}

	mu           gosync.Mutex
	isProcessing bool
	drainCancel  context.CancelFunc
	drainWG      gosync.WaitGroup
}

// NewEventQueue создает очередь событий
func NewEventQueue(storage Storage, log *slog.Logger, config *QueueConfig) *EventQueue {
	if config == nil {
		config = &QueueConfig{
			MergeWindow:    5 * time.Minute,
			MaxAttempts:    5,
			RetentionAge:   24 * time.Hour,
			DrainInterval:  30 * time.Second,
			MaxQueueLength: 1000,
		}
	}

	return &EventQueue{
		storage: storage,
		log:     log,
		config:  config,
		wake:    make(chan struct{}, 1),
	}
}

// StartDrain запускает фоновый слив очереди: drain вызывается по
// таймеру и по сигналу пробуждения. Повторный запуск игнорируется.
func (q *EventQueue) StartDrain(ctx context.Context, drain func(ctx context.Context) error) {
	q.mu.Lock()
	if q.drainCancel != nil {
		q.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	q.drainCancel = cancel
	q.mu.Unlock()

	interval := q.config.DrainInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	q.drainWG.Add(1)
	go func() {
		defer q.drainWG.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-q.wake:
			}
			q.runDrain(ctx, drain)
		}
	}()
}

// runDrain выполняет один проход слива; одновременные проходы исключены
func (q *EventQueue) runDrain(ctx context.Context, drain func(ctx context.Context) error) {
	q.mu.Lock()
	if q.isProcessing {
		q.mu.Unlock()
		return
	}
	q.isProcessing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.isProcessing = false
		q.mu.Unlock()
	}()

	if err := drain(ctx); err != nil && !errors.Is(err, sync.ErrSyncInProgress) {
		q.log.Warn("Ошибка фонового слива очереди", "error", err)
	}
}

// StopDrain останавливает фоновый слив и дожидается его завершения
func (q *EventQueue) StopDrain() {
	q.mu.Lock()
	cancel := q.drainCancel
	q.drainCancel = nil
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	q.drainWG.Wait()
}

// Wake будит фоновый слив вне расписания. Сигнал не накапливается:
// простаивающий слив проснется ровно один раз.
func (q *EventQueue) Wake() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Enqueue кладет событие в очередь. Повторное событие того же типа по
// той же сущности в пределах окна склеивается с уже ожидающим: данные
// объединяются, временная метка обновляется, ID остается прежним.
func (q *EventQueue) Enqueue(event *sync.OfflineEvent) (*sync.OfflineEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Status = sync.StatusPending

	if err := event.Validate(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	count, err := q.storage.CountEvents("")
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета очереди: %w", err)
	}
	if count >= q.config.MaxQueueLength {
		return nil, fmt.Errorf("очередь событий переполнена: %d", count)
	}

	// Склейка дублей: совпадать должны тип, сущность и ID
	candidate, err := q.storage.FindMergeCandidate(event.Entity, event.EntityID, event.Type, q.config.MergeWindow)
	if err == nil && candidate != nil {
		for k, v := range event.Data {
			candidate.Data[k] = v
		}
		candidate.Timestamp = event.Timestamp

		if err := q.storage.SaveEvent(candidate); err != nil {
			return nil, err
		}

		q.log.Debug("Событие склеено с ожидающим",
			"event_id", candidate.ID,
			"type", candidate.Type,
			"entity", candidate.Entity,
			"entity_id", candidate.EntityID)
		return candidate, nil
	}
	if err != nil && !errors.Is(err, sync.ErrEventNotFound) {
		return nil, err
	}

	if err := q.storage.SaveEvent(event); err != nil {
		return nil, err
	}

	q.log.Debug("Событие добавлено в очередь",
		"event_id", event.ID,
		"type", event.Type,
		"entity", event.Entity,
		"entity_id", event.EntityID)

	return event, nil
}

// Pending возвращает ожидающие события в порядке отправки: удаления
// первыми, затем обновления, создания и перемещения; внутри группы по
// времени.
func (q *EventQueue) Pending(limit int) ([]*sync.OfflineEvent, error) {
	events, err := q.storage.ListEvents(sync.StatusPending, 0)
	if err != nil {
		return nil, err
	}

	sortEventsByPriority(events)

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// pushPriority приоритет отправки типов событий
func pushPriority(typ sync.EventType) int {
	switch typ {
	case sync.EventDelete:
		return 0
	case sync.EventUpdate:
		return 1
	case sync.EventCreate:
		return 2
	default:
		return 3
	}
}

func sortEventsByPriority(events []*sync.OfflineEvent) {
	// Сортировка устойчива к исходному порядку по времени
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && eventLess(events[j], events[j-1]); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func eventLess(a, b *sync.OfflineEvent) bool {
	pa, pb := pushPriority(a.Type), pushPriority(b.Type)
	if pa != pb {
		return pa < pb
	}
	return a.Timestamp.Before(b.Timestamp)
}

// MarkSyncing помечает событие как отправляемое
func (q *EventQueue) MarkSyncing(event *sync.OfflineEvent) error {
	now := time.Now()
	event.Status = sync.StatusSyncing
	event.LastSyncAttempt = &now
	return q.storage.SaveEvent(event)
}

// MarkSynced помечает событие как подтвержденное сервером
func (q *EventQueue) MarkSynced(event *sync.OfflineEvent) error {
	event.Status = sync.StatusSynced
	event.ErrorMessage = ""
	return q.storage.SaveEvent(event)
}

// MarkFailed фиксирует неудачную попытку. Событие возвращается в
// pending, пока не исчерпаны попытки; после этого остается failed и
// ждет ручного вмешательства.
func (q *EventQueue) MarkFailed(event *sync.OfflineEvent, cause error) error {
	event.SyncAttempts++
	event.ErrorMessage = cause.Error()

	if event.SyncAttempts >= q.config.MaxAttempts || !sync.IsRetryable(cause) {
		event.Status = sync.StatusFailed
		q.log.Warn("Событие исчерпало попытки отправки",
			"event_id", event.ID,
			"attempts", event.SyncAttempts,
			"error", cause)
	} else {
		event.Status = sync.StatusPending
	}

	return q.storage.SaveEvent(event)
}

// MarkConflict помечает событие как конфликтующее
func (q *EventQueue) MarkConflict(event *sync.OfflineEvent) error {
	event.Status = sync.StatusConflict
	return q.storage.SaveEvent(event)
}

// RetryFailed возвращает провалившиеся события в очередь и будит
// фоновый слив, чтобы не ждать следующего тика
func (q *EventQueue) RetryFailed() (int, error) {
	events, err := q.storage.ListEvents(sync.StatusFailed, 0)
	if err != nil {
		return 0, err
	}

	retried := 0
	for _, event := range events {
		event.Status = sync.StatusPending
		event.SyncAttempts = 0
		event.ErrorMessage = ""
		if err := q.storage.SaveEvent(event); err != nil {
			return retried, err
		}
		retried++
	}

	if retried > 0 {
		q.Wake()
	}

	return retried, nil
}

// Cleanup удаляет подтвержденные события старше срока хранения
func (q *EventQueue) Cleanup() (int, error) {
	return q.storage.DeleteEventsBefore(sync.StatusSynced, time.Now().Add(-q.config.RetentionAge))
}

// Stats возвращает счетчики очереди по статусам
func (q *EventQueue) Stats() (map[sync.EventStatus]int, error) {
	stats := make(map[sync.EventStatus]int)
	for _, status := range []sync.EventStatus{
		sync.StatusPending, sync.StatusSyncing, sync.StatusSynced,
		sync.StatusFailed, sync.StatusConflict,
	} {
		count, err := q.storage.CountEvents(status)
		if err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, nil
}
