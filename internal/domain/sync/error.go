package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSyncInProgress возвращается при попытке запустить второй цикл
	// синхронизации, пока первый не завершился.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSyncAborted пользователь отменил синхронизацию
	ErrSyncAborted = errors.New("sync aborted")

	// ErrConflictResolved конфликт уже был разрешен; разрешение идемпотентно
	ErrConflictResolved = errors.New("conflict already resolved")

	// ErrCircuitOpen автомат защиты разомкнут, вызов отклонен без сети
	ErrCircuitOpen = errors.New("circuit breaker is open")

	ErrEventNotFound    = errors.New("event not found")
	ErrConflictNotFound = errors.New("conflict not found")
	ErrRecordNotFound   = errors.New("record not found")
	ErrDeviceNotFound   = errors.New("device not found")
)

// ValidationError некорректное событие; не повторяется
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// StorageError сбой локального хранилища; повторяемая ошибка
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NetworkError сетевой сбой или таймаут; повторяется по политике
// circuit breaker
type NetworkError struct {
	Op      string
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("network: %s: timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsRetryable классифицирует ошибку: стоит ли повторять операцию
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrSyncAborted) || errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return false
	}
	var se *StorageError
	if errors.As(err, &se) {
		return true
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}

	// Транзитные ошибки без типа распознаем по тексту
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"503", "502", "504", "429",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
