package client

import (
	"context"
	"fmt"
	"math/rand"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"invkeeper/internal/domain/sync"
)

// BackoffStrategy стратегия роста паузы между попытками
type BackoffStrategy string

const (
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
	BackoffFibonacci   BackoffStrategy = "fibonacci"
	BackoffAdaptive    BackoffStrategy = "adaptive"
)

// RetryPolicy политика повторов сетевых операций
type RetryPolicy struct {
	MaxRetries     int             `json:"max_retries"`
	BaseDelay      time.Duration   `json:"base_delay"`
	MaxDelay       time.Duration   `json:"max_delay"`
	Strategy       BackoffStrategy `json:"strategy"`
	JitterFraction float64         `json:"jitter_fraction"`

	// ConnectTimeout ограничивает установку соединения; применяется
	// транспортом HTTP клиента
	ConnectTimeout time.Duration `json:"connect_timeout"`
	AttemptTimeout time.Duration `json:"attempt_timeout"`
	OverallTimeout time.Duration `json:"overall_timeout"`
}

// DefaultRetryPolicy политика по умолчанию
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:     5,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       30 * time.Second,
		Strategy:       BackoffExponential,
		JitterFraction: 0.1,
		ConnectTimeout: 5 * time.Second,
		AttemptTimeout: 10 * time.Second,
		OverallTimeout: 2 * time.Minute,
	}
}

// Delay считает паузу перед попыткой attempt (нумерация с 1), с учетом
// джиттера ±10%. Адаптивная стратегия подстраивается под длительность
// последней неудачной попытки.
func (p *RetryPolicy) Delay(attempt int, lastAttemptDuration time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var delay time.Duration
	switch p.Strategy {
	case BackoffLinear:
		delay = p.BaseDelay * time.Duration(attempt)
	case BackoffFibonacci:
		delay = p.BaseDelay * time.Duration(fibonacci(attempt))
	case BackoffAdaptive:
		// Медленный сервер получает пропорционально больший запас
		delay = p.BaseDelay * time.Duration(1<<uint(attempt-1))
		if lastAttemptDuration > delay {
			delay = lastAttemptDuration * 2
		}
	default:
		delay = p.BaseDelay * time.Duration(1<<uint(attempt-1))
	}

	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFraction > 0 {
		jitter := float64(delay) * p.JitterFraction
		delay += time.Duration((rand.Float64()*2 - 1) * jitter)
	}
	if delay < 0 {
		delay = 0
	}

	return delay
}

func fibonacci(n int) int {
	a, b := 1, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return a
}

// WithRetry выполняет операцию с повторами по политике. Неповторяемая
// ошибка возвращается сразу; отмена контекста прерывает ожидание.
func WithRetry(ctx context.Context, policy *RetryPolicy, log *slog.Logger, op string, fn func(ctx context.Context) error) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	if policy.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.OverallTimeout)
		defer cancel()
	}

	var lastErr error
	var lastDuration time.Duration

	for attempt := 1; attempt <= policy.MaxRetries+1; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if policy.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}

		started := time.Now()
		lastErr = fn(attemptCtx)
		lastDuration = time.Since(started)
		if cancel != nil {
			cancel()
		}

		if lastErr == nil {
			return nil
		}
		if !sync.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt > policy.MaxRetries {
			break
		}

		delay := policy.Delay(attempt, lastDuration)
		log.Debug("Повторная попытка операции",
			"operation", op,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("операция %s исчерпала попытки: %w", op, lastErr)
}

// BreakerState состояние автомата защиты
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// CircuitBreaker защищает сервер от шторма повторов по одной операции.
// После порога подряд идущих неудач вызовы отклоняются без сети, пока
// не истечет пауза; замыкается автомат обратно только после серии
// пробных успехов подряд.
type CircuitBreaker struct {
	failureThreshold int
	successThreshold int
	cooldown         time.Duration

	mu          gosync.Mutex
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewCircuitBreaker создает автомат защиты
func NewCircuitBreaker(failureThreshold, successThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		state:            BreakerClosed,
	}
}

// Allow сообщает, можно ли выполнять вызов
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if time.Since(cb.lastFailure) >= cb.cooldown {
			cb.state = BreakerHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// Success фиксирует удачный вызов. Полуоткрытый автомат замыкается
// только после successThreshold успехов подряд: один случайный успех
// еще не доказывает, что сервер ожил.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state != BreakerHalfOpen {
		cb.successes = 0
		return
	}

	cb.successes++
	if cb.successes >= cb.successThreshold {
		cb.state = BreakerClosed
		cb.successes = 0
	}
}

// Failure фиксирует неудачу; полуоткрытый автомат размыкается сразу
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.successes = 0
	cb.lastFailure = time.Now()

	if cb.state == BreakerHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = BreakerOpen
	}
}

// State возвращает текущее состояние
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerRegistry автоматы защиты по идентификатору операции
type BreakerRegistry struct {
	mu               gosync.Mutex
	breakers         map[string]*CircuitBreaker
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
}

// NewBreakerRegistry создает реестр автоматов
func NewBreakerRegistry(failureThreshold, successThreshold int, cooldown time.Duration) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
	}
}

// Get возвращает автомат для операции, создавая при необходимости
func (r *BreakerRegistry) Get(operationID string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[operationID]
	if !ok {
		cb = NewCircuitBreaker(r.failureThreshold, r.successThreshold, r.cooldown)
		r.breakers[operationID] = cb
	}
	return cb
}

// Execute выполняет операцию под защитой автомата и с повторами
func (r *BreakerRegistry) Execute(ctx context.Context, policy *RetryPolicy, log *slog.Logger, operationID string, fn func(ctx context.Context) error) error {
	cb := r.Get(operationID)

	if !cb.Allow() {
		return sync.ErrCircuitOpen
	}

	err := WithRetry(ctx, policy, log, operationID, fn)
	if err != nil {
		cb.Failure()
		return err
	}

	cb.Success()
	return nil
}
