package resilience

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrCircuitOpen возвращается, когда breaker открыт и попытка отклонена.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState — состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String возвращает человекочитаемое имя состояния для логов и метрик.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker — простая реализация circuit breaker паттерна.
// Состояние живёт в памяти экземпляра и сбрасывается при рестарте процесса:
// перезапущенный инстанс стартует оптимистично закрытым.
// Часы инжектируются, чтобы переходы тестировались без реальных таймеров.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       CircuitState

	now    func() time.Time
	logger *log.Entry
}

// NewCircuitBreaker создаёт новый circuit breaker в закрытом состоянии.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "circuit-breaker")
	}
	if failureThreshold <= 0 {
		failureThreshold = 1
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            CircuitClosed,
		now:              time.Now,
		logger:           logger,
	}
}

// WithClock подменяет источник времени. Используется в тестах.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// State возвращает текущее состояние breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures возвращает текущий счётчик отказов.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Allow сообщает, разрешена ли попытка обращения к защищаемому ресурсу.
// Открытый breaker пропускает одну пробную попытку после resetTimeout,
// переходя в half-open.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return true
	}
	if cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.logger.Info("circuit breaker half-open")
		return true
	}
	return false
}

// RecordSuccess фиксирует успешную попытку: half-open закрывается,
// счётчик отказов обнуляется.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.logger.Info("circuit breaker closed")
	}
	cb.failures = 0
}

// RecordFailure фиксирует отказ. Достижение порога или отказ в half-open
// открывает breaker и обновляет время последнего отказа.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = CircuitOpen
		cb.logger.WithField("failures", cb.failures).Warn("circuit breaker opened")
	}
}

// Execute выполняет операцию через circuit breaker: отклонённая попытка
// возвращает ErrCircuitOpen, результат операции учитывается в состоянии.
func (cb *CircuitBreaker) Execute(operation string, fn func() error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		cb.RecordFailure()
		cb.logger.WithError(err).WithField("operation", operation).Debug("operation failed through breaker")
		return err
	}

	cb.RecordSuccess()
	return nil
}
