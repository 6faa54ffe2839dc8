package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
	"github.com/vladislavdragonenkov/pos-core/internal/metrics"
	"github.com/vladislavdragonenkov/pos-core/internal/resilience"
)

// StateStore описывает требования к sidecar key-value стору.
type StateStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Save(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// CachedCartRepository — двухъярусное хранилище корзин: быстрый sidecar-кэш
// под защитой circuit breaker и durable-ярус как обязательный fallback.
// Кэш — оптимизация задержки горячего пути; корректность обязана переживать
// его недоступность, поэтому любой отказ кэша прозрачно уводит операцию
// в durable-ярус.
type CachedCartRepository struct {
	cache   StateStore
	durable domain.CartRepository
	breaker *resilience.CircuitBreaker
	metrics *metrics.PosMetrics
	logger  *log.Entry
}

var _ domain.CartRepository = (*CachedCartRepository)(nil)

// NewCachedCartRepository создаёт двухъярусный репозиторий корзин.
func NewCachedCartRepository(
	cache StateStore,
	durable domain.CartRepository,
	breaker *resilience.CircuitBreaker,
	posMetrics *metrics.PosMetrics,
	logger *log.Entry,
) *CachedCartRepository {
	if logger == nil {
		logger = log.WithField("component", "cached-cart-repository")
	}

	return &CachedCartRepository{
		cache:   cache,
		durable: durable,
		breaker: breaker,
		metrics: posMetrics,
		logger:  logger,
	}
}

// tierResult — явный результат попытки кэш-яруса вместо перехвата
// исключений: Ok, промах или сбой яруса.
type tierResult int

const (
	tierOK tierResult = iota
	tierMiss
	tierFailure
)

// Upsert сохраняет корзину: сначала кэш, при его отказе — durable-ярус.
// Ошибка возвращается только при отказе обоих ярусов.
func (r *CachedCartRepository) Upsert(ctx context.Context, cart domain.Cart) error {
	result := r.tryCache(ctx, "save", func(attemptCtx context.Context) error {
		return r.cache.Save(attemptCtx, cart.Key().String(), cart)
	})
	if result == tierOK {
		r.metrics.RecordCacheHit()
		return nil
	}

	r.metrics.RecordCacheFallback("save")
	if err := r.durable.Upsert(ctx, cart); err != nil {
		r.logger.WithError(err).WithField("cart", cart.Key().String()).Error("both cart tiers failed on save")
		return fmt.Errorf("save cart %s: %w", cart.Key(), domain.ErrCartUnavailable)
	}
	return nil
}

// Get читает корзину: кэш при закрытом breaker, иначе (или при промахе/сбое)
// durable-ярус. ErrCartNotFound — только если корзины нет в обоих ярусах.
func (r *CachedCartRepository) Get(ctx context.Context, key domain.CartKey) (domain.Cart, error) {
	var cached domain.Cart
	result := r.tryCache(ctx, "get", func(attemptCtx context.Context) error {
		raw, err := r.cache.Get(attemptCtx, key.String())
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &cached); err != nil {
			// Повреждённый документ в кэше — сбой яруса, не бизнес-ошибка.
			return fmt.Errorf("%w: unmarshal cached cart: %v", domain.ErrCacheUnavailable, err)
		}
		return nil
	})

	switch result {
	case tierOK:
		r.metrics.RecordCacheHit()
		return cached, nil
	case tierMiss:
		r.metrics.RecordCacheMiss()
	case tierFailure:
		r.metrics.RecordCacheFallback("get")
	}

	cart, err := r.durable.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		r.logger.WithError(err).WithField("cart", key.String()).Error("both cart tiers failed on get")
		return domain.Cart{}, fmt.Errorf("get cart %s: %w", key, domain.ErrCartUnavailable)
	}
	return cart, nil
}

// Delete удаляет корзину: сначала кэш, при его отказе — durable-ярус.
// Отказ обоих ярусов возвращается как есть, без компенсации.
func (r *CachedCartRepository) Delete(ctx context.Context, key domain.CartKey) error {
	result := r.tryCache(ctx, "delete", func(attemptCtx context.Context) error {
		return r.cache.Delete(attemptCtx, key.String())
	})
	if result == tierOK {
		r.metrics.RecordCacheHit()
		return nil
	}

	r.metrics.RecordCacheFallback("delete")
	if err := r.durable.Delete(ctx, key); err != nil {
		r.logger.WithError(err).WithField("cart", key.String()).Error("both cart tiers failed on delete")
		return fmt.Errorf("delete cart %s: %w", key, domain.ErrCartUnavailable)
	}
	return nil
}

// tryCache выполняет операцию кэш-яруса под circuit breaker и
// классифицирует исход явными ветками.
func (r *CachedCartRepository) tryCache(ctx context.Context, operation string, fn func(context.Context) error) tierResult {
	defer r.metrics.SetBreakerState(int(r.breaker.State()))

	if !r.breaker.Allow() {
		// Открытый breaker: не тратим задержку на заведомо нездоровый кэш.
		return tierFailure
	}

	err := fn(ctx)
	switch {
	case err == nil:
		r.breaker.RecordSuccess()
		return tierOK
	case errors.Is(err, domain.ErrCacheMiss):
		// Промах — штатный ответ яруса, breaker не трогаем.
		r.breaker.RecordSuccess()
		return tierMiss
	default:
		r.breaker.RecordFailure()
		r.logger.WithError(err).WithField("operation", operation).Warn("cart cache tier failed")
		return tierFailure
	}
}
