package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

// cartRepositoryInMemory — простая in-memory реализация CartRepository.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[domain.CartKey]domain.Cart
}

// NewCartRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		items: make(map[domain.CartKey]domain.Cart),
	}
}

// Upsert сохраняет корзину по естественному ключу.
func (r *cartRepositoryInMemory) Upsert(_ context.Context, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[cart.Key()] = cloneCart(cart)
	return nil
}

// Get возвращает корзину или ErrCartNotFound, если её нет.
func (r *cartRepositoryInMemory) Get(_ context.Context, key domain.CartKey) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.items[key]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cloneCart(cart), nil
}

// Delete удаляет корзину; отсутствие записи ошибкой не считается.
func (r *cartRepositoryInMemory) Delete(_ context.Context, key domain.CartKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, key)
	return nil
}

func cloneCart(src domain.Cart) domain.Cart {
	dst := src
	dst.LineItems = append([]domain.CartLineItem(nil), src.LineItems...)
	dst.Payments = append([]domain.CartPayment(nil), src.Payments...)
	return dst
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
