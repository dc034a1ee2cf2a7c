package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// cartRepositoryInMemory хранит корзины и их позиции. Позиции лежат в
// отдельной таблице и связываются с владельцем по CartID/OrderID — так же,
// как в реляционной реализации.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
	items map[string]domain.LineItem
}

// NewCartRepository возвращает in-memory репозиторий корзин.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		carts: make(map[string]domain.Cart),
		items: make(map[string]domain.LineItem),
	}
}

// Get возвращает корзину с загруженными позициями или ErrCartNotFound.
func (r *cartRepositoryInMemory) Get(id string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[id]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	cart.Items = r.loadItems(id)
	return cart, nil
}

// loadItems собирает позиции корзины в стабильном порядке. Вызывается под блокировкой.
func (r *cartRepositoryInMemory) loadItems(cartID string) []domain.LineItem {
	items := make([]domain.LineItem, 0)
	for _, item := range r.items {
		if item.CartID == cartID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// Create сохраняет новую корзину, если ID ещё не занят.
func (r *cartRepositoryInMemory) Create(cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.carts[cart.ID]; exists {
		return domain.ErrVersionConflict
	}
	cart.Items = nil
	r.carts[cart.ID] = cart
	return nil
}

// AddItem добавляет позицию. Корзина-владелец должна существовать.
func (r *cartRepositoryInMemory) AddItem(item domain.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[item.CartID]; !ok {
		return domain.ErrCartNotFound
	}
	r.items[item.ID] = item
	return nil
}

// GetItem возвращает позицию или ErrLineItemNotFound.
func (r *cartRepositoryInMemory) GetItem(lineItemID string) (domain.LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[lineItemID]
	if !ok {
		return domain.LineItem{}, domain.ErrLineItemNotFound
	}
	return item, nil
}

// SaveItem перезаписывает существующую позицию.
func (r *cartRepositoryInMemory) SaveItem(item domain.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return domain.ErrLineItemNotFound
	}
	r.items[item.ID] = item
	return nil
}

// RemoveItem удаляет позицию.
func (r *cartRepositoryInMemory) RemoveItem(lineItemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[lineItemID]; !ok {
		return domain.ErrLineItemNotFound
	}
	delete(r.items, lineItemID)
	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
