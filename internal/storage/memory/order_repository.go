package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	items  map[string]domain.Order
	byCart map[string]string // source cart id -> order id
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:  make(map[string]domain.Order),
		byCart: make(map[string]string),
	}
}

// Create сохраняет новый заказ, если ID и исходная корзина ещё не заняты.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createLocked(order)
}

// createLocked выполняет вставку под уже взятой блокировкой
// (используется settlement store).
func (r *orderRepositoryInMemory) createLocked(order domain.Order) error {
	if _, exists := r.items[order.ID]; exists {
		return domain.ErrVersionConflict
	}
	if order.SourceCartID != "" {
		if _, exists := r.byCart[order.SourceCartID]; exists {
			return domain.ErrCartAlreadySettled
		}
		r.byCart[order.SourceCartID] = order.ID
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order
	return nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// GetBySourceCart возвращает заказ, созданный из указанной корзины.
func (r *orderRepositoryInMemory) GetBySourceCart(cartID string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.byCart[cartID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.items[orderID], nil
}

// ListByClient возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByClient(clientID string, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.ClientID != clientID {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	r.items[order.ID] = order
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
