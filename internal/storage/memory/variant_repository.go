package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// variantRepositoryInMemory — in-memory складской реестр. Мьютекс делает
// check-then-decrement единым атомарным шагом: конкурентные TryReserve по
// одному варианту сериализуются и не могут совместно увести остаток в минус.
type variantRepositoryInMemory struct {
	mu    sync.Mutex
	items map[string]domain.VariantValue
}

// NewVariantRepository возвращает in-memory реестр для локальной разработки и тестов.
func NewVariantRepository() domain.VariantRepository {
	return &variantRepositoryInMemory{
		items: make(map[string]domain.VariantValue),
	}
}

// Get возвращает вариант или ErrVariantNotFound.
func (r *variantRepositoryInMemory) Get(id string) (domain.VariantValue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.items[id]
	if !ok {
		return domain.VariantValue{}, domain.ErrVariantNotFound
	}
	return v, nil
}

// Create сохраняет новый вариант, если ID ещё не занят.
func (r *variantRepositoryInMemory) Create(v domain.VariantValue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[v.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.items[v.ID] = v
	return nil
}

// TryReserve атомарно проверяет и списывает остаток под одним мьютексом.
func (r *variantRepositoryInMemory) TryReserve(id string, qty int64) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.items[id]
	if !ok {
		return domain.ErrVariantNotFound
	}
	if v.Disabled {
		return domain.ErrVariantDisabled
	}
	if v.Quantity < qty {
		return domain.ErrInsufficientStock
	}

	v.Quantity -= qty
	r.items[id] = v
	return nil
}

// Release возвращает количество на остаток.
func (r *variantRepositoryInMemory) Release(id string, qty int64) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.items[id]
	if !ok {
		return domain.ErrVariantNotFound
	}

	v.Quantity += qty
	r.items[id] = v
	return nil
}

var _ domain.VariantRepository = (*variantRepositoryInMemory)(nil)
