package memory

import (
	"fmt"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// settlementStoreInMemory выполняет многосущностную запись расчёта поверх
// in-memory репозиториев. Все мутации применяются под одновременно взятыми
// блокировками участвующих репозиториев, поэтому снаружи commit наблюдается
// как один атомарный шаг: либо заказ создан, позиции переданы и корзина
// заменена, либо состояние не изменилось.
type settlementStoreInMemory struct {
	carts   *cartRepositoryInMemory
	orders  *orderRepositoryInMemory
	clients *clientRepositoryInMemory
}

// NewSettlementStore собирает settlement store из in-memory репозиториев.
// Репозитории должны быть созданы конструкторами этого пакета.
func NewSettlementStore(
	carts domain.CartRepository,
	orders domain.OrderRepository,
	clients domain.ClientRepository,
) (domain.SettlementStore, error) {
	c, ok := carts.(*cartRepositoryInMemory)
	if !ok {
		return nil, fmt.Errorf("settlement store requires in-memory cart repository")
	}
	o, ok := orders.(*orderRepositoryInMemory)
	if !ok {
		return nil, fmt.Errorf("settlement store requires in-memory order repository")
	}
	cl, ok := clients.(*clientRepositoryInMemory)
	if !ok {
		return nil, fmt.Errorf("settlement store requires in-memory client repository")
	}
	return &settlementStoreInMemory{carts: c, orders: o, clients: cl}, nil
}

// Commit применяет расчёт как единое целое. Все проверки выполняются до
// первой мутации: после них отдельные шаги уже не могут провалиться.
func (s *settlementStoreInMemory) Commit(change domain.SettlementChange) error {
	// Порядок взятия блокировок фиксирован: carts -> orders -> clients.
	s.carts.mu.Lock()
	defer s.carts.mu.Unlock()
	s.orders.mu.Lock()
	defer s.orders.mu.Unlock()
	s.clients.mu.Lock()
	defer s.clients.mu.Unlock()

	oldCart, ok := s.carts.carts[change.Order.SourceCartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if oldCart.Settled {
		return domain.ErrCartAlreadySettled
	}
	client, ok := s.clients.items[change.ClientID]
	if !ok {
		return domain.ErrClientNotFound
	}
	if _, exists := s.orders.items[change.Order.ID]; exists {
		return domain.ErrVersionConflict
	}
	if _, exists := s.carts.carts[change.NewCart.ID]; exists {
		return domain.ErrVersionConflict
	}
	for _, ids := range [][]string{change.AttachItemIDs, change.DeleteItemIDs} {
		for _, id := range ids {
			if _, exists := s.carts.items[id]; !exists {
				return domain.ErrLineItemNotFound
			}
		}
	}

	// Заказ.
	if err := s.orders.createLocked(change.Order); err != nil {
		return err
	}

	// Передача владения валидными позициями.
	for _, id := range change.AttachItemIDs {
		item := s.carts.items[id]
		item.CartID = ""
		item.OrderID = change.Order.ID
		s.carts.items[id] = item
	}

	// Инвалидированные позиции удаляются.
	for _, id := range change.DeleteItemIDs {
		delete(s.carts.items, id)
	}

	// Старая корзина помечается рассчитанной, клиент получает новую пустую.
	oldCart.Settled = true
	s.carts.carts[oldCart.ID] = oldCart

	newCart := change.NewCart
	newCart.Items = nil
	s.carts.carts[newCart.ID] = newCart

	client.CartID = newCart.ID
	client.OrderIDs = append(client.OrderIDs, change.Order.ID)
	s.clients.items[client.ID] = client

	return nil
}

var _ domain.SettlementStore = (*settlementStoreInMemory)(nil)
