package domain

import "time"

// VariantRepository — складской реестр: хранение вариантов и атомарные
// операции резервирования остатка.
type VariantRepository interface {
	// Get возвращает вариант или ErrVariantNotFound.
	Get(id string) (VariantValue, error)
	// Create сохраняет новый вариант.
	Create(v VariantValue) error
	// TryReserve атомарно проверяет и списывает остаток одним шагом.
	// Возвращает ErrInsufficientStock, если остатка не хватает,
	// ErrVariantDisabled для отключённого варианта. Частичного списания
	// не бывает; остаток никогда не наблюдается отрицательным.
	TryReserve(id string, qty int64) error
	// Release атомарно возвращает количество на остаток.
	Release(id string, qty int64) error
}

// ProductRepository — каталог товаров (read-mostly для пайплайна заказа).
type ProductRepository interface {
	Get(id string) (Product, error)
	Create(p Product) error
}

// CartRepository хранит корзины и их позиции.
type CartRepository interface {
	// Get возвращает корзину с загруженными позициями или ErrCartNotFound.
	Get(id string) (Cart, error)
	// Create сохраняет новую пустую корзину.
	Create(cart Cart) error
	// AddItem добавляет позицию в корзину.
	AddItem(item LineItem) error
	// GetItem возвращает позицию или ErrLineItemNotFound.
	GetItem(lineItemID string) (LineItem, error)
	// SaveItem перезаписывает позицию (изменение количества).
	SaveItem(item LineItem) error
	// RemoveItem удаляет позицию из корзины.
	RemoveItem(lineItemID string) error
}

// ClientRepository хранит покупателей.
type ClientRepository interface {
	Get(id string) (Client, error)
	Create(c Client) error
	Save(c Client) error
}

// SellerRepository хранит продавцов. Get возвращает ErrSellerNotFound
// для отсутствующего или неактивного продавца.
type SellerRepository interface {
	Get(id string) (Seller, error)
	Create(s Seller) error
}

// OrderRepository — хранилище заказов с optimistic locking по Version.
type OrderRepository interface {
	Create(order Order) error
	Get(id string) (Order, error)
	// GetBySourceCart возвращает заказ, созданный из указанной корзины,
	// или ErrOrderNotFound. Обеспечивает идемпотентность расчёта по cart id.
	GetBySourceCart(cartID string) (Order, error)
	ListByClient(clientID string, limit int) ([]Order, error)
	// Save применяет обновления с проверкой версии.
	Save(order Order) error
}

// PromoCodeRepository хранит промокоды. Пайплайн заказа их не мутирует.
type PromoCodeRepository interface {
	// GetByCode возвращает активный промокод или ErrPromoInvalid.
	GetByCode(code string) (PromoCode, error)
	Create(p PromoCode) error
}

// ShippingRepository хранит способы доставки.
type ShippingRepository interface {
	// Get возвращает активный способ доставки или ErrShippingNotFound.
	Get(id string) (Shipping, error)
	Create(s Shipping) error
}

// CurrencyRepository хранит валюты.
type CurrencyRepository interface {
	Get(id string) (Currency, error)
	Create(c Currency) error
}

// DeliveryNoteRepository хранит накладные.
type DeliveryNoteRepository interface {
	Create(note DeliveryNote) error
	Get(id string) (DeliveryNote, error)
	// GetByOrder возвращает накладную заказа или ErrDeliveryNoteNotFound.
	GetByOrder(orderID string) (DeliveryNote, error)
	Save(note DeliveryNote) error
	// ListControlNumbers возвращает все выданные номера серии
	// (для первичного заполнения счётчика).
	ListControlNumbers() ([]string, error)
}

// BillRepository хранит счета.
type BillRepository interface {
	Create(bill Bill) error
	Get(id string) (Bill, error)
	GetByOrder(orderID string) (Bill, error)
	ListControlNumbers() ([]string, error)
}

// ControlNumberAllocator выдаёт следующий контрольный номер серии.
// Реализация обязана быть линеаризуемой: два конкурентных Next по одной
// серии никогда не возвращают одинаковый номер.
type ControlNumberAllocator interface {
	Next(series DocumentSeries) (string, error)
}

// SettlementChange — атомарная единица записи при расчёте корзины:
// создание заказа, передача владения валидными позициями, удаление
// инвалидированных, создание новой корзины и перенаправление клиента.
// Commit либо применяет всё, либо ничего.
type SettlementChange struct {
	Order         Order
	AttachItemIDs []string
	DeleteItemIDs []string
	NewCart       Cart
	ClientID      string
}

// SettlementStore выполняет многосущностную запись расчёта одной
// транзакцией хранилища.
type SettlementStore interface {
	Commit(change SettlementChange) error
}

// OutboxMessage хранит данные публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
	// DeleteSentBefore удаляет отправленные записи старше before (retention).
	DeleteSentBefore(before time.Time, limit int) (int, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}
