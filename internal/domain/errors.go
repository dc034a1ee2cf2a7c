package domain

import "errors"

var (
	// ErrCartNotFound возвращается, если корзина не найдена в хранилище.
	ErrCartNotFound = errors.New("cart not found")
	// ErrClientNotFound возвращается, если клиент не найден.
	ErrClientNotFound = errors.New("client not found")
	// ErrSellerNotFound возвращается, если продавец не найден или неактивен.
	ErrSellerNotFound = errors.New("seller not found")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrVariantNotFound возвращается, если вариант товара не найден.
	ErrVariantNotFound = errors.New("variant not found")
	// ErrLineItemNotFound возвращается, если позиция корзины не найдена.
	ErrLineItemNotFound = errors.New("line item not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrShippingNotFound возвращается, если способ доставки не найден или неактивен.
	ErrShippingNotFound = errors.New("shipping option not found")
	// ErrCurrencyNotFound возвращается, если валюта не найдена.
	ErrCurrencyNotFound = errors.New("currency not found")
	// ErrDeliveryNoteNotFound возвращается, если накладная не найдена.
	ErrDeliveryNoteNotFound = errors.New("delivery note not found")
	// ErrBillNotFound возвращается, если счёт не найден.
	ErrBillNotFound = errors.New("bill not found")

	// ErrProductUnavailable — товар снят с продажи (active=false).
	ErrProductUnavailable = errors.New("product is not available for sale")
	// ErrVariantDisabled — вариант товара отключён и не продаётся.
	ErrVariantDisabled = errors.New("variant is not available for sale")
	// ErrInsufficientStock — запрошенное количество превышает доступный остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrQuantityInvalid — количество должно быть строго положительным.
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")

	// ErrPromoInvalid — промокод не существует или деактивирован.
	ErrPromoInvalid = errors.New("promo code is invalid")
	// ErrPromoExpired — срок действия промокода истёк.
	ErrPromoExpired = errors.New("promo code is expired")

	// ErrStatusTransition — запрошенный переход статуса заказа запрещён FSM.
	ErrStatusTransition = errors.New("illegal order status transition")
	// ErrCartAlreadySettled — по этой корзине уже создан заказ.
	ErrCartAlreadySettled = errors.New("cart is already settled")
	// ErrDeliveryNoteExists — у заказа уже есть накладная.
	ErrDeliveryNoteExists = errors.New("order already has a delivery note")
	// ErrBillExists — по накладной уже выписан счёт.
	ErrBillExists = errors.New("delivery note already has a bill")

	// ErrVersionConflict сигнализирует о конфликте версий при optimistic locking.
	ErrVersionConflict = errors.New("version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки валидации доменных сущностей.
	ErrClientRequired     = errors.New("client_id is required")
	ErrOrderIDRequired    = errors.New("order_id is required")
	ErrItemsRequired      = errors.New("order must contain at least one item")
	ErrAmountNegative     = errors.New("amount must be non-negative")
	ErrItemQtyInvalid     = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid   = errors.New("item price must be non-negative")
	ErrTotalMismatch      = errors.New("order total does not match its components")
	ErrControlNumberEmpty = errors.New("control number is required")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsNotFound группирует ошибки отсутствия сущностей для верхних слоёв.
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrCartNotFound, ErrClientNotFound, ErrSellerNotFound,
		ErrProductNotFound, ErrVariantNotFound, ErrLineItemNotFound,
		ErrOrderNotFound, ErrShippingNotFound, ErrCurrencyNotFound,
		ErrDeliveryNoteNotFound, ErrBillNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
