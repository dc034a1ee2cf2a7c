package domain

import "time"

// LineItem — позиция корзины или заказа: снапшот атрибутов товара и варианта
// на момент добавления плюс изменяемое количество. Позиция принадлежит либо
// ровно одной корзине, либо ровно одному заказу — передача владения происходит
// одним атомарным шагом при расчёте заказа.
type LineItem struct {
	ID string

	// Снапшот товара на момент добавления в корзину.
	Title     string
	Brand     string
	Photo     string
	IsService bool
	Active    bool

	// Снапшот выбранного варианта.
	SKU        string
	Attrs      VariantAttrs
	PriceMinor int64

	Quantity int64

	ProductID      string
	VariantValueID string

	// Владелец позиции: заполнено ровно одно из двух полей.
	CartID  string
	OrderID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет количественные инварианты позиции.
func (li *LineItem) Validate() []error {
	var errs []error

	if li.Quantity < 0 {
		errs = append(errs, ErrItemQtyInvalid)
	}
	if li.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}

	return errs
}

// SubtotalMinor возвращает стоимость позиции: цена × количество.
func (li *LineItem) SubtotalMinor() int64 {
	return li.PriceMinor * li.Quantity
}

// Cart — корзина клиента. У клиента в каждый момент ровно одна открытая
// корзина; при успешном расчёте заказа корзина не мутируется, а заменяется
// новой пустой.
type Cart struct {
	ID        string
	ClientID  string
	Items     []LineItem
	Settled   bool // true после того, как по корзине создан заказ
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindItem возвращает позицию по идентификатору или nil.
func (c *Cart) FindItem(lineItemID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ID == lineItemID {
			return &c.Items[i]
		}
	}
	return nil
}

// FindItemByVariant ищет позицию с той же парой (товар, вариант) —
// повторное добавление такой пары увеличивает количество вместо
// создания новой позиции.
func (c *Cart) FindItemByVariant(productID, variantValueID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantValueID == variantValueID {
			return &c.Items[i]
		}
	}
	return nil
}
