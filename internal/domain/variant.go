package domain

import "time"

// VariantAttrs — выбранная комбинация атрибутов варианта (цвет/размер/и т.п.).
type VariantAttrs struct {
	Variant1 string
	Variant2 string
	Variant3 string
}

// VariantValue — учётная единица склада: конкретный вариант товара
// с собственной ценой и остатком. Инвариант: Quantity >= 0 всегда;
// резервирование никогда не уводит остаток в минус.
type VariantValue struct {
	ID                  string
	ProductID           string
	SKU                 string
	Attrs               VariantAttrs
	PriceMinor          int64
	CompareAtPriceMinor int64
	Quantity            int64
	Photo               string
	Disabled            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Validate проверяет базовые инварианты варианта.
func (v *VariantValue) Validate() []error {
	var errs []error

	if v.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if v.Quantity < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	return errs
}
