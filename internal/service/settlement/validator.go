package settlement

import (
	"errors"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// Validator перепроверяет позиции корзины против живого каталога на момент
// расчёта. Позиция, которая была валидна при добавлении, могла устареть:
// товар сняли с продажи, вариант отключили.
type Validator struct {
	products domain.ProductRepository
	variants domain.VariantRepository
}

// NewValidator конструирует валидатор позиций.
func NewValidator(products domain.ProductRepository, variants domain.VariantRepository) *Validator {
	return &Validator{products: products, variants: variants}
}

// ValidateItems разделяет позиции на валидные и инвалидированные.
// Инвалидируются позиции с неактивным или отсутствующим товаром, отключённым
// или отсутствующим вариантом и позиции с нулевым количеством. Резерв
// инвалидированных позиций валидатор не трогает; его возвращает оркестратор.
func (v *Validator) ValidateItems(items []domain.LineItem) (valid, invalid []domain.LineItem) {
	for _, item := range items {
		if !v.itemValid(item) {
			invalid = append(invalid, item)
			continue
		}
		valid = append(valid, item)
	}
	return valid, invalid
}

func (v *Validator) itemValid(item domain.LineItem) bool {
	if item.Quantity <= 0 {
		return false
	}

	product, err := v.products.Get(item.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return false
		}
		// Ошибка хранилища трактуется как инвалидация: лучше выкинуть
		// позицию из заказа, чем продать недоступный товар.
		return false
	}
	if !product.Active {
		return false
	}

	variant, err := v.variants.Get(item.VariantValueID)
	if err != nil {
		return false
	}
	if variant.Disabled {
		return false
	}
	// Остаток позиции уже удержан в реестре при добавлении в корзину, поэтому
	// внешнее сокращение остатка не может затронуть её резерв.
	return true
}
