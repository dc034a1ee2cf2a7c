package cart

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// Service реализует операции над корзиной: добавление, удаление и изменение
// количества позиций. Каждая мутация сопровождается зеркальной операцией в
// складском реестре, так что сумма «остаток + зарезервировано в корзинах»
// по варианту сохраняется.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	variants domain.VariantRepository
	logger   *log.Entry
}

// NewService конструирует сервис корзины.
func NewService(
	carts domain.CartRepository,
	products domain.ProductRepository,
	variants domain.VariantRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		carts:    carts,
		products: products,
		variants: variants,
		logger:   logger,
	}
}

// AddItem добавляет qty единиц варианта в корзину. Резерв списывается один
// раз на вызов ровно на добавляемую дельту; если пара (товар, вариант) уже
// есть в корзине, увеличивается количество существующей позиции.
func (s *Service) AddItem(cartID, productID, variantID string, qty int64) (domain.Cart, error) {
	if qty <= 0 {
		return domain.Cart{}, domain.ErrQuantityInvalid
	}

	cart, err := s.carts.Get(cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart.Settled {
		return domain.Cart{}, domain.ErrCartAlreadySettled
	}

	product, err := s.products.Get(productID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !product.Active {
		return domain.Cart{}, domain.ErrProductUnavailable
	}

	variant, err := s.variants.Get(variantID)
	if err != nil {
		return domain.Cart{}, err
	}
	if variant.Disabled {
		return domain.Cart{}, domain.ErrVariantDisabled
	}

	// Атомарный check-and-decrement; после этой точки резерв взят и любой
	// сбой ниже компенсируется обратным Release.
	if err := s.variants.TryReserve(variantID, qty); err != nil {
		return domain.Cart{}, err
	}

	if existing := cart.FindItemByVariant(productID, variantID); existing != nil {
		item := *existing
		item.Quantity += qty
		item.UpdatedAt = time.Now().UTC()
		if err := s.carts.SaveItem(item); err != nil {
			s.compensateReserve(variantID, qty)
			return domain.Cart{}, err
		}
	} else {
		now := time.Now().UTC()
		item := domain.LineItem{
			ID:        uuid.NewString(),
			Title:     product.Title,
			Brand:     product.Brand,
			Photo:     product.Photo,
			IsService: product.IsService,
			Active:    product.Active,

			SKU:        variant.SKU,
			Attrs:      variant.Attrs,
			PriceMinor: variant.PriceMinor,

			Quantity: qty,

			ProductID:      productID,
			VariantValueID: variantID,
			CartID:         cartID,

			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.carts.AddItem(item); err != nil {
			s.compensateReserve(variantID, qty)
			return domain.Cart{}, err
		}
	}

	s.logger.WithFields(log.Fields{
		"cart_id":    cartID,
		"product_id": productID,
		"variant_id": variantID,
		"qty":        qty,
	}).Debug("item added to cart")

	return s.carts.Get(cartID)
}

// RemoveItem удаляет позицию и возвращает весь её резерв на остаток.
func (s *Service) RemoveItem(cartID, lineItemID string) (domain.Cart, error) {
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart.Settled {
		return domain.Cart{}, domain.ErrCartAlreadySettled
	}

	item, err := s.carts.GetItem(lineItemID)
	if err != nil {
		return domain.Cart{}, err
	}
	if item.CartID != cartID {
		return domain.Cart{}, domain.ErrLineItemNotFound
	}

	if err := s.carts.RemoveItem(lineItemID); err != nil {
		return domain.Cart{}, err
	}

	if item.Quantity > 0 {
		if err := s.variants.Release(item.VariantValueID, item.Quantity); err != nil {
			// Вариант мог быть удалён из каталога; резерв при этом теряется.
			s.logger.WithError(err).WithFields(log.Fields{
				"cart_id":    cartID,
				"variant_id": item.VariantValueID,
				"qty":        item.Quantity,
			}).Warn("release after item removal failed")
		}
	}

	return s.carts.Get(cartID)
}

// IncreaseItem увеличивает количество позиции на единицу, резервируя
// единицу остатка. Возвращает ErrInsufficientStock, если остатка нет.
func (s *Service) IncreaseItem(cartID, lineItemID string) (domain.Cart, error) {
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart.Settled {
		return domain.Cart{}, domain.ErrCartAlreadySettled
	}

	item, err := s.carts.GetItem(lineItemID)
	if err != nil {
		return domain.Cart{}, err
	}
	if item.CartID != cartID {
		return domain.Cart{}, domain.ErrLineItemNotFound
	}

	if err := s.variants.TryReserve(item.VariantValueID, 1); err != nil {
		return domain.Cart{}, err
	}

	item.Quantity++
	item.UpdatedAt = time.Now().UTC()
	if err := s.carts.SaveItem(item); err != nil {
		s.compensateReserve(item.VariantValueID, 1)
		return domain.Cart{}, err
	}

	return s.carts.Get(cartID)
}

// DecreaseItem уменьшает количество позиции на единицу и возвращает единицу
// на остаток. На нулевом количестве — no-op: удаление позиции остаётся
// решением вызывающей стороны.
func (s *Service) DecreaseItem(cartID, lineItemID string) (domain.Cart, error) {
	cart, err := s.carts.Get(cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart.Settled {
		return domain.Cart{}, domain.ErrCartAlreadySettled
	}

	item, err := s.carts.GetItem(lineItemID)
	if err != nil {
		return domain.Cart{}, err
	}
	if item.CartID != cartID {
		return domain.Cart{}, domain.ErrLineItemNotFound
	}

	if item.Quantity == 0 {
		return cart, nil
	}

	item.Quantity--
	item.UpdatedAt = time.Now().UTC()
	if err := s.carts.SaveItem(item); err != nil {
		return domain.Cart{}, err
	}

	if err := s.variants.Release(item.VariantValueID, 1); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"cart_id":    cartID,
			"variant_id": item.VariantValueID,
		}).Warn("release after decrease failed")
	}

	return s.carts.Get(cartID)
}

// compensateReserve возвращает резерв после неудачной записи позиции.
func (s *Service) compensateReserve(variantID string, qty int64) {
	if err := s.variants.Release(variantID, qty); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"variant_id": variantID,
			"qty":        qty,
		}).Error("compensating release failed")
	}
}
