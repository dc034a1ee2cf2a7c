package settlement

import (
	"math"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

// taxRate — ставка налога. Сейчас ноль; зарезервировано под юрисдикционный
// налог.
const taxRate = 0.0

// Quote — денежная разбивка расчёта. Все суммы в минорных единицах валюты.
type Quote struct {
	SubtotalMinor   int64
	DiscountMinor   int64
	ExtraFeesMinor  int64
	TaxMinor        int64
	TotalMinor      int64
	CommissionMinor int64
}

// ComputeQuote вычисляет разбивку по валидным позициям.
//
//	subtotal   = Σ price × qty
//	discount   = промокод (0 без него), с клампом в [0, subtotal]
//	extraFees  = цена доставки
//	tax        = (subtotal + extraFees − discount) × taxRate
//	total      = subtotal + extraFees − discount + tax
//	commission = (subtotal + extraFees − discount) × ставка продавца
//
// Promo и seller опциональны; nil означает отсутствие.
func ComputeQuote(items []domain.LineItem, promo *domain.PromoCode, shipping domain.Shipping, seller *domain.Seller) Quote {
	var subtotal int64
	for _, item := range items {
		subtotal += item.SubtotalMinor()
	}

	discount := domain.EvaluateDiscount(promo, subtotal)

	extraFees := shipping.PriceMinor
	base := subtotal + extraFees - discount

	tax := int64(math.Round(float64(base) * taxRate))

	var commission int64
	if seller != nil {
		commission = int64(math.Round(float64(base) * seller.CommissionRate))
	}

	return Quote{
		SubtotalMinor:   subtotal,
		DiscountMinor:   discount,
		ExtraFeesMinor:  extraFees,
		TaxMinor:        tax,
		TotalMinor:      base + tax,
		CommissionMinor: commission,
	}
}
