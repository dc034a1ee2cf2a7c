package domain

import (
	"math"
	"time"
)

// PromoCode — промокод. Ровно один из флагов Fixed/Percentage определяет
// трактовку Discount: фиксированная сумма в минорных единицах либо процент
// от subtotal. При обоих выставленных флагах приоритет у Percentage
// (поведение исходной системы). Пайплайн заказа промокод не мутирует.
type PromoCode struct {
	ID             string
	Slug           string
	Name           string
	Code           string
	Discount       float64
	Fixed          bool
	Percentage     bool
	ExpirationDate time.Time
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired сообщает, истёк ли срок действия промокода к моменту now.
// Граница включительно: expirationDate == now считается истёкшим.
func (p *PromoCode) Expired(now time.Time) bool {
	return !p.ExpirationDate.After(now)
}

// EvaluateDiscount — чистая функция промо-оценки: превращает промокод
// в сумму скидки для данного subtotal. Без побочных эффектов.
//
// Скидка зажимается в диапазон [0, subtotal]: отрицательное значение
// (некорректно заведённый промокод) трактуется как полное списание,
// фиксированная скидка больше subtotal — тоже.
func EvaluateDiscount(promo *PromoCode, subtotalMinor int64) int64 {
	if promo == nil {
		return 0
	}

	var discount int64
	if promo.Fixed {
		discount = int64(math.Round(promo.Discount))
	}
	if promo.Percentage {
		discount = int64(math.Round(float64(subtotalMinor) * promo.Discount / 100))
	}

	if discount < 0 || discount > subtotalMinor {
		discount = subtotalMinor
	}
	return discount
}
