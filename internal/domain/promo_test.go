package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func TestEvaluateDiscount(t *testing.T) {
	cases := []struct {
		name     string
		promo    *domain.PromoCode
		subtotal int64
		want     int64
	}{
		{
			name:     "no promo",
			promo:    nil,
			subtotal: 10000,
			want:     0,
		},
		{
			name:     "fixed amount",
			promo:    &domain.PromoCode{Code: "FLAT", Fixed: true, Discount: 500},
			subtotal: 10000,
			want:     500,
		},
		{
			name:     "ten percent",
			promo:    &domain.PromoCode{Code: "TEN", Percentage: true, Discount: 10},
			subtotal: 10000,
			want:     1000,
		},
		{
			name:     "percentage wins over fixed",
			promo:    &domain.PromoCode{Code: "BOTH", Fixed: true, Percentage: true, Discount: 10},
			subtotal: 10000,
			want:     1000,
		},
		{
			name:     "fixed above subtotal clamps to full waiver",
			promo:    &domain.PromoCode{Code: "BIG", Fixed: true, Discount: 20000},
			subtotal: 10000,
			want:     10000,
		},
		{
			name:     "negative discount clamps to full waiver",
			promo:    &domain.PromoCode{Code: "NEG", Fixed: true, Discount: -300},
			subtotal: 10000,
			want:     10000,
		},
		{
			name:     "percentage rounds to nearest minor unit",
			promo:    &domain.PromoCode{Code: "ODD", Percentage: true, Discount: 3},
			subtotal: 999,
			want:     30, // 29.97 -> 30
		},
		{
			name:     "zero subtotal",
			promo:    &domain.PromoCode{Code: "TEN", Percentage: true, Discount: 10},
			subtotal: 0,
			want:     0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.EvaluateDiscount(tc.promo, tc.subtotal); got != tc.want {
				t.Fatalf("expected discount %d, got %d", tc.want, got)
			}
		})
	}
}

func TestPromoCodeExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	promo := domain.PromoCode{Code: "SOON", ExpirationDate: now.Add(time.Hour)}
	if promo.Expired(now) {
		t.Fatalf("promo expiring in an hour must not be expired")
	}

	promo.ExpirationDate = now
	if !promo.Expired(now) {
		t.Fatalf("expirationDate == now counts as expired")
	}

	promo.ExpirationDate = now.Add(-time.Minute)
	if !promo.Expired(now) {
		t.Fatalf("past expirationDate must be expired")
	}
}
