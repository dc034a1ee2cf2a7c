package settlement

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func items(priceMinor, qty int64) []domain.LineItem {
	return []domain.LineItem{{
		ID:         "item-1",
		Title:      "Camiseta",
		PriceMinor: priceMinor,
		Quantity:   qty,
	}}
}

func TestComputeQuote_PercentagePromo(t *testing.T) {
	promo := &domain.PromoCode{
		Code:           "TEN",
		Discount:       10,
		Percentage:     true,
		Active:         true,
		ExpirationDate: time.Now().Add(time.Hour),
	}
	shipping := domain.Shipping{ID: "ship-1", PriceMinor: 500, Active: true}

	quote := ComputeQuote(items(10000, 1), promo, shipping, nil)

	if quote.SubtotalMinor != 10000 {
		t.Fatalf("expected subtotal 10000, got %d", quote.SubtotalMinor)
	}
	if quote.DiscountMinor != 1000 {
		t.Fatalf("expected discount 1000, got %d", quote.DiscountMinor)
	}
	if quote.ExtraFeesMinor != 500 {
		t.Fatalf("expected extra fees 500, got %d", quote.ExtraFeesMinor)
	}
	if quote.TaxMinor != 0 {
		t.Fatalf("expected tax 0, got %d", quote.TaxMinor)
	}
	if quote.TotalMinor != 9500 {
		t.Fatalf("expected total 9500, got %d", quote.TotalMinor)
	}
}

func TestComputeQuote_FixedPromoClampsToSubtotal(t *testing.T) {
	promo := &domain.PromoCode{
		Code:     "BIG",
		Discount: 20000,
		Fixed:    true,
		Active:   true,
	}
	shipping := domain.Shipping{ID: "ship-1", PriceMinor: 500, Active: true}

	quote := ComputeQuote(items(10000, 1), promo, shipping, nil)

	if quote.DiscountMinor != 10000 {
		t.Fatalf("expected discount clamped to 10000, got %d", quote.DiscountMinor)
	}
	// Полное списание: остаётся только доставка.
	if quote.TotalMinor != 500 {
		t.Fatalf("expected total 500, got %d", quote.TotalMinor)
	}
}

func TestComputeQuote_NoPromoNoSeller(t *testing.T) {
	shipping := domain.Shipping{ID: "ship-1", PriceMinor: 250, Active: true}

	quote := ComputeQuote(items(1500, 3), nil, shipping, nil)

	if quote.SubtotalMinor != 4500 {
		t.Fatalf("expected subtotal 4500, got %d", quote.SubtotalMinor)
	}
	if quote.DiscountMinor != 0 || quote.CommissionMinor != 0 {
		t.Fatalf("expected zero discount and commission, got %d/%d", quote.DiscountMinor, quote.CommissionMinor)
	}
	if quote.TotalMinor != 4750 {
		t.Fatalf("expected total 4750, got %d", quote.TotalMinor)
	}
}

func TestComputeQuote_SellerCommission(t *testing.T) {
	shipping := domain.Shipping{ID: "ship-1", PriceMinor: 0, Active: true}
	seller := &domain.Seller{ID: "seller-1", CommissionRate: 0.1, Active: true}

	quote := ComputeQuote(items(10000, 1), nil, shipping, seller)

	if quote.CommissionMinor != 1000 {
		t.Fatalf("expected commission 1000, got %d", quote.CommissionMinor)
	}
	// Комиссия не входит в total.
	if quote.TotalMinor != 10000 {
		t.Fatalf("expected total 10000, got %d", quote.TotalMinor)
	}
}
