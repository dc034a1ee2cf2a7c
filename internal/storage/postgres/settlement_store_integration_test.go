package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

type settlementFixture struct {
	store   *Store
	carts   domain.CartRepository
	orders  domain.OrderRepository
	clients domain.ClientRepository
	commit  domain.SettlementStore
}

func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()

	store := openPostgresStoreForIntegrationTest(t)

	f := &settlementFixture{
		store:   store,
		carts:   NewCartRepository(store),
		orders:  NewOrderRepository(store),
		clients: NewClientRepository(store),
		commit:  NewSettlementStore(store),
	}

	if err := f.clients.Create(domain.Client{ID: "client-1", Phone: "555-0100", CartID: "cart-1"}); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if err := f.carts.Create(domain.Cart{ID: "cart-1", ClientID: "client-1"}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	for _, item := range []domain.LineItem{
		{ID: "item-valid", Title: "Camiseta", PriceMinor: 1500, Quantity: 2, ProductID: "p1", VariantValueID: "v1", CartID: "cart-1"},
		{ID: "item-dropped", Title: "Gorra", PriceMinor: 900, Quantity: 1, ProductID: "p2", VariantValueID: "v2", CartID: "cart-1"},
	} {
		if err := f.carts.AddItem(item); err != nil {
			t.Fatalf("seed item %s: %v", item.ID, err)
		}
	}

	return f
}

func (f *settlementFixture) change() domain.SettlementChange {
	now := time.Now().UTC()
	return domain.SettlementChange{
		Order: domain.Order{
			ID:            "order-1",
			Code:          now.UnixMilli(),
			Status:        domain.OrderStatusPendingPayment,
			SubtotalMinor: 3000,
			TotalMinor:    3000,
			ClientID:      "client-1",
			Phone:         "555-0100",
			Address:       "N/A",
			Rate:          100,
			SourceCartID:  "cart-1",
			CreatedAt:     now,
			UpdatedAt:     now,
			Items: []domain.LineItem{
				{ID: "item-valid", Title: "Camiseta", PriceMinor: 1500, Quantity: 2, ProductID: "p1", VariantValueID: "v1", OrderID: "order-1"},
			},
		},
		AttachItemIDs: []string{"item-valid"},
		DeleteItemIDs: []string{"item-dropped"},
		NewCart:       domain.Cart{ID: "cart-2", ClientID: "client-1"},
		ClientID:      "client-1",
	}
}

func TestSettlementStore_CommitAppliesAllWrites(t *testing.T) {
	f := newSettlementFixture(t)

	if err := f.commit.Commit(f.change()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	order, err := f.orders.Get("order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].ID != "item-valid" {
		t.Fatalf("unexpected order items: %+v", order.Items)
	}
	if order.Items[0].CartID != "" || order.Items[0].OrderID != "order-1" {
		t.Fatalf("ownership not transferred: %+v", order.Items[0])
	}

	if _, err := f.carts.GetItem("item-dropped"); !errors.Is(err, domain.ErrLineItemNotFound) {
		t.Fatalf("expected dropped item to be deleted, got %v", err)
	}

	oldCart, err := f.carts.Get("cart-1")
	if err != nil {
		t.Fatalf("get old cart: %v", err)
	}
	if !oldCart.Settled || len(oldCart.Items) != 0 {
		t.Fatalf("old cart not settled/emptied: settled=%v items=%d", oldCart.Settled, len(oldCart.Items))
	}

	newCart, err := f.carts.Get("cart-2")
	if err != nil {
		t.Fatalf("get new cart: %v", err)
	}
	if newCart.Settled || len(newCart.Items) != 0 {
		t.Fatalf("new cart must be open and empty: %+v", newCart)
	}

	client, err := f.clients.Get("client-1")
	if err != nil {
		t.Fatalf("get client: %v", err)
	}
	if client.CartID != "cart-2" {
		t.Fatalf("client not redirected: cart_id=%s", client.CartID)
	}
	if len(client.OrderIDs) != 1 || client.OrderIDs[0] != "order-1" {
		t.Fatalf("client order list not updated: %+v", client.OrderIDs)
	}

	byCart, err := f.orders.GetBySourceCart("cart-1")
	if err != nil {
		t.Fatalf("get by source cart: %v", err)
	}
	if byCart.ID != "order-1" {
		t.Fatalf("expected order-1 by source cart, got %s", byCart.ID)
	}
}

func TestSettlementStore_SecondCommitRejected(t *testing.T) {
	f := newSettlementFixture(t)

	if err := f.commit.Commit(f.change()); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	second := f.change()
	second.Order.ID = "order-2"
	second.NewCart.ID = "cart-3"
	if err := f.commit.Commit(second); !errors.Is(err, domain.ErrCartAlreadySettled) {
		t.Fatalf("expected ErrCartAlreadySettled, got %v", err)
	}

	// Повторный проигравший commit не оставляет следов.
	if _, err := f.orders.Get("order-2"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected no order-2, got %v", err)
	}
	if _, err := f.carts.Get("cart-3"); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected no cart-3, got %v", err)
	}
}

func TestSettlementStore_MissingCart(t *testing.T) {
	f := newSettlementFixture(t)

	change := f.change()
	change.Order.SourceCartID = "cart-x"
	if err := f.commit.Commit(change); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}

	// Исходная корзина не тронута.
	cart, err := f.carts.Get("cart-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if cart.Settled || len(cart.Items) != 2 {
		t.Fatalf("cart must be unchanged: settled=%v items=%d", cart.Settled, len(cart.Items))
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	f := newSettlementFixture(t)

	if err := f.commit.Commit(f.change()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	order, err := f.orders.Get("order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}

	order.Status = domain.OrderStatusAdminReview
	if err := f.orders.Save(order); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Сохранение с устаревшей версией отклоняется.
	if err := f.orders.Save(order); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	reloaded, err := f.orders.Get("order-1")
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Status != domain.OrderStatusAdminReview {
		t.Fatalf("expected admin_review status, got %s", reloaded.Status)
	}
	if reloaded.Version != order.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", order.Version+1, reloaded.Version)
	}
}
