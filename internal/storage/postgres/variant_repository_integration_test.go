package postgres

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func seedVariantForIntegrationTest(t *testing.T, store *Store, id string, qty int64, disabled bool) {
	t.Helper()

	products := NewProductRepository(store)
	if err := products.Create(domain.Product{ID: "product-" + id, Title: "Test", Active: true}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	variants := NewVariantRepository(store)
	if err := variants.Create(domain.VariantValue{
		ID:         id,
		ProductID:  "product-" + id,
		SKU:        "SKU-" + id,
		PriceMinor: 1000,
		Quantity:   qty,
		Disabled:   disabled,
	}); err != nil {
		t.Fatalf("seed variant: %v", err)
	}
}

func TestVariantRepository_TryReserveAndRelease(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewVariantRepository(store)

	seedVariantForIntegrationTest(t, store, "variant-stock", 5, false)

	if err := repo.TryReserve("variant-stock", 3); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	v, err := repo.Get("variant-stock")
	if err != nil {
		t.Fatalf("get variant: %v", err)
	}
	if v.Quantity != 2 {
		t.Fatalf("expected quantity 2 after reserve, got %d", v.Quantity)
	}

	if err := repo.TryReserve("variant-stock", 3); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if err := repo.Release("variant-stock", 3); err != nil {
		t.Fatalf("release: %v", err)
	}
	v, err = repo.Get("variant-stock")
	if err != nil {
		t.Fatalf("get variant after release: %v", err)
	}
	if v.Quantity != 5 {
		t.Fatalf("expected quantity restored to 5, got %d", v.Quantity)
	}
}

func TestVariantRepository_TryReserveFailures(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewVariantRepository(store)

	seedVariantForIntegrationTest(t, store, "variant-disabled", 10, true)

	if err := repo.TryReserve("variant-missing", 1); !errors.Is(err, domain.ErrVariantNotFound) {
		t.Fatalf("expected ErrVariantNotFound, got %v", err)
	}
	if err := repo.TryReserve("variant-disabled", 1); !errors.Is(err, domain.ErrVariantDisabled) {
		t.Fatalf("expected ErrVariantDisabled, got %v", err)
	}
	if err := repo.TryReserve("variant-disabled", 0); !errors.Is(err, domain.ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
}

func TestVariantRepository_ConcurrentReserveNeverOversells(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewVariantRepository(store)

	seedVariantForIntegrationTest(t, store, "variant-race", 10, false)

	const workers = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.TryReserve("variant-race", 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful reservations, got %d", succeeded)
	}

	v, err := repo.Get("variant-race")
	if err != nil {
		t.Fatalf("get variant: %v", err)
	}
	if v.Quantity != 0 {
		t.Fatalf("expected quantity 0 after draining stock, got %d", v.Quantity)
	}
}
