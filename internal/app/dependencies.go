package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
	"github.com/vladislavdragonenkov/commerce/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения. Состав одинаков для обоих
// драйверов; PG заполняется только для postgres.
type Dependencies struct {
	Carts      domain.CartRepository
	Clients    domain.ClientRepository
	Sellers    domain.SellerRepository
	Shipping   domain.ShippingRepository
	Promos     domain.PromoCodeRepository
	Products   domain.ProductRepository
	Variants   domain.VariantRepository
	Orders     domain.OrderRepository
	Currencies domain.CurrencyRepository
	Notes      domain.DeliveryNoteRepository
	Bills      domain.BillRepository
	Allocator  domain.ControlNumberAllocator
	Outbox     domain.OutboxRepository
	Timeline   domain.TimelineRepository
	Store      domain.SettlementStore

	PG     *postgres.Store
	Logger *log.Entry
}

// NewDependencies собирает хранилища по выбранному драйверу.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		return newPostgresDependencies(ctx, cfg, logger)
	case StorageDriverMemory, "":
		return newMemoryDependencies(logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}

func newMemoryDependencies(logger *log.Entry) (*Dependencies, error) {
	carts := memory.NewCartRepository()
	clients := memory.NewClientRepository()
	orders := memory.NewOrderRepository()

	store, err := memory.NewSettlementStore(carts, orders, clients)
	if err != nil {
		return nil, fmt.Errorf("build settlement store: %w", err)
	}

	logger.Info("using in-memory storage")

	return &Dependencies{
		Carts:      carts,
		Clients:    clients,
		Sellers:    memory.NewSellerRepository(),
		Shipping:   memory.NewShippingRepository(),
		Promos:     memory.NewPromoCodeRepository(),
		Products:   memory.NewProductRepository(),
		Variants:   memory.NewVariantRepository(),
		Orders:     orders,
		Currencies: memory.NewCurrencyRepository(),
		Notes:      memory.NewDeliveryNoteRepository(),
		Bills:      memory.NewBillRepository(),
		Allocator:  memory.NewControlNumberAllocator(),
		Outbox:     memory.NewOutboxRepository(),
		Timeline:   memory.NewTimelineRepository(),
		Store:      store,
		Logger:     logger,
	}, nil
}

func newPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres storage requires COMMERCE_POSTGRES_DSN")
	}

	pg, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	if cfg.PostgresAutoMigrate {
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	logger.Info("using postgres storage")

	return &Dependencies{
		Carts:      postgres.NewCartRepository(pg),
		Clients:    postgres.NewClientRepository(pg),
		Sellers:    postgres.NewSellerRepository(pg),
		Shipping:   postgres.NewShippingRepository(pg),
		Promos:     postgres.NewPromoCodeRepository(pg),
		Products:   postgres.NewProductRepository(pg),
		Variants:   postgres.NewVariantRepository(pg),
		Orders:     postgres.NewOrderRepository(pg),
		Currencies: postgres.NewCurrencyRepository(pg),
		Notes:      postgres.NewDeliveryNoteRepository(pg),
		Bills:      postgres.NewBillRepository(pg),
		Allocator:  postgres.NewControlNumberAllocator(pg),
		Outbox:     postgres.NewOutboxRepository(pg),
		Timeline:   postgres.NewTimelineRepository(pg),
		Store:      postgres.NewSettlementStore(pg),
		PG:         pg,
		Logger:     logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d == nil || d.PG == nil {
		return
	}
	if err := d.PG.Close(); err != nil {
		d.Logger.WithError(err).Warn("close postgres store failed")
	}
}
