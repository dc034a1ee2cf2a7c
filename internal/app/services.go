package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
	"github.com/vladislavdragonenkov/commerce/internal/service/cart"
	"github.com/vladislavdragonenkov/commerce/internal/service/document"
	"github.com/vladislavdragonenkov/commerce/internal/service/settlement"
)

// Services — доменные сервисы поверх хранилищ.
type Services struct {
	Cart       *cart.Service
	Documents  *document.Manager
	Settlement *settlement.Service
	Metrics    *metrics.SettlementMetrics
}

// buildServices собирает сервисный слой. Producer опционален: без Kafka
// события остаются в outbox и публикуются только воркером.
func buildServices(deps *Dependencies, producer *kafka.Producer, logger *log.Entry) *Services {
	m := metrics.NewSettlementMetrics()

	documents := document.NewManager(
		deps.Orders,
		deps.Notes,
		deps.Bills,
		deps.Currencies,
		deps.Allocator,
		deps.Outbox,
		deps.Timeline,
		m,
		logger.WithField("component", "document"),
	)

	settlementSvc := settlement.NewService(settlement.Deps{
		Carts:     deps.Carts,
		Clients:   deps.Clients,
		Sellers:   deps.Sellers,
		Shipping:  deps.Shipping,
		Promos:    deps.Promos,
		Orders:    deps.Orders,
		Products:  deps.Products,
		Variants:  deps.Variants,
		Store:     deps.Store,
		Outbox:    deps.Outbox,
		Timeline:  deps.Timeline,
		Documents: documents,
		Producer:  producer,
	}, logger.WithField("component", "settlement"))

	cartSvc := cart.NewService(
		deps.Carts,
		deps.Products,
		deps.Variants,
		logger.WithField("component", "cart"),
	)

	return &Services{
		Cart:       cartSvc,
		Documents:  documents,
		Settlement: settlementSvc,
		Metrics:    m,
	}
}
