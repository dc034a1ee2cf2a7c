package integration

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	cartsvc "github.com/vladislavdragonenkov/commerce/internal/service/cart"
	"github.com/vladislavdragonenkov/commerce/internal/service/document"
	"github.com/vladislavdragonenkov/commerce/internal/service/settlement"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
)

// SettlementLifecycleTestSuite тестирует полный жизненный цикл заказа:
// корзина → расчёт → оплата → накладная → счёт.
type SettlementLifecycleTestSuite struct {
	suite.Suite

	carts    domain.CartRepository
	clients  domain.ClientRepository
	orders   domain.OrderRepository
	products domain.ProductRepository
	variants domain.VariantRepository
	shipping domain.ShippingRepository
	promos   domain.PromoCodeRepository
	notes    domain.DeliveryNoteRepository
	bills    domain.BillRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository

	cartSvc    *cartsvc.Service
	settlement *settlement.Service
	documents  *document.Manager
}

func (suite *SettlementLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	suite.carts = memory.NewCartRepository()
	suite.clients = memory.NewClientRepository()
	suite.orders = memory.NewOrderRepository()
	suite.products = memory.NewProductRepository()
	suite.variants = memory.NewVariantRepository()
	suite.shipping = memory.NewShippingRepository()
	suite.promos = memory.NewPromoCodeRepository()
	sellers := memory.NewSellerRepository()
	currencies := memory.NewCurrencyRepository()
	suite.notes = memory.NewDeliveryNoteRepository()
	suite.bills = memory.NewBillRepository()
	allocator := memory.NewControlNumberAllocator()
	suite.outbox = memory.NewOutboxRepository()
	suite.timeline = memory.NewTimelineRepository()

	store, err := memory.NewSettlementStore(suite.carts, suite.orders, suite.clients)
	require.NoError(suite.T(), err)

	suite.documents = document.NewManager(
		suite.orders,
		suite.notes,
		suite.bills,
		currencies,
		allocator,
		suite.outbox,
		suite.timeline,
		nil,
		logger,
	)

	suite.settlement = settlement.NewServiceWithoutMetrics(settlement.Deps{
		Carts:     suite.carts,
		Clients:   suite.clients,
		Sellers:   sellers,
		Shipping:  suite.shipping,
		Promos:    suite.promos,
		Orders:    suite.orders,
		Products:  suite.products,
		Variants:  suite.variants,
		Store:     store,
		Outbox:    suite.outbox,
		Timeline:  suite.timeline,
		Documents: suite.documents,
	}, logger)

	suite.cartSvc = cartsvc.NewService(suite.carts, suite.products, suite.variants, logger)

	// Общие справочники
	require.NoError(suite.T(), suite.shipping.Create(domain.Shipping{
		ID:         "ship-std",
		Slug:       "standard",
		Name:       "Standard Shipping",
		PriceMinor: 500,
		Active:     true,
	}))
	require.NoError(suite.T(), currencies.Create(domain.Currency{
		ID:     "cur-ves",
		Slug:   "ves",
		Name:   "Bolívar",
		Symbol: "Bs.",
		Rate:   36.5,
		Active: true,
	}))
}

// seedCatalog создаёт товар с вариантом и возвращает их идентификаторы.
func (suite *SettlementLifecycleTestSuite) seedCatalog(id string, priceMinor, stock int64) (productID, variantID string) {
	productID = "prod-" + id
	variantID = "var-" + id

	require.NoError(suite.T(), suite.products.Create(domain.Product{
		ID:     productID,
		Title:  "Product " + id,
		Active: true,
	}))
	require.NoError(suite.T(), suite.variants.Create(domain.VariantValue{
		ID:         variantID,
		ProductID:  productID,
		SKU:        "SKU-" + id,
		PriceMinor: priceMinor,
		Quantity:   stock,
	}))
	return productID, variantID
}

// seedClientWithCart создаёт клиента с привязанной открытой корзиной.
func (suite *SettlementLifecycleTestSuite) seedClientWithCart(clientID, cartID string) {
	require.NoError(suite.T(), suite.carts.Create(domain.Cart{ID: cartID}))
	require.NoError(suite.T(), suite.clients.Create(domain.Client{
		ID:     clientID,
		Phone:  "+58-412-5550101",
		CartID: cartID,
	}))
}

func (suite *SettlementLifecycleTestSuite) TestSuccessfulSettlementLifecycle() {
	t := suite.T()

	laptopProduct, laptopVariant := suite.seedCatalog("laptop", 199900, 5)
	mouseProduct, mouseVariant := suite.seedCatalog("mouse", 2999, 10)
	suite.seedClientWithCart("client-1", "cart-1")

	// 1. Наполняем корзину
	_, err := suite.cartSvc.AddItem("cart-1", laptopProduct, laptopVariant, 1)
	require.NoError(t, err)
	cart, err := suite.cartSvc.AddItem("cart-1", mouseProduct, mouseVariant, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	// 2. Расчёт
	order, err := suite.settlement.CreateOrder(settlement.CreateOrderInput{
		CartID:     "cart-1",
		ClientID:   "client-1",
		ShippingID: "ship-std",
		Address:    "Av. Libertador 12",
		Rate:       36.5,
	})
	require.NoError(t, err)

	require.Equal(t, domain.OrderStatusPendingPayment, order.Status)
	require.False(t, order.Paid)
	require.EqualValues(t, 205898, order.SubtotalMinor) // 199900 + 2×2999
	require.EqualValues(t, 500, order.ExtraFeesMinor)
	require.EqualValues(t, 0, order.DiscountMinor)
	require.EqualValues(t, 206398, order.TotalMinor)
	require.Equal(t, "cart-1", order.SourceCartID)
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		require.Equal(t, order.ID, item.OrderID)
		require.Empty(t, item.CartID)
	}

	// Старая корзина закрыта, клиент перенаправлен на новую пустую
	oldCart, err := suite.carts.Get("cart-1")
	require.NoError(t, err)
	require.True(t, oldCart.Settled)
	require.Empty(t, oldCart.Items)

	client, err := suite.clients.Get("client-1")
	require.NoError(t, err)
	require.NotEqual(t, "cart-1", client.CartID)
	require.Contains(t, client.OrderIDs, order.ID)

	newCart, err := suite.carts.Get(client.CartID)
	require.NoError(t, err)
	require.False(t, newCart.Settled)
	require.Empty(t, newCart.Items)

	// 3. Оплата через admin review
	_, err = suite.settlement.UpdateOrder(order.ID, domain.OrderStatusAdminReview, false, false)
	require.NoError(t, err)
	paid, err := suite.settlement.UpdateOrder(order.ID, domain.OrderStatusPaid, true, true)
	require.NoError(t, err)
	require.True(t, paid.Paid)

	// 4. Накладная выдана вместе с оплатой
	note, err := suite.notes.GetByOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, "000000001", note.ControlNumber)
	require.True(t, note.Paid)

	// 5. Счёт с пересчётом по курсу
	bill, err := suite.documents.CreateBill(note.ID, "cur-ves", 36.5)
	require.NoError(t, err)
	require.Equal(t, "000000001", bill.ControlNumber)
	require.Equal(t, order.ID, bill.OrderID)
	require.EqualValues(t, domain.RescaleMinor(order.TotalMinor, 36.5), bill.TotalMinor)

	linkedNote, err := suite.notes.Get(note.ID)
	require.NoError(t, err)
	require.True(t, linkedNote.GeneratedBill)
	require.Equal(t, bill.ID, linkedNote.BillID)

	// 6. Timeline и outbox накопили события жизненного цикла
	events, err := suite.timeline.List(order.ID)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	stats, err := suite.outbox.Stats()
	require.NoError(t, err)
	require.Positive(t, stats.PendingCount)
}

func (suite *SettlementLifecycleTestSuite) TestSettlementIsIdempotentPerCart() {
	t := suite.T()

	productID, variantID := suite.seedCatalog("book", 4500, 3)
	suite.seedClientWithCart("client-1", "cart-1")

	_, err := suite.cartSvc.AddItem("cart-1", productID, variantID, 1)
	require.NoError(t, err)

	input := settlement.CreateOrderInput{
		CartID:     "cart-1",
		ClientID:   "client-1",
		ShippingID: "ship-std",
	}

	first, err := suite.settlement.CreateOrder(input)
	require.NoError(t, err)

	second, err := suite.settlement.CreateOrder(input)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	orders, err := suite.orders.ListByClient("client-1", 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
}

func (suite *SettlementLifecycleTestSuite) TestInvalidatedItemsAreDroppedAndReleased() {
	t := suite.T()

	goodProduct, goodVariant := suite.seedCatalog("good", 1000, 10)
	staleProduct, staleVariant := suite.seedCatalog("stale", 2000, 10)
	suite.seedClientWithCart("client-1", "cart-1")

	_, err := suite.cartSvc.AddItem("cart-1", goodProduct, goodVariant, 1)
	require.NoError(t, err)
	_, err = suite.cartSvc.AddItem("cart-1", staleProduct, staleVariant, 3)
	require.NoError(t, err)

	// Товар сняли с продажи после добавления в корзину
	require.NoError(t, suite.products.Create(domain.Product{
		ID:     staleProduct,
		Title:  "Product stale",
		Active: false,
	}))

	order, err := suite.settlement.CreateOrder(settlement.CreateOrderInput{
		CartID:     "cart-1",
		ClientID:   "client-1",
		ShippingID: "ship-std",
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	require.Equal(t, goodVariant, order.Items[0].VariantValueID)
	require.EqualValues(t, 1000, order.SubtotalMinor)

	// Резерв инвалидированной позиции возвращён на остаток
	variant, err := suite.variants.Get(staleVariant)
	require.NoError(t, err)
	require.EqualValues(t, 10, variant.Quantity)
}

func (suite *SettlementLifecycleTestSuite) TestVoidedOrderIsTerminal() {
	t := suite.T()

	productID, variantID := suite.seedCatalog("lamp", 3000, 5)
	suite.seedClientWithCart("client-1", "cart-1")

	_, err := suite.cartSvc.AddItem("cart-1", productID, variantID, 1)
	require.NoError(t, err)

	order, err := suite.settlement.CreateOrder(settlement.CreateOrderInput{
		CartID:     "cart-1",
		ClientID:   "client-1",
		ShippingID: "ship-std",
	})
	require.NoError(t, err)

	voided, err := suite.settlement.UpdateOrder(order.ID, domain.OrderStatusVoided, false, false)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusVoided, voided.Status)

	_, err = suite.settlement.UpdateOrder(order.ID, domain.OrderStatusPaid, true, false)
	require.ErrorIs(t, err, domain.ErrStatusTransition)
}

func (suite *SettlementLifecycleTestSuite) TestPromoDiscountAppliedOnce() {
	t := suite.T()

	productID, variantID := suite.seedCatalog("shoes", 10000, 5)
	suite.seedClientWithCart("client-1", "cart-1")

	require.NoError(t, suite.promos.Create(domain.PromoCode{
		ID:             "promo-1",
		Code:           "SAVE10",
		Discount:       10,
		Percentage:     true,
		ExpirationDate: time.Now().UTC().Add(time.Hour),
		Active:         true,
	}))

	_, err := suite.cartSvc.AddItem("cart-1", productID, variantID, 1)
	require.NoError(t, err)

	order, err := suite.settlement.CreateOrder(settlement.CreateOrderInput{
		CartID:     "cart-1",
		ClientID:   "client-1",
		ShippingID: "ship-std",
		PromoCode:  "SAVE10",
	})
	require.NoError(t, err)

	require.EqualValues(t, 10000, order.SubtotalMinor)
	require.EqualValues(t, 1000, order.DiscountMinor)
	require.EqualValues(t, 10000+500-1000, order.TotalMinor)
	require.Equal(t, "SAVE10", order.PromoCode)
}

func TestSettlementLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(SettlementLifecycleTestSuite))
}
