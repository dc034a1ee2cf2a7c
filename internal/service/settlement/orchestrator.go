package settlement

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

// DeliveryNoteIssuer выдаёт накладную по заказу (см. service/document).
type DeliveryNoteIssuer interface {
	CreateDeliveryNote(orderID string, paid bool) (domain.DeliveryNote, []domain.DocumentLine, error)
}

// CreateOrderInput — вход расчёта корзины. PromoCode, SellerID, Phone,
// Address и Rate опциональны.
type CreateOrderInput struct {
	CartID     string
	ClientID   string
	ShippingID string
	PromoCode  string
	SellerID   string
	Charges    []domain.Charge
	Phone      string
	Address    string
	Rate       float64
}

// Deps — зависимости оркестратора расчёта.
type Deps struct {
	Carts    domain.CartRepository
	Clients  domain.ClientRepository
	Sellers  domain.SellerRepository
	Shipping domain.ShippingRepository
	Promos   domain.PromoCodeRepository
	Orders   domain.OrderRepository
	Products domain.ProductRepository
	Variants domain.VariantRepository
	Store    domain.SettlementStore
	Outbox   domain.OutboxRepository
	Timeline domain.TimelineRepository

	// Documents опционален: без него issueDeliveryNote в UpdateOrder
	// возвращает ошибку конфигурации.
	Documents DeliveryNoteIssuer

	// Producer опционален: nil отключает публикацию событий в Kafka
	// (outbox остаётся основным каналом).
	Producer *kafka.Producer
}

// Service — оркестратор расчёта: превращает корзину в заказ одной атомарной
// записью и ведёт дальнейший жизненный цикл заказа.
type Service struct {
	deps      Deps
	validator *Validator
	logger    *log.Entry
	metrics   *metrics.SettlementMetrics
	now       func() time.Time
}

// NewService конструирует оркестратор с метриками.
func NewService(deps Deps, logger *log.Entry) *Service {
	s := newService(deps, logger)
	s.metrics = metrics.NewSettlementMetrics()
	return s
}

// NewServiceWithoutMetrics конструирует оркестратор без метрик (для тестов).
func NewServiceWithoutMetrics(deps Deps, logger *log.Entry) *Service {
	return newService(deps, logger)
}

func newService(deps Deps, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "settlement")
	}
	return &Service{
		deps:      deps,
		validator: NewValidator(deps.Products, deps.Variants),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder выполняет расчёт корзины.
//
// Проверки (шаг 1) выполняются до любой мутации и при неудаче не оставляют
// следов. Сама запись — создание заказа, передача позиций, удаление
// инвалидированных, ротация корзины — один атомарный commit хранилища.
// Операция идемпотентна по корзине: повторный вызов для уже рассчитанной
// корзины возвращает созданный ею заказ.
func (s *Service) CreateOrder(in CreateOrderInput) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordSettlementStarted()
		defer func() {
			s.metrics.RecordSettlementDuration(time.Since(start))
		}()
	}

	if existing, err := s.deps.Orders.GetBySourceCart(in.CartID); err == nil {
		s.logger.WithFields(log.Fields{
			"cart_id":  in.CartID,
			"order_id": existing.ID,
		}).Debug("cart already settled, returning existing order")
		return existing, nil
	} else if !errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, s.fail(err)
	}

	cart, err := s.deps.Carts.Get(in.CartID)
	if err != nil {
		return domain.Order{}, s.fail(err)
	}
	if cart.Settled {
		return domain.Order{}, s.fail(domain.ErrCartAlreadySettled)
	}

	client, err := s.deps.Clients.Get(in.ClientID)
	if err != nil {
		return domain.Order{}, s.fail(err)
	}
	shipping, err := s.deps.Shipping.Get(in.ShippingID)
	if err != nil {
		return domain.Order{}, s.fail(err)
	}

	var promo *domain.PromoCode
	if in.PromoCode != "" {
		p, err := s.deps.Promos.GetByCode(in.PromoCode)
		if err != nil {
			return domain.Order{}, s.fail(err)
		}
		if p.Expired(s.now()) {
			return domain.Order{}, s.fail(domain.ErrPromoExpired)
		}
		promo = &p
	}

	var seller *domain.Seller
	if in.SellerID != "" {
		sel, err := s.deps.Sellers.Get(in.SellerID)
		if err != nil {
			return domain.Order{}, s.fail(err)
		}
		seller = &sel
	}

	valid, invalid := s.validator.ValidateItems(cart.Items)
	if len(valid) == 0 {
		return domain.Order{}, s.fail(domain.ErrItemsRequired)
	}

	quote := ComputeQuote(valid, promo, shipping, seller)

	now := s.now()
	order := domain.Order{
		ID:   uuid.NewString(),
		Code: now.UnixMilli(),

		Status: domain.OrderStatusPendingPayment,
		Paid:   false,

		SubtotalMinor:   quote.SubtotalMinor,
		TaxMinor:        quote.TaxMinor,
		ExtraFeesMinor:  quote.ExtraFeesMinor,
		DiscountMinor:   quote.DiscountMinor,
		TotalMinor:      quote.TotalMinor,
		CommissionMinor: quote.CommissionMinor,

		ClientID:   client.ID,
		SellerID:   in.SellerID,
		ShippingID: shipping.ID,
		PromoCode:  in.PromoCode,

		Charges: in.Charges,
		Phone:   in.Phone,
		Address: in.Address,
		Rate:    in.Rate,

		SourceCartID: cart.ID,

		CreatedAt: now,
		UpdatedAt: now,
	}
	if order.Phone == "" {
		order.Phone = client.Phone
	}
	if order.Address == "" {
		order.Address = "N/A"
	}
	if order.Rate <= 0 {
		order.Rate = 100
	}

	// Позиции заказа для проверки инвариантов и возврата вызывающему.
	order.Items = make([]domain.LineItem, len(valid))
	for i, item := range valid {
		item.CartID = ""
		item.OrderID = order.ID
		order.Items[i] = item
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, s.fail(errs[0])
	}

	change := domain.SettlementChange{
		Order:         order,
		AttachItemIDs: itemIDs(valid),
		DeleteItemIDs: itemIDs(invalid),
		NewCart: domain.Cart{
			ID:        uuid.NewString(),
			ClientID:  client.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClientID: client.ID,
	}
	if err := s.deps.Store.Commit(change); err != nil {
		// Конкурентный расчёт той же корзины мог успеть раньше.
		if errors.Is(err, domain.ErrCartAlreadySettled) {
			if existing, lookupErr := s.deps.Orders.GetBySourceCart(in.CartID); lookupErr == nil {
				return existing, nil
			}
		}
		return domain.Order{}, s.fail(err)
	}

	// Резерв инвалидированных позиций возвращается после commit: их строки
	// уже удалены, и неудачный commit не оставляет двойного release.
	s.releaseInvalidated(invalid)
	if s.metrics != nil {
		s.metrics.RecordItemsInvalidated(len(invalid))
		s.metrics.RecordSettlementCompleted()
	}

	s.emitEvent(&order, "OrderCreated", map[string]interface{}{
		"client_id":   client.ID,
		"total_minor": order.TotalMinor,
		"items_count": len(order.Items),
		"ts":          now.Format(time.RFC3339Nano),
	})
	s.publishOrderEvent(kafka.EventTypeOrderCreated, &order, map[string]interface{}{
		"total_minor": order.TotalMinor,
	})

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"cart_id":     cart.ID,
		"client_id":   client.ID,
		"total_minor": order.TotalMinor,
		"invalidated": len(invalid),
	}).Info("order created")

	return order, nil
}

// UpdateOrder меняет статус и признак оплаты заказа. Переходы проверяются
// по графу статусов; нелегальный переход отклоняется с ErrStatusTransition.
// issueDeliveryNote дополнительно выдаёт накладную (счёт — отдельный шаг).
func (s *Service) UpdateOrder(orderID string, status domain.OrderStatus, paid bool, issueDeliveryNote bool) (domain.Order, error) {
	order, err := s.deps.Orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if !order.Status.CanTransitionTo(status) {
		s.logger.WithFields(log.Fields{
			"order_id": orderID,
			"from":     order.Status.String(),
			"to":       status.String(),
		}).Warn("illegal status transition rejected")
		return domain.Order{}, domain.ErrStatusTransition
	}

	statusChanged := order.Status != status
	if err := s.saveStatus(&order, status, paid); err != nil {
		return domain.Order{}, err
	}

	if statusChanged {
		s.emitEvent(&order, "OrderStatusChanged", map[string]interface{}{
			"status": order.Status.String(),
			"paid":   order.Paid,
			"ts":     order.UpdatedAt.Format(time.RFC3339Nano),
		})
		eventType := kafka.EventTypeOrderStatusChanged
		if order.Status == domain.OrderStatusVoided {
			eventType = kafka.EventTypeOrderVoided
		}
		s.publishOrderEvent(eventType, &order, nil)
	}

	if issueDeliveryNote {
		if s.deps.Documents == nil {
			return domain.Order{}, fmt.Errorf("delivery note requested but document manager is not configured")
		}
		if _, _, err := s.deps.Documents.CreateDeliveryNote(order.ID, order.Paid); err != nil {
			if errors.Is(err, domain.ErrDeliveryNoteExists) {
				s.logger.WithField("order_id", order.ID).Debug("delivery note already issued")
			} else {
				return domain.Order{}, err
			}
		}
	}

	return order, nil
}

// saveStatus применяет смену статуса с retry по version conflict.
func (s *Service) saveStatus(order *domain.Order, status domain.OrderStatus, paid bool) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		order.Status = status
		order.Paid = paid
		order.UpdatedAt = s.now()
		prevVersion := order.Version

		if err := s.deps.Orders.Save(*order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
					"version":  order.Version,
				}).Warn("version conflict detected, retrying")

				fresh, loadErr := s.deps.Orders.Get(order.ID)
				if loadErr != nil {
					return loadErr
				}
				// Переход перепроверяется от свежего статуса.
				if !fresh.Status.CanTransitionTo(status) {
					return domain.ErrStatusTransition
				}
				*order = fresh

				time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"attempt":  attempt + 1,
			}).Error("failed to persist status")
			return err
		}

		order.Version = prevVersion + 1
		return nil
	}

	return domain.ErrVersionConflict
}

func (s *Service) releaseInvalidated(items []domain.LineItem) {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if err := s.deps.Variants.Release(item.VariantValueID, item.Quantity); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"line_item_id": item.ID,
				"variant_id":   item.VariantValueID,
				"qty":          item.Quantity,
			}).Warn("release invalidated item failed")
		}
	}
}

func (s *Service) fail(err error) error {
	if s.metrics != nil {
		s.metrics.RecordSettlementFailed()
	}
	return err
}

func itemIDs(items []domain.LineItem) []string {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func (s *Service) emitEvent(order *domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	if s.deps.Outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := s.deps.Outbox.Enqueue(msg); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("enqueue event failed")
		} else if s.metrics != nil {
			s.metrics.RecordOutboxEvent()
		}
	}

	if s.deps.Timeline != nil {
		var occurred time.Time
		if ts, ok := payload["ts"].(string); ok {
			if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
				occurred = parsed
			}
		}
		if occurred.IsZero() {
			occurred = s.now()
		}
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Occurred: occurred,
		}
		if err := s.deps.Timeline.Append(event); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if s.metrics != nil {
			s.metrics.RecordTimelineEvent()
		}
	}
}

// publishOrderEvent публикует событие заказа в Kafka (если producer настроен).
func (s *Service) publishOrderEvent(eventType kafka.EventType, order *domain.Order, metadata map[string]interface{}) {
	if s.deps.Producer == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.ClientID, order.Status.String(), metadata)
	if err := s.deps.Producer.PublishEvent(kafka.TopicOrderEvents, order.ID, event); err != nil {
		// Kafka опциональный канал: ошибка логируется, пайплайн не прерывается.
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event to kafka")
	}
}
