package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/metrics"
)

// Manager управляет жизненным циклом фискальных документов: накладная
// выдаётся по заказу, счёт выписывается по накладной. Контрольные номера
// берутся из линеаризуемого аллокатора, по серии на тип документа.
type Manager struct {
	orders     domain.OrderRepository
	notes      domain.DeliveryNoteRepository
	bills      domain.BillRepository
	currencies domain.CurrencyRepository
	allocator  domain.ControlNumberAllocator
	outbox     domain.OutboxRepository
	timeline   domain.TimelineRepository
	logger     *log.Entry
	metrics    *metrics.SettlementMetrics
	now        func() time.Time
}

// NewManager конструирует менеджер документов. Outbox, timeline и metrics
// опциональны (nil отключает соответствующий канал).
func NewManager(
	orders domain.OrderRepository,
	notes domain.DeliveryNoteRepository,
	bills domain.BillRepository,
	currencies domain.CurrencyRepository,
	allocator domain.ControlNumberAllocator,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	m *metrics.SettlementMetrics,
	logger *log.Entry,
) *Manager {
	if logger == nil {
		logger = log.New().WithField("component", "document")
	}
	return &Manager{
		orders:     orders,
		notes:      notes,
		bills:      bills,
		currencies: currencies,
		allocator:  allocator,
		outbox:     outbox,
		timeline:   timeline,
		logger:     logger,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateDeliveryNote выдаёт накладную по заказу. У заказа не больше одной
// накладной; повторный вызов возвращает ErrDeliveryNoteExists. Строки
// описания вычисляются для печатной формы и не персистятся.
func (m *Manager) CreateDeliveryNote(orderID string, paid bool) (domain.DeliveryNote, []domain.DocumentLine, error) {
	order, err := m.orders.Get(orderID)
	if err != nil {
		return domain.DeliveryNote{}, nil, err
	}

	if _, err := m.notes.GetByOrder(orderID); err == nil {
		return domain.DeliveryNote{}, nil, domain.ErrDeliveryNoteExists
	} else if !errors.Is(err, domain.ErrDeliveryNoteNotFound) {
		return domain.DeliveryNote{}, nil, err
	}

	controlNumber, err := m.allocator.Next(domain.SeriesDeliveryNote)
	if err != nil {
		return domain.DeliveryNote{}, nil, err
	}

	now := m.now()
	note := domain.DeliveryNote{
		ID:            uuid.NewString(),
		ControlNumber: controlNumber,
		OrderID:       orderID,
		Paid:          paid,
		Charges:       order.Charges,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if errs := note.Validate(); len(errs) > 0 {
		return domain.DeliveryNote{}, nil, errs[0]
	}
	if err := m.notes.Create(note); err != nil {
		return domain.DeliveryNote{}, nil, err
	}

	lines := deliveryNoteLines(order)

	m.emitDocumentEvent("DeliveryNoteIssued", note.ID, note.ControlNumber, orderID)
	if m.metrics != nil {
		m.metrics.RecordDocumentIssued(string(domain.SeriesDeliveryNote))
	}

	m.logger.WithFields(log.Fields{
		"order_id":       orderID,
		"control_number": note.ControlNumber,
	}).Info("delivery note issued")

	return note, lines, nil
}

// CreateBill выписывает счёт по накладной. Суммы счёта — итоги заказа,
// пересчитанные по курсу, а не пересчёт из позиций. Накладная помечается
// GeneratedBill и получает ссылку на счёт.
func (m *Manager) CreateBill(deliveryNoteID, currencyID string, rate float64) (domain.Bill, error) {
	note, err := m.notes.Get(deliveryNoteID)
	if err != nil {
		return domain.Bill{}, err
	}
	currency, err := m.currencies.Get(currencyID)
	if err != nil {
		return domain.Bill{}, err
	}
	order, err := m.orders.Get(note.OrderID)
	if err != nil {
		return domain.Bill{}, err
	}

	if _, err := m.bills.GetByOrder(order.ID); err == nil {
		return domain.Bill{}, domain.ErrBillExists
	} else if !errors.Is(err, domain.ErrBillNotFound) {
		return domain.Bill{}, err
	}

	if rate <= 0 {
		rate = currency.Rate
	}

	controlNumber, err := m.allocator.Next(domain.SeriesBill)
	if err != nil {
		return domain.Bill{}, err
	}

	now := m.now()
	bill := domain.Bill{
		ID:            uuid.NewString(),
		ControlNumber: controlNumber,
		OrderID:       order.ID,
		CurrencyID:    currencyID,
		Rate:          rate,
		Paid:          note.Paid,
		Charges:       order.Charges,

		SubtotalMinor: domain.RescaleMinor(order.SubtotalMinor, rate),
		DiscountMinor: domain.RescaleMinor(order.DiscountMinor, rate),
		TaxMinor:      domain.RescaleMinor(order.TaxMinor, rate),
		TotalMinor:    domain.RescaleMinor(order.TotalMinor, rate),

		CreatedAt: now,
		UpdatedAt: now,
	}
	if errs := bill.Validate(); len(errs) > 0 {
		return domain.Bill{}, errs[0]
	}
	if err := m.bills.Create(bill); err != nil {
		return domain.Bill{}, err
	}

	note.GeneratedBill = true
	note.BillID = bill.ID
	note.UpdatedAt = now
	if err := m.notes.Save(note); err != nil {
		// Счёт уже создан; рассинхронизацию ссылки чиним логом, не откатом.
		m.logger.WithError(err).WithFields(log.Fields{
			"delivery_note_id": note.ID,
			"bill_id":          bill.ID,
		}).Error("link bill to delivery note failed")
	}

	m.emitDocumentEvent("BillIssued", bill.ID, bill.ControlNumber, order.ID)
	if m.metrics != nil {
		m.metrics.RecordDocumentIssued(string(domain.SeriesBill))
	}

	m.logger.WithFields(log.Fields{
		"order_id":       order.ID,
		"control_number": bill.ControlNumber,
		"rate":           rate,
	}).Info("bill issued")

	return bill, nil
}

// deliveryNoteLines собирает строки печатной формы: по строке на позицию
// заказа плюс строка доставки.
func deliveryNoteLines(order domain.Order) []domain.DocumentLine {
	lines := make([]domain.DocumentLine, 0, len(order.Items)+1)
	for _, item := range order.Items {
		lines = append(lines, domain.DocumentLine{
			Description: fmt.Sprintf("%s x%d", item.Title, item.Quantity),
			Amount:      domain.FormatMoney(item.SubtotalMinor()),
		})
	}
	lines = append(lines, domain.DocumentLine{
		Description: "Shipping",
		Amount:      domain.FormatMoney(order.ExtraFeesMinor),
	})
	return lines
}

func (m *Manager) emitDocumentEvent(eventType, documentID, controlNumber, orderID string) {
	occurred := m.now()

	if m.outbox != nil {
		payload, err := json.Marshal(map[string]interface{}{
			"document_id":    documentID,
			"control_number": controlNumber,
			"order_id":       orderID,
			"ts":             occurred.Format(time.RFC3339Nano),
		})
		if err == nil {
			msg := domain.OutboxMessage{
				AggregateType: "document",
				AggregateID:   documentID,
				EventType:     eventType,
				Payload:       payload,
			}
			if _, err := m.outbox.Enqueue(msg); err != nil {
				m.logger.WithError(err).WithFields(log.Fields{
					"document_id": documentID,
					"event":       eventType,
				}).Error("enqueue document event failed")
			} else if m.metrics != nil {
				m.metrics.RecordOutboxEvent()
			}
		}
	}

	if m.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  orderID,
			Type:     eventType,
			Occurred: occurred,
		}
		if err := m.timeline.Append(event); err != nil {
			m.logger.WithError(err).WithFields(log.Fields{
				"order_id": orderID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if m.metrics != nil {
			m.metrics.RecordTimelineEvent()
		}
	}
}
