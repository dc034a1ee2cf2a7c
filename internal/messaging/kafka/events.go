package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderVoided        EventType = "order.voided"

	// Document события
	EventTypeDeliveryNoteIssued EventType = "document.delivery_note_issued"
	EventTypeBillIssued         EventType = "document.bill_issued"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "commerce.order.events"
	TopicDocumentEvents  = "commerce.document.events"
	TopicDeadLetterQueue = "commerce.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	ClientID  string                 `json:"client_id"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// DocumentEvent представляет событие документа (накладная, счёт)
type DocumentEvent struct {
	EventType     EventType              `json:"event_type"`
	DocumentID    string                 `json:"document_id"`
	ControlNumber string                 `json:"control_number"`
	OrderID       string                 `json:"order_id"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, clientID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		ClientID:  clientID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewDocumentEvent создает новое событие документа
func NewDocumentEvent(eventType EventType, documentID, controlNumber, orderID string, metadata map[string]interface{}) *DocumentEvent {
	return &DocumentEvent{
		EventType:     eventType,
		DocumentID:    documentID,
		ControlNumber: controlNumber,
		OrderID:       orderID,
		Timestamp:     time.Now(),
		Metadata:      metadata,
	}
}
