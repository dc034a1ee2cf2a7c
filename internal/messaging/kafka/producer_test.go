package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	// Создаем mock producer
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Настраиваем ожидания
	mockProducer.ExpectSendMessageAndSucceed()

	// Создаем тестовое событие
	event := NewOrderEvent(
		EventTypeOrderCreated,
		"test-order-123",
		"client-1",
		"pending_payment",
		map[string]interface{}{
			"total_minor": 9500,
		},
	)

	// Публикуем событие
	err := producer.PublishEvent(TopicOrderEvents, "test-order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Проверяем, что все ожидания выполнены
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	// Создаем mock producer с ошибкой
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Настраиваем ожидание ошибки
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"test-order-123",
		"client-1",
		"pending_payment",
		nil,
	)

	// Публикуем событие
	err := producer.PublishEvent(TopicOrderEvents, "test-order-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	orderID := "order-123"
	clientID := "client-1"
	status := "paid"
	metadata := map[string]interface{}{
		"total_minor": 1000,
	}

	event := NewOrderEvent(EventTypeOrderStatusChanged, orderID, clientID, status, metadata)

	if event.EventType != EventTypeOrderStatusChanged {
		t.Errorf("expected event type %s, got %s", EventTypeOrderStatusChanged, event.EventType)
	}

	if event.OrderID != orderID {
		t.Errorf("expected order id %s, got %s", orderID, event.OrderID)
	}

	if event.ClientID != clientID {
		t.Errorf("expected client id %s, got %s", clientID, event.ClientID)
	}

	if event.Status != status {
		t.Errorf("expected status %s, got %s", status, event.Status)
	}

	// Проверяем, что timestamp установлен
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}

	// Проверяем, что timestamp близок к текущему времени
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewDocumentEvent(t *testing.T) {
	event := NewDocumentEvent(EventTypeBillIssued, "bill-1", "000000007", "order-123", nil)

	if event.EventType != EventTypeBillIssued {
		t.Errorf("expected event type %s, got %s", EventTypeBillIssued, event.EventType)
	}

	if event.DocumentID != "bill-1" || event.ControlNumber != "000000007" || event.OrderID != "order-123" {
		t.Errorf("unexpected event fields: %+v", event)
	}

	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
