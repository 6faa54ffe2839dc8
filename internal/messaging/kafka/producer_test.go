package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/service/tranlog"
)

func testTranlogEvent() tranlog.TranlogEvent {
	return tranlog.TranlogEvent{
		EventID:             "evt-1",
		TenantID:            "tenant-1",
		StoreCode:           "5825",
		TerminalNo:          9,
		TransactionNo:       300,
		TransactionType:     tranlog.TypeVoidSale,
		TargetTransactionNo: 100,
		StaffID:             "S1",
	}
}

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	err := producer.PublishEvent(TopicTranlogEvents, "tenant-1:5825:9:300", tranlog.Envelope{Data: testTranlogEvent()})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishEvent(TopicTranlogEvents, "tenant-1:5825:9:300", tranlog.Envelope{Data: testTranlogEvent()})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishTranlogEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Проверяем, что событие уходит в конверте и парсится обратно.
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var envelope tranlog.Envelope
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}
		if envelope.Data.EventID != "evt-1" {
			t.Errorf("unexpected event id %q", envelope.Data.EventID)
		}
		return nil
	})

	if err := producer.PublishTranlogEvent(testTranlogEvent()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
