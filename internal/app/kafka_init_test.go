package app

import (
	"testing"
)

func TestInitKafkaDisabledWithoutBrokers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KafkaBrokers = ""

	producer, consumer, err := initKafka(cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if producer != nil || consumer != nil {
		t.Fatal("kafka must stay disabled without brokers")
	}
}

func TestInitKafkaUnreachableBroker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KafkaBrokers = "127.0.0.1:1"

	if _, _, err := initKafka(cfg, nil, testLogger()); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestCloseKafkaProducerNil(t *testing.T) {
	// Не должно паниковать.
	closeKafkaProducer(nil, testLogger())
}
