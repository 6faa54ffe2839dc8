package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/pos-core/internal/service/tranlog"
)

// Topics для Kafka
const (
	TopicTranlogEvents   = "pos.tranlog.events"
	TopicDeadLetterQueue = "pos.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// ParseTranlogEvent парсит событие журнала транзакций из сообщения.
// Конверт: `{"data": {...}}`.
func ParseTranlogEvent(message *sarama.ConsumerMessage) (tranlog.TranlogEvent, error) {
	var envelope tranlog.Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return tranlog.TranlogEvent{}, fmt.Errorf("%w: unmarshal tranlog envelope: %v", tranlog.ErrEventMalformed, err)
	}
	return envelope.Data, nil
}
