package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos-core/internal/service/tranlog"
)

// initKafka инициализирует DLQ producer и consumer событий журнала
// транзакций, если brokers не пустой. Возвращает nil, nil, nil при
// пустом brokers: Kafka-ингестия опциональна, webhook работает всегда.
func initKafka(cfg Config, processor *tranlog.Processor, logger *log.Entry) (*kafka.Producer, *kafka.Consumer, error) {
	if cfg.KafkaBrokers == "" {
		return nil, nil, nil
	}

	brokerList := strings.Split(cfg.KafkaBrokers, ",")

	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		return nil, nil, err
	}

	consumer, err := kafka.NewConsumerWithDLQ(
		brokerList,
		cfg.KafkaGroupID,
		[]string{kafka.TopicTranlogEvents},
		kafka.NewTranlogHandler(processor),
		producer,
		cfg.KafkaMaxRetries,
	)
	if err != nil {
		closeKafkaProducer(producer, logger)
		return nil, nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka ingestion initialized")
	return producer, consumer, nil
}

// closeKafkaProducer закрывает Kafka producer если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
