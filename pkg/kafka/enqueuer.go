package kafka

import (
	"encoding/json"

	"github.com/Astemirdum/library-desk/pkg/circuit_breaker"
	"github.com/IBM/sarama"
)

type Enqueuer interface {
	Enqueue(topic, key string, v any) error
}

func NewEnqueuer(producer sarama.SyncProducer, cb circuit_breaker.CircuitBreaker) Enqueuer {
	return &enqueuerImpl{
		producer: producer,
		cb:       cb,
	}
}

type enqueuerImpl struct {
	producer sarama.SyncProducer
	cb       circuit_breaker.CircuitBreaker
}

func (q *enqueuerImpl) Enqueue(topic, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	return q.cb.Call(func() error {
		_, _, err := q.producer.SendMessage(msg)
		return err
	})
}

// NopEnqueuer drops every message; used when no brokers are configured.
type NopEnqueuer struct{}

func (NopEnqueuer) Enqueue(string, string, any) error { return nil }
