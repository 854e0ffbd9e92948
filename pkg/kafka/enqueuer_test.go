package kafka_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Astemirdum/library-desk/pkg/circuit_breaker"
	"github.com/Astemirdum/library-desk/pkg/kafka"
	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
)

func TestEnqueuer_Enqueue(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, nil)
	defer func() { require.NoError(t, producer.Close()) }()

	event := kafka.EventCirculation{
		Timestamp:  time.Unix(1700000000, 0).UTC(),
		SessionID:  "s-1",
		UserName:   "alice",
		BookID:     42,
		EventType:  kafka.EventReturned,
		Fine:       15,
		NextInLine: "bob",
	}
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != kafka.CirculationTopic {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "42" {
			return errors.New("unexpected key " + string(key))
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var got kafka.EventCirculation
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.NextInLine != "bob" || got.Fine != 15 || got.EventType != kafka.EventReturned {
			return errors.New("unexpected payload " + string(value))
		}
		return nil
	})

	q := kafka.NewEnqueuer(producer, circuit_breaker.New(10, time.Second, 0.5, 1))
	require.NoError(t, q.Enqueue(kafka.CirculationTopic, event.Key(), event))
}

func TestEnqueuer_OpensBreaker(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, nil)
	defer func() { require.NoError(t, producer.Close()) }()

	errBroker := errors.New("leader not available")
	producer.ExpectSendMessageAndFail(errBroker)

	cb := circuit_breaker.New(1, time.Minute, 1, 1)
	q := kafka.NewEnqueuer(producer, cb)
	event := kafka.EventCirculation{BookID: 1, EventType: kafka.EventIssued}

	require.ErrorIs(t, q.Enqueue(kafka.CirculationTopic, event.Key(), event), errBroker)
	require.Equal(t, circuit_breaker.Open, cb.State())
	// the producer is not touched while the breaker is open
	require.ErrorIs(t, q.Enqueue(kafka.CirculationTopic, event.Key(), event), circuit_breaker.ErrOpenCB)
}

func TestNopEnqueuer(t *testing.T) {
	t.Parallel()
	require.NoError(t, kafka.NopEnqueuer{}.Enqueue(kafka.CirculationTopic, "1", struct{}{}))
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()
	require.False(t, kafka.Config{}.Enabled())
	require.True(t, kafka.Config{Addrs: []string{"localhost:9092"}}.Enabled())
}
