package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

const (
	CirculationTopic = "library.circulation"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true
	defaultCfg.Producer.Retry.Max = 3
	// a slow broker must not stall the desk for long
	defaultCfg.Producer.Timeout = 5 * time.Second
	defaultCfg.Net.DialTimeout = 3 * time.Second

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}
