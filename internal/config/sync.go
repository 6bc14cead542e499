package config

import (
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ec-aadishbahati/echostor-security-posture-tool/internal/sync"
)

// SyncConfig selects the transport the cross-tab sync bus runs over.
type SyncConfig struct {
	Transport    string // gochannel, redis or kafka
	KafkaBrokers string
}

// GetKafkaBrokers returns Kafka brokers as a slice.
func (c *SyncConfig) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// CreateTransport builds the configured sync transport. The Redis client is
// only used by the redis transport and may be nil otherwise.
func (c *SyncConfig) CreateTransport(redisClient *redis.Client, logger *slog.Logger) (sync.Transport, error) {
	switch c.Transport {
	case "redis":
		logger.Info("Creating Redis sync transport")
		return sync.NewRedisTransport(redisClient, logger, sync.RedisTransportConfig{}), nil
	case "kafka":
		logger.Info("Creating Kafka sync transport", "brokers", c.KafkaBrokers)
		return sync.NewKafkaTransport(sync.KafkaTransportConfig{
			Brokers: c.GetKafkaBrokers(),
			GroupID: sync.NewTabID(),
		}, logger)
	case "gochannel", "":
		logger.Info("Creating in-process sync transport")
		return sync.NewGoChannelTransport(logger), nil
	default:
		logger.Warn("Unknown sync transport, falling back to in-process", "transport", c.Transport)
		return sync.NewGoChannelTransport(logger), nil
	}
}

// CreateBus wires the configured transport into a sync bus. The caller owns
// the bus lifecycle: Start once, Close on shutdown.
func (c *SyncConfig) CreateBus(redisClient *redis.Client, logger *slog.Logger) (*sync.Bus, error) {
	transport, err := c.CreateTransport(redisClient, logger)
	if err != nil {
		return nil, err
	}
	return sync.NewBus(transport, logger), nil
}
