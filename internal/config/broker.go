package config

import (
	"os"

	"github.com/iliyamo/seat-booking/internal/queue"
)

// BrokerConfig locates the RabbitMQ broker seat events are published to.
// An empty URL disables publishing.
type BrokerConfig struct {
	URL     string
	Queue   string
	LogPath string // where cmd/booking-logger appends consumed events
}

// LoadBrokerConfig reads RABBITMQ_URL (AMQP_URL is accepted as a fallback),
// SEAT_EVENTS_QUEUE and SEAT_EVENTS_LOG.
func LoadBrokerConfig() BrokerConfig {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	return BrokerConfig{
		URL:     url,
		Queue:   envStr("SEAT_EVENTS_QUEUE", queue.SeatEventsQueue),
		LogPath: envStr("SEAT_EVENTS_LOG", "logs/booking.log"),
	}
}

// Enabled reports whether a broker URL was configured.
func (b BrokerConfig) Enabled() bool { return b.URL != "" }
