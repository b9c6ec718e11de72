package config

// QueueConfig locates the RabbitMQ broker that carries reservation
// events.  An empty URL disables publishing and the consumer.
type QueueConfig struct {
	URL     string // AMQP_URL
	Queue   string // RESERVATION_QUEUE, default "reservation.events"
	LogFile string // RESERVATION_LOG_FILE, default "logs/reservations.log"
}

// LoadQueueConfig reads the broker settings.
func LoadQueueConfig() QueueConfig {
	return QueueConfig{
		URL:     getenv("AMQP_URL", ""),
		Queue:   getenv("RESERVATION_QUEUE", "reservation.events"),
		LogFile: getenv("RESERVATION_LOG_FILE", "logs/reservations.log"),
	}
}
