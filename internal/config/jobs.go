package config

// SweepConfig controls the booking status sweep.  It is off unless
// SWEEP_ENABLED is set.
type SweepConfig struct {
	Enabled  bool
	Schedule string // cron expression, e.g. "@every 15m" or "0 * * * *"
}

func LoadSweepConfig() SweepConfig {
	return SweepConfig{
		Enabled:  envBool("SWEEP_ENABLED", false),
		Schedule: envStr("SWEEP_SCHEDULE", "@every 15m"),
	}
}

// QueueConfig holds the RabbitMQ settings for booking events.  An empty URL
// disables both publishing and consuming.
type QueueConfig struct {
	Enabled         bool
	URL             string
	Queue           string
	ConsumerEnabled bool
}

func LoadQueueConfig() QueueConfig {
	url := envStr("RABBITMQ_URL", envStr("AMQP_URL", ""))
	return QueueConfig{
		Enabled:         url != "" && envBool("QUEUE_ENABLED", true),
		URL:             url,
		Queue:           envStr("BOOKING_QUEUE", "booking.events"),
		ConsumerEnabled: envBool("QUEUE_CONSUMER_ENABLED", true),
	}
}
