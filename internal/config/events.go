package config

import (
	"time"

	"fleetdispatch/pkg/events"
)

type EventsConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func loadEventsConfig() *EventsConfig {
	return &EventsConfig{
		Enabled:      getEnvAsBool("EVENTS_ENABLED", false),
		Brokers:      getEnvAsSlice("KAFKA_BROKERS", []string{}),
		Topic:        getEnv("KAFKA_ASSIGNMENT_TOPIC", "trip-assignments"),
		WriteTimeout: getEnvAsDuration("KAFKA_WRITE_TIMEOUT", 2*time.Second),
	}
}

func (c *EventsConfig) Publisher() *events.Config {
	return &events.Config{
		Brokers:      c.Brokers,
		Topic:        c.Topic,
		WriteTimeout: c.WriteTimeout,
	}
}
