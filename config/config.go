package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ServiceFlights    = "flights"
	ServiceBookings   = "bookings"
	ServiceStandalone = "standalone"

	BrokerKafka  = "kafka"
	BrokerInproc = "inproc"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Broker      BrokerConfig      `yaml:"broker"`
	Queues      []QueueConfig     `yaml:"queues"`
	Cache       CacheConfig       `yaml:"cache"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Log         LogConfig         `yaml:"log"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
	// BookingsAddress is only used by the standalone binary, which serves both APIs.
	BookingsAddress string `yaml:"bookings_address"`
}

type DatabaseConfig struct {
	// Driver is postgres or memory. Memory keeps everything in process and is meant
	// for the standalone binary.
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BrokerConfig struct {
	Driver            string   `yaml:"driver"`
	Brokers           []string `yaml:"brokers"`
	DeadLetterTopic   string   `yaml:"dead_letter_topic"`
	RedeliveryDelayMs int      `yaml:"redelivery_delay_ms"`
}

func (b BrokerConfig) RedeliveryDelay() time.Duration {
	return time.Duration(b.RedeliveryDelayMs) * time.Millisecond
}

type QueueConfig struct {
	Name     string   `yaml:"name"`
	Bindings []string `yaml:"bindings"`
	Workers  int      `yaml:"workers"`
	// Consumer names the service side that handles the queue: flights or bookings.
	Consumer string `yaml:"consumer"`
}

type CacheConfig struct {
	FlightsTTLSeconds int `yaml:"flights_ttl_seconds"`
}

func (c CacheConfig) FlightsTTL() time.Duration {
	return time.Duration(c.FlightsTTLSeconds) * time.Second
}

type IdempotencyConfig struct {
	Enabled bool `yaml:"enabled"`
	// LeaseSeconds bounds how long a crashed attempt blocks redelivery of its event.
	LeaseSeconds int `yaml:"lease_seconds"`
	TTLMinutes   int `yaml:"ttl_minutes"`
}

func (c IdempotencyConfig) Lease() time.Duration {
	return time.Duration(c.LeaseSeconds) * time.Second
}

func (c IdempotencyConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func LoadConfig(path string, service string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults(service)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults(service string) {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.BookingsAddress == "" {
		c.HTTP.BookingsAddress = ":8081"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = StoragePostgres
	}
	if c.Broker.Driver == "" {
		c.Broker.Driver = BrokerKafka
	}
	if c.Broker.DeadLetterTopic == "" {
		c.Broker.DeadLetterTopic = "saga.dead-letter"
	}
	if c.Broker.RedeliveryDelayMs <= 0 {
		c.Broker.RedeliveryDelayMs = 1000
	}
	if len(c.Queues) == 0 {
		c.Queues = DefaultQueues(service)
	}
	for i := range c.Queues {
		if c.Queues[i].Workers <= 0 {
			c.Queues[i].Workers = 1
		}
		if c.Queues[i].Consumer == "" && service != ServiceStandalone {
			c.Queues[i].Consumer = service
		}
	}
	if c.Cache.FlightsTTLSeconds <= 0 {
		c.Cache.FlightsTTLSeconds = 30
	}
	if c.Idempotency.LeaseSeconds <= 0 {
		c.Idempotency.LeaseSeconds = 30
	}
	if c.Idempotency.TTLMinutes <= 0 {
		c.Idempotency.TTLMinutes = 24 * 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// DefaultQueues returns the subscriptions a service consumes when none are configured.
// Workers is the number of kafka readers per queue; the inproc broker handles each
// topic one message at a time whatever it says.
func DefaultQueues(service string) []QueueConfig {
	flights := QueueConfig{Name: "flight-service.booking-events", Bindings: []string{"booking.#"}, Workers: 10, Consumer: ServiceFlights}
	bookings := QueueConfig{Name: "booking-service.flight-events", Bindings: []string{"flight.#"}, Workers: 1, Consumer: ServiceBookings}

	switch service {
	case ServiceFlights:
		return []QueueConfig{flights}
	case ServiceBookings:
		return []QueueConfig{bookings}
	default:
		return []QueueConfig{flights, bookings}
	}
}

func (c *Config) validate() error {
	switch c.Broker.Driver {
	case BrokerKafka:
		if len(c.Broker.Brokers) == 0 {
			return fmt.Errorf("broker.brokers is required for the kafka driver")
		}
	case BrokerInproc:
	default:
		return fmt.Errorf("unknown broker driver %q", c.Broker.Driver)
	}
	switch c.Database.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	for _, q := range c.Queues {
		if q.Name == "" || len(q.Bindings) == 0 {
			return fmt.Errorf("queue %q needs a name and at least one binding", q.Name)
		}
		if q.Consumer != ServiceFlights && q.Consumer != ServiceBookings {
			return fmt.Errorf("queue %q: consumer must be %s or %s", q.Name, ServiceFlights, ServiceBookings)
		}
	}
	return nil
}
