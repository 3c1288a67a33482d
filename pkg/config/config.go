package config

import (
	"time"
)

// DB configures the Postgres store. Without a URL the in-memory store is used.
type DB struct {
	Url             string        `envconfig:"URL"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME" default:"5m"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"72h"`
}

type Auth struct {
	Strategy   string `envconfig:"STRATEGY" default:"jwt"`
	Jwt        *Jwt   `envconfig:"JWT"`
	BcryptCost int    `envconfig:"BCRYPT_COST" default:"10"`
}

type Redis struct {
	URL          string        `envconfig:"URL"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"cashfake:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Ledger tunes the money-movement core.
type Ledger struct {
	OperationTimeout     time.Duration `envconfig:"OPERATION_TIMEOUT" default:"5s"`
	ProvisionMaxAttempts int           `envconfig:"PROVISION_MAX_ATTEMPTS" default:"16"`
	IdempotencyTTL       time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	RecentContacts       int           `envconfig:"RECENT_CONTACTS" default:"5"`
}

// EventBus selects where committed ledger events go: memory, redis (REDIS_URL) or kafka.
type EventBus struct {
	Driver       string `envconfig:"DRIVER" default:"memory"`
	KafkaBrokers string `envconfig:"KAFKA_BROKERS"`
	TopicPrefix  string `envconfig:"TOPIC_PREFIX" default:"cashfake.events"`
	Group        string `envconfig:"GROUP" default:"cashfake"`
}

type Admin struct {
	APIKey string `envconfig:"API_KEY"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[cashfake]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Ledger    *Ledger    `envconfig:"LEDGER"`
	Admin     *Admin     `envconfig:"ADMIN"`
	EventBus  *EventBus  `envconfig:"EVENT_BUS"`
}
