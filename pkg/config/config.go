package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is intentionally empty; every field names its variable in full.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Remote   RemoteConfig
	Poll     PollConfig
	Delivery DeliveryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Delivery.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NOTIFIER_APP_ENV" required:"true"`
	Port         string `envconfig:"NOTIFIER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"NOTIFIER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NOTIFIER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NOTIFIER_DB_DSN" required:"true"`
	Driver string `envconfig:"NOTIFIER_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"NOTIFIER_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"NOTIFIER_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"NOTIFIER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NOTIFIER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NOTIFIER_REDIS_URL"`
	Address      string        `envconfig:"NOTIFIER_REDIS_ADDR"`
	Password     string        `envconfig:"NOTIFIER_REDIS_PASSWORD"`
	DB           int           `envconfig:"NOTIFIER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NOTIFIER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NOTIFIER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NOTIFIER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NOTIFIER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NOTIFIER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// RemoteConfig points the poller at the storefront backend.
type RemoteConfig struct {
	BaseURL string        `envconfig:"NOTIFIER_REMOTE_BASE_URL" required:"true"`
	UserID  string        `envconfig:"NOTIFIER_REMOTE_USER_ID" required:"true"`
	Timeout time.Duration `envconfig:"NOTIFIER_REMOTE_TIMEOUT" default:"15s"`
}

// PollConfig carries every cadence and pacing knob of the dedup engine.
type PollConfig struct {
	ProductDebounce time.Duration `envconfig:"NOTIFIER_POLL_PRODUCT_DEBOUNCE" default:"20s"`
	OrderDebounce   time.Duration `envconfig:"NOTIFIER_POLL_ORDER_DEBOUNCE" default:"30s"`

	ForegroundProductInterval time.Duration `envconfig:"NOTIFIER_POLL_FG_PRODUCT_INTERVAL" default:"60s"`
	ForegroundOrderInterval   time.Duration `envconfig:"NOTIFIER_POLL_FG_ORDER_INTERVAL" default:"30s"`
	BackgroundInterval        time.Duration `envconfig:"NOTIFIER_POLL_BG_INTERVAL" default:"2m"`

	DispatchGap   time.Duration `envconfig:"NOTIFIER_POLL_DISPATCH_GAP" default:"2s"`
	StageGap      time.Duration `envconfig:"NOTIFIER_POLL_STAGE_GAP" default:"1s"`
	RecencyWindow time.Duration `envconfig:"NOTIFIER_POLL_RECENCY_WINDOW" default:"10m"`
}

type DeliveryConfig struct {
	// Mode selects how system pushes leave the process: "pubsub" or "log".
	Mode      string `envconfig:"NOTIFIER_DELIVERY_MODE" default:"log"`
	ProjectID string `envconfig:"NOTIFIER_DELIVERY_PROJECT_ID"`
	Topic     string `envconfig:"NOTIFIER_DELIVERY_TOPIC"`
	ChannelID string `envconfig:"NOTIFIER_DELIVERY_CHANNEL_ID" default:"shop-notifications"`
}

func (d DeliveryConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(d.Mode)) {
	case "log":
		return nil
	case "pubsub":
		if strings.TrimSpace(d.ProjectID) == "" {
			return fmt.Errorf("NOTIFIER_DELIVERY_PROJECT_ID is required for pubsub delivery")
		}
		if strings.TrimSpace(d.Topic) == "" {
			return fmt.Errorf("NOTIFIER_DELIVERY_TOPIC is required for pubsub delivery")
		}
		return nil
	default:
		return fmt.Errorf("delivery mode must be %q or %q", "pubsub", "log")
	}
}

// IsPubSub reports whether pushes are published to the push gateway topic.
func (d DeliveryConfig) IsPubSub() bool {
	return strings.EqualFold(strings.TrimSpace(d.Mode), "pubsub")
}
