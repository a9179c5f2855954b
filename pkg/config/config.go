package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Delivery DeliveryConfig
	Tax      TaxConfig
	Effects  EffectsConfig
	Eventing EventingConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Flags    FeatureFlagsConfig
}

var validate = validator.New()

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FARMCART_APP_ENV" required:"true" validate:"oneof=dev staging prod"`
	Port         string `envconfig:"FARMCART_APP_PORT" required:"true" validate:"numeric"`
	LogLevel     string `envconfig:"FARMCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FARMCART_DB_DSN"`
	Driver string `envconfig:"FARMCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FARMCART_DB_HOST"`
	LegacyPort     int    `envconfig:"FARMCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FARMCART_DB_USER"`
	LegacyPassword string `envconfig:"FARMCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"FARMCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"FARMCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FARMCART_REDIS_ADDR"`
	Password     string        `envconfig:"FARMCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// GatewayConfig covers the external payment gateway callback surface.
type GatewayConfig struct {
	SigningSecret  string        `envconfig:"FARMCART_GATEWAY_SIGNING_SECRET"`
	CallbackWindow time.Duration `envconfig:"FARMCART_GATEWAY_CALLBACK_WINDOW" default:"15s"`
}

// DeliveryConfig holds the tiered delivery fee table.
type DeliveryConfig struct {
	BaseFeeCents      int     `envconfig:"FARMCART_DELIVERY_BASE_FEE_CENTS" default:"3500" validate:"min=0"`
	SurchargeCents    int     `envconfig:"FARMCART_DELIVERY_SURCHARGE_CENTS" default:"500" validate:"min=0"`
	BaseRadiusKM      float64 `envconfig:"FARMCART_DELIVERY_BASE_RADIUS_KM" default:"5" validate:"min=0"`
	PrepWindowMinutes int     `envconfig:"FARMCART_DELIVERY_PREP_WINDOW_MINUTES" default:"90" validate:"min=1"`
}

type TaxConfig struct {
	RatePercent int `envconfig:"FARMCART_TAX_RATE_PERCENT" default:"15" validate:"min=0,max=100"`
}

// EffectsConfig tunes the post-confirmation effects.
type EffectsConfig struct {
	RecurringOfferMinTotalCents int           `envconfig:"FARMCART_EFFECTS_RECURRING_MIN_TOTAL_CENTS" default:"15000"`
	RecurringDiscountPercent    int           `envconfig:"FARMCART_EFFECTS_RECURRING_DISCOUNT_PERCENT" default:"10"`
	ReviewPromptDelay           time.Duration `envconfig:"FARMCART_EFFECTS_REVIEW_PROMPT_DELAY" default:"48h"`
}

type EventingConfig struct {
	ReconcileIdempotencyTTL time.Duration `envconfig:"FARMCART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FARMCART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FARMCART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FARMCART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"FARMCART_PUBSUB_ORDERS_TOPIC" default:"fc-order-events"`
	OrdersSubscription string `envconfig:"FARMCART_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FARMCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50" validate:"min=1"`
	PollIntervalMS int `envconfig:"FARMCART_OUTBOX_PUBLISH_POLL_MS" default:"500" validate:"min=1"`
	MaxAttempts    int `envconfig:"FARMCART_OUTBOX_MAX_ATTEMPTS" default:"10" validate:"min=1"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FARMCART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		"FARMCART_DB_HOST": db.LegacyHost,
		"FARMCART_DB_USER": db.LegacyUser,
		"FARMCART_DB_NAME": db.LegacyName,
	}
	for _, envName := range []string{"FARMCART_DB_HOST", "FARMCART_DB_USER", "FARMCART_DB_NAME"} {
		if legacyValues[envName] == "" {
			missing = append(missing, envName)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either FARMCART_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
