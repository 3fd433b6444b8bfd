package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	QRToken  QRTokenConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Coupons  CouponConfig
	Raffles  RaffleConfig
	Eventing EventingConfig

	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FUELPASS_APP_ENV" required:"true"`
	Port         string `envconfig:"FUELPASS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FUELPASS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FUELPASS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FUELPASS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FUELPASS_DB_DSN"`
	Driver string `envconfig:"FUELPASS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FUELPASS_DB_HOST"`
	LegacyPort     int    `envconfig:"FUELPASS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FUELPASS_DB_USER"`
	LegacyPassword string `envconfig:"FUELPASS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FUELPASS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FUELPASS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FUELPASS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FUELPASS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FUELPASS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FUELPASS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	LockTimeout time.Duration `envconfig:"FUELPASS_DB_LOCK_TIMEOUT" default:"3s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FUELPASS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FUELPASS_REDIS_ADDR"`
	Password     string        `envconfig:"FUELPASS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FUELPASS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FUELPASS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FUELPASS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FUELPASS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FUELPASS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FUELPASS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// QRTokenConfig governs the signed QR payloads carried by physical coupons.
type QRTokenConfig struct {
	Secret string        `envconfig:"FUELPASS_QR_TOKEN_SECRET" required:"true"`
	Issuer string        `envconfig:"FUELPASS_QR_TOKEN_ISSUER" default:"fuelpass"`
	TTL    time.Duration `envconfig:"FUELPASS_QR_TOKEN_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FUELPASS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FUELPASS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FUELPASS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CouponTopic        string `envconfig:"FUELPASS_PUBSUB_COUPON_TOPIC" required:"true"`
	CouponSubscription string `envconfig:"FUELPASS_PUBSUB_COUPON_SUBSCRIPTION" required:"true"`
	RaffleTopic        string `envconfig:"FUELPASS_PUBSUB_RAFFLE_TOPIC" required:"true"`
	RaffleSubscription string `envconfig:"FUELPASS_PUBSUB_RAFFLE_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FUELPASS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FUELPASS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FUELPASS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CouponConfig struct {
	DefaultTickets int           `envconfig:"FUELPASS_COUPON_DEFAULT_TICKETS" default:"1"`
	DefaultTTL     time.Duration `envconfig:"FUELPASS_COUPON_DEFAULT_TTL" default:"168h"`
	ExpirySweep    int           `envconfig:"FUELPASS_COUPON_EXPIRY_SWEEP_BATCH" default:"500"`
}

type RaffleConfig struct {
	SeedBytes    int    `envconfig:"FUELPASS_RAFFLE_SEED_BYTES" default:"32"`
	DefaultPrize string `envconfig:"FUELPASS_RAFFLE_DEFAULT_PRIZE" default:"500.00"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FUELPASS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"FUELPASS_AUTO_MIGRATE" default:"false"`
	ExposeMetrics bool `envconfig:"FUELPASS_EXPOSE_METRICS" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
