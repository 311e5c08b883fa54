package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Commission   CommissionConfig
	Delivery     DeliveryConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
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
	Env          string `envconfig:"ATHATH_APP_ENV" required:"true"`
	Port         string `envconfig:"ATHATH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ATHATH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ATHATH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ATHATH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ATHATH_DB_DSN"`
	Driver string `envconfig:"ATHATH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ATHATH_DB_HOST"`
	LegacyPort     int    `envconfig:"ATHATH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ATHATH_DB_USER"`
	LegacyPassword string `envconfig:"ATHATH_DB_PASSWORD"`
	LegacyName     string `envconfig:"ATHATH_DB_NAME"`
	LegacySSLMode  string `envconfig:"ATHATH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ATHATH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ATHATH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ATHATH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ATHATH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ATHATH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ATHATH_REDIS_ADDR"`
	Password     string        `envconfig:"ATHATH_REDIS_PASSWORD"`
	DB           int           `envconfig:"ATHATH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ATHATH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ATHATH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ATHATH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ATHATH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ATHATH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ATHATH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ATHATH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ATHATH_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token TTL.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// GatewayConfig configures the card payment gateway. Provider selects the
// backing implementation: "square" talks to the real processor, "simulator"
// runs the in-process stub used in dev and tests.
type GatewayConfig struct {
	Provider       string        `envconfig:"ATHATH_GATEWAY_PROVIDER" default:"square"`
	AccessToken    string        `envconfig:"ATHATH_GATEWAY_ACCESS_TOKEN"`
	LocationID     string        `envconfig:"ATHATH_GATEWAY_LOCATION_ID"`
	BaseURL        string        `envconfig:"ATHATH_GATEWAY_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"ATHATH_GATEWAY_REQUEST_TIMEOUT" default:"15s"`
}

// Sandbox reports whether the gateway points at a non-production endpoint.
func (g GatewayConfig) Sandbox() bool {
	return g.Provider != "square" || strings.Contains(g.BaseURL, "sandbox")
}

type CommissionConfig struct {
	DefaultRateBps int64 `envconfig:"ATHATH_COMMISSION_DEFAULT_RATE_BPS" default:"1200"`
}

type DeliveryConfig struct {
	FlatFee       int64 `envconfig:"ATHATH_DELIVERY_FLAT_FEE" default:"5000"`
	FreeThreshold int64 `envconfig:"ATHATH_DELIVERY_FREE_THRESHOLD" default:"50000"`
}

// RateLimitConfig throttles payment attempts. Card testing rings probe stolen
// numbers through checkout flows, so the pay surface gets tighter limits than
// the rest of the API.
type RateLimitConfig struct {
	PayWindow       time.Duration `envconfig:"ATHATH_RATE_LIMIT_PAY_WINDOW" default:"1m"`
	PayIPLimit      int           `envconfig:"ATHATH_RATE_LIMIT_PAY_IP_LIMIT" default:"30"`
	PaySubjectLimit int           `envconfig:"ATHATH_RATE_LIMIT_PAY_SUBJECT_LIMIT" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ATHATH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ATHATH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ATHATH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"ATHATH_PUBSUB_ORDERS_TOPIC" default:"athath-order-events"`
	OrdersSubscription    string `envconfig:"ATHATH_PUBSUB_ORDERS_SUBSCRIPTION" default:"athath-order-events-worker"`
	AnalyticsTopic        string `envconfig:"ATHATH_PUBSUB_ANALYTICS_TOPIC" default:"athath-analytics-events"`
	AnalyticsSubscription string `envconfig:"ATHATH_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"athath-analytics-events-worker"`
}

type CronConfig struct {
	ReconcileInterval  time.Duration `envconfig:"ATHATH_CRON_RECONCILE_INTERVAL" default:"5m"`
	ReconcileBatchSize int           `envconfig:"ATHATH_CRON_RECONCILE_BATCH_SIZE" default:"50"`
	PendingPaymentAge  time.Duration `envconfig:"ATHATH_CRON_PENDING_PAYMENT_AGE" default:"10m"`
	LockTTL            time.Duration `envconfig:"ATHATH_CRON_LOCK_TTL" default:"4m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ATHATH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ATHATH_AUTO_MIGRATE" default:"false"`
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
