package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Ledger        DBConfig `envconfig:"LEDGER"`
	Catalog       DBConfig `envconfig:"CATALOG"`
	Redis         RedisConfig
	JWT           JWTConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Notifications NotificationsConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Ledger.ensureDSN("ledger"); err != nil {
		return nil, err
	}
	if err := cfg.Catalog.ensureDSN("catalog"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RESTO_APP_ENV" required:"true"`
	Port         string `envconfig:"RESTO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RESTO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESTO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig is shared by the ledger and catalog stores. The two stores are
// independent databases and never share a connection or a transaction, so the
// struct carries no explicit env names: envconfig derives them from the
// section prefix (RESTO_LEDGER_*, RESTO_CATALOG_*).
type DBConfig struct {
	DSN    string `split_words:"true"`
	Driver string `split_words:"true" default:"postgres"`

	Host     string `split_words:"true"`
	Port     int    `split_words:"true" default:"5432"`
	User     string `split_words:"true"`
	Password string `split_words:"true"`
	Name     string `split_words:"true"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`

	MaxOpenConns    int           `split_words:"true" default:"20"`
	MaxIdleConns    int           `split_words:"true" default:"10"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"1h"`
	ConnMaxIdleTime time.Duration `split_words:"true" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESTO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RESTO_REDIS_ADDR"`
	Password     string        `envconfig:"RESTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESTO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RESTO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RESTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RESTO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RESTO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RESTO_JWT_EXPIRATION_MINUTES" required:"true"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"RESTO_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"RESTO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"RESTO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"RESTO_PUBSUB_NOTIFICATION_TOPIC" default:"resto-notification-events"`
	NotificationSubscription string `envconfig:"RESTO_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type NotificationsConfig struct {
	DispatchTimeout time.Duration `envconfig:"RESTO_NOTIFICATIONS_DISPATCH_TIMEOUT" default:"5s"`
	EmailTTL        time.Duration `envconfig:"RESTO_NOTIFICATIONS_EMAIL_DEDUPE_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RESTO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(store string) error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for field, value := range map[string]string{
		"host": db.Host,
		"user": db.User,
		"name": db.Name,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s store: either a dsn or %s must be configured", store, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
