package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Admin        AdminConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Storefront   StorefrontConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Storefront.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HERBSTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"HERBSTORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HERBSTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HERBSTORE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"HERBSTORE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HERBSTORE_DB_DSN"`
	Driver string `envconfig:"HERBSTORE_DB_DRIVER" default:"postgres"`
	// SQLitePath is used when the sqlite feature flag is on.
	SQLitePath string `envconfig:"HERBSTORE_DB_SQLITE_PATH" default:"file:herbstore.db?cache=shared"`

	LegacyHost     string `envconfig:"HERBSTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"HERBSTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HERBSTORE_DB_USER"`
	LegacyPassword string `envconfig:"HERBSTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"HERBSTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"HERBSTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HERBSTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HERBSTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HERBSTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HERBSTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which queries are logged at warn.
	SlowQuery time.Duration `envconfig:"HERBSTORE_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HERBSTORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HERBSTORE_REDIS_ADDR"`
	Password     string        `envconfig:"HERBSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"HERBSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HERBSTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HERBSTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HERBSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HERBSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HERBSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HERBSTORE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HERBSTORE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HERBSTORE_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TTL is the lifetime of an access token.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// AdminConfig holds the single back office account. PasswordHash is an
// argon2id hash produced by cmd/admin-password.
type AdminConfig struct {
	Email        string `envconfig:"HERBSTORE_ADMIN_EMAIL"`
	PasswordHash string `envconfig:"HERBSTORE_ADMIN_PASSWORD_HASH"`
}

// Enabled reports whether admin login is configured.
func (a AdminConfig) Enabled() bool {
	return strings.TrimSpace(a.Email) != "" && strings.TrimSpace(a.PasswordHash) != ""
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"HERBSTORE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"HERBSTORE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"HERBSTORE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"HERBSTORE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"HERBSTORE_ARGON_KEY_LEN" default:"32"`
}

// RateLimitConfig bounds anonymous cart and checkout traffic per client IP.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"HERBSTORE_RATE_LIMIT_WINDOW" default:"1m"`
	CartLimit     int           `envconfig:"HERBSTORE_RATE_LIMIT_CART" default:"120"`
	CheckoutLimit int           `envconfig:"HERBSTORE_RATE_LIMIT_CHECKOUT" default:"10"`
	LoginLimit    int           `envconfig:"HERBSTORE_RATE_LIMIT_LOGIN" default:"5"`
	// TrustedProxyHops counts the reverse proxies that append to
	// X-Forwarded-For. Zero keys limits on the socket address only.
	TrustedProxyHops int `envconfig:"HERBSTORE_RATE_LIMIT_TRUSTED_PROXY_HOPS" default:"0"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HERBSTORE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HERBSTORE_AUTO_MIGRATE" default:"false"`
}

type StorefrontConfig struct {
	// ShippingFee is a decimal string applied once per cart.
	ShippingFee       string        `envconfig:"HERBSTORE_SHIPPING_FEE" default:"1.5"`
	CurrencyLabel     string        `envconfig:"HERBSTORE_CURRENCY_LABEL" default:"ر.ع"`
	CartTTL           time.Duration `envconfig:"HERBSTORE_CART_TTL" default:"168h"`
	BestSellingLimit  int           `envconfig:"HERBSTORE_BEST_SELLING_LIMIT" default:"4"`
	RelatedLimit      int           `envconfig:"HERBSTORE_RELATED_LIMIT" default:"4"`
	OrderViewFanout   int           `envconfig:"HERBSTORE_ORDER_VIEW_FANOUT" default:"8"`
	DefaultPageLimit  int           `envconfig:"HERBSTORE_DEFAULT_PAGE_LIMIT" default:"10"`
	IdempotencyTTL    time.Duration `envconfig:"HERBSTORE_IDEMPOTENCY_TTL" default:"24h"`
	CheckoutLockGrace time.Duration `envconfig:"HERBSTORE_CHECKOUT_LOCK_GRACE" default:"30s"`
}

// ShippingFeeAmount parses the configured shipping fee.
func (s StorefrontConfig) ShippingFeeAmount() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(strings.TrimSpace(s.ShippingFee))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvShippingFee, err)
	}
	return fee, nil
}

func (s StorefrontConfig) validate() error {
	fee, err := s.ShippingFeeAmount()
	if err != nil {
		return err
	}
	if fee.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvShippingFee)
	}
	if s.OrderViewFanout <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrderViewFanout)
	}
	return nil
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"HERBSTORE_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
