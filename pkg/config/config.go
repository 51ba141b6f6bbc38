package config

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
)

const (
	EnvPrefix = "BLOOMLINK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BLOOMLINK_DB_DSN"
	EnvDBHost = "BLOOMLINK_DB_HOST"
	EnvDBUser = "BLOOMLINK_DB_USER"
	EnvDBName = "BLOOMLINK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// weightSumTolerance absorbs float parsing noise when checking that the
// assignment weights sum to 1.
const weightSumTolerance = 1e-9

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Commission   CommissionConfig
	Settlement   SettlementConfig
	Assignment   AssignmentConfig
	Stores       StoresConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

// Load parses the environment and fails fast on any structurally invalid
// configuration. Nothing downstream re-validates rates or weights.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the cross-field invariants the
// assignment and settlement engines rely on.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidConfig, err, "config validation failed")
	}
	if err := c.Assignment.validateWeights(); err != nil {
		return err
	}
	if err := c.Commission.validateTiers(); err != nil {
		return err
	}
	if _, err := c.Settlement.Location(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidConfig, err, "invalid settlement timezone")
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"BLOOMLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"BLOOMLINK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BLOOMLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLOOMLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BLOOMLINK_SERVICE_KIND" default:"settlement-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"BLOOMLINK_DB_DSN"`
	Driver string `envconfig:"BLOOMLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLOOMLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"BLOOMLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLOOMLINK_DB_USER"`
	LegacyPassword string `envconfig:"BLOOMLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLOOMLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLOOMLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLOOMLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLOOMLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLOOMLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLOOMLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLOOMLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLOOMLINK_REDIS_ADDR"`
	Password     string        `envconfig:"BLOOMLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLOOMLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLOOMLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLOOMLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLOOMLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLOOMLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLOOMLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// VolumeDiscountTier reduces the effective commission rate once a store's
// trailing-month order count reaches MinOrders.
type VolumeDiscountTier struct {
	MinOrders int     `validate:"gte=0"`
	Discount  float64 `validate:"gte=0,lte=1"`
}

type CommissionConfig struct {
	PlatformRate          float64 `envconfig:"BLOOMLINK_COMMISSION_PLATFORM_RATE" default:"0.25" validate:"gte=0,lte=1"`
	VolumeDiscountEnabled bool    `envconfig:"BLOOMLINK_COMMISSION_VOLUME_DISCOUNT_ENABLED" default:"false"`

	// Encoded as "minOrders:discount" pairs, e.g. "100:0.2,50:0.1".
	VolumeDiscountTiersRaw string `envconfig:"BLOOMLINK_COMMISSION_VOLUME_DISCOUNT_TIERS"`
}

// Tiers returns the volume discount tiers sorted by MinOrders descending, so
// evaluation is always first-match-wins against the largest threshold.
func (c CommissionConfig) Tiers() []VolumeDiscountTier {
	tiers := parseTiers(c.VolumeDiscountTiersRaw)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinOrders > tiers[j].MinOrders
	})
	return tiers
}

func parseTiers(raw string) []VolumeDiscountTier {
	var tiers []VolumeDiscountTier
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var minOrders int
		var discount float64
		if _, err := fmt.Sscanf(part, "%d:%f", &minOrders, &discount); err != nil {
			continue
		}
		tiers = append(tiers, VolumeDiscountTier{MinOrders: minOrders, Discount: discount})
	}
	return tiers
}

func (c CommissionConfig) validateTiers() error {
	for _, tier := range c.Tiers() {
		if tier.MinOrders < 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidConfig, "volume discount tier minOrders must not be negative")
		}
		if tier.Discount < 0 || tier.Discount > 1 {
			return pkgerrors.New(pkgerrors.CodeInvalidConfig, "volume discount tier discount must be within [0,1]")
		}
	}
	return nil
}

type SettlementConfig struct {
	// Weekday follows time.Weekday numbering (Sunday=0). Default Friday.
	Weekday  int    `envconfig:"BLOOMLINK_SETTLEMENT_WEEKDAY" default:"5" validate:"gte=0,lte=6"`
	Hour     int    `envconfig:"BLOOMLINK_SETTLEMENT_HOUR" default:"14" validate:"gte=0,lte=23"`
	Minute   int    `envconfig:"BLOOMLINK_SETTLEMENT_MINUTE" default:"0" validate:"gte=0,lte=59"`
	Timezone string `envconfig:"BLOOMLINK_SETTLEMENT_TIMEZONE" default:"Asia/Seoul"`

	MinSettlementAmountKRW int `envconfig:"BLOOMLINK_SETTLEMENT_MIN_AMOUNT" default:"100000" validate:"gte=0"`
}

// Location resolves the configured settlement timezone.
func (s SettlementConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

type AssignmentConfig struct {
	OrdersSentWeight     float64 `envconfig:"BLOOMLINK_ASSIGNMENT_WEIGHT_ORDERS_SENT" default:"0.4" validate:"gte=0,lte=1"`
	AcceptanceRateWeight float64 `envconfig:"BLOOMLINK_ASSIGNMENT_WEIGHT_ACCEPTANCE_RATE" default:"0.3" validate:"gte=0,lte=1"`
	OnTimeRateWeight     float64 `envconfig:"BLOOMLINK_ASSIGNMENT_WEIGHT_ON_TIME_RATE" default:"0.3" validate:"gte=0,lte=1"`

	LowPointsPenalty       float64 `envconfig:"BLOOMLINK_ASSIGNMENT_LOW_POINTS_PENALTY" default:"50" validate:"gte=0"`
	LowBalanceThresholdKRW int     `envconfig:"BLOOMLINK_ASSIGNMENT_LOW_BALANCE_THRESHOLD" default:"100000" validate:"gte=0"`

	// Number of trailing days of order history used when computing store
	// metrics for a scoring pass.
	MetricsWindowDays int `envconfig:"BLOOMLINK_ASSIGNMENT_METRICS_WINDOW_DAYS" default:"90" validate:"gte=1"`
}

func (a AssignmentConfig) validateWeights() error {
	sum := a.OrdersSentWeight + a.AcceptanceRateWeight + a.OnTimeRateWeight
	if math.Abs(sum-1.0) > weightSumTolerance {
		return pkgerrors.New(pkgerrors.CodeInvalidConfig,
			fmt.Sprintf("assignment weights must sum to 1, got %g", sum))
	}
	return nil
}

type StoresConfig struct {
	MaxServiceAreasPerStore int `envconfig:"BLOOMLINK_STORES_MAX_SERVICE_AREAS" default:"10" validate:"gte=1"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BLOOMLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BLOOMLINK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BLOOMLINK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BLOOMLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BLOOMLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic        string `envconfig:"BLOOMLINK_PUBSUB_SETTLEMENT_TOPIC" default:"bl-settlement-events"`
	SettlementSubscription string `envconfig:"BLOOMLINK_PUBSUB_SETTLEMENT_SUBSCRIPTION"`
	OrdersTopic            string `envconfig:"BLOOMLINK_PUBSUB_ORDERS_TOPIC" default:"bl-order-events"`
	OrdersSubscription     string `envconfig:"BLOOMLINK_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BLOOMLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BLOOMLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BLOOMLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
