package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Record store backends selectable with RECORD_STORE.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port       string        `env:"PORT,        default=8080"`
	Env        string        `env:"ENV,         default=development"`
	LogLevel   string        `env:"LOG_LEVEL,   default=info"`
	JWTSecret  string        `env:"JWT_SECRET,  required"`
	SessionTTL time.Duration `env:"SESSION_TTL, default=24h"`

	// RecordStore picks the backend for profiles, customer ids and employee
	// credentials: mongo, postgres or memory.
	RecordStore string `env:"RECORD_STORE, default=mongo"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Portal   PortalConfig
	Employee EmployeeSeed
}

type MongoConfig struct {
	URI         string        `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string        `env:"MONGO_DB,            default=portal"`
	MaxPoolSize uint64        `env:"MONGO_MAX_POOL_SIZE, default=50"`
	Timeout     time.Duration `env:"MONGO_TIMEOUT,       default=10s"`
}

// RedisConfig configures visitor storage and the session event channel.
// An empty Addr keeps both in process.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,        default=0"`
	PoolSize int           `env:"REDIS_POOL_SIZE, default=20"`
	Timeout  time.Duration `env:"REDIS_TIMEOUT,   default=3s"`
}

type PostgresConfig struct {
	DSN      string        `env:"POSTGRES_DSN"`
	MaxConns int32         `env:"POSTGRES_MAX_CONNS, default=10"`
	Timeout  time.Duration `env:"POSTGRES_TIMEOUT,   default=10s"`
}

type PortalConfig struct {
	LoginPath       string        `env:"LOGIN_PATH,       default=/login"`
	DefaultLanding  string        `env:"DEFAULT_LANDING,  default=/profile"`
	EmployeeLanding string        `env:"EMPLOYEE_LANDING, default=/employee"`
	NoticeTTL       time.Duration `env:"NOTICE_TTL,       default=5s"`
	VisitorCookie   string        `env:"VISITOR_COOKIE,   default=portal_visitor"`
	VisitorIdleTTL  time.Duration `env:"VISITOR_IDLE_TTL, default=30m"`
	EventWorkers    int           `env:"EVENT_WORKERS,    default=4"`
	GuardWait       time.Duration `env:"GUARD_WAIT,       default=3s"`
}

// EmployeeSeed, when both fields are set, provisions one employee account at
// startup.
type EmployeeSeed struct {
	Username string `env:"EMPLOYEE_SEED_USERNAME"`
	Password string `env:"EMPLOYEE_SEED_PASSWORD"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from l and checks cross-field constraints.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.RecordStore {
	case StoreMongo, StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when RECORD_STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("RECORD_STORE must be one of %s, %s, %s; got %q", StoreMongo, StorePostgres, StoreMemory, c.RecordStore)
	}
	if c.Portal.EventWorkers < 1 {
		return fmt.Errorf("EVENT_WORKERS must be positive")
	}
	return nil
}
