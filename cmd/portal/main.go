// Command portal serves the customer and employee portal: session-aware
// page guards, sign-in and sign-up, and protected product actions.
//
// @title        Portal API
// @version      1.0
// @description  Session-aware access control for the customer and employee portal.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gomongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/finportal/portal/internal/api"
	"github.com/finportal/portal/internal/api/handler"
	"github.com/finportal/portal/internal/core/ports"
	"github.com/finportal/portal/internal/core/service"
	"github.com/finportal/portal/internal/infrastructure/db/mongo"
	"github.com/finportal/portal/internal/infrastructure/db/postgres"
	"github.com/finportal/portal/internal/infrastructure/db/redis"
	"github.com/finportal/portal/internal/infrastructure/identity"
	"github.com/finportal/portal/internal/infrastructure/memory"
	"github.com/finportal/portal/internal/infrastructure/queue"
	"github.com/finportal/portal/internal/pkg/config"
	"github.com/finportal/portal/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// seeder provisions an employee account in a record store.
type seeder interface {
	SeedEmployee(ctx context.Context, username, password string) error
}

// backends are the connections opened at startup. Nil fields are not
// configured.
type backends struct {
	mongoClient *gomongo.Client
	mongoDB     *gomongo.Database
	redis       *goredis.Client
	pg          *pgxpool.Pool

	records    ports.RecordStore
	identities ports.IdentityRepository
	checks     map[string]handler.Checker
}

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "portal",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := connect(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect backends")
	}
	defer b.close(log)

	if cfg.Employee.Username != "" && cfg.Employee.Password != "" {
		if s, ok := b.records.(seeder); ok {
			if err := s.SeedEmployee(ctx, cfg.Employee.Username, cfg.Employee.Password); err != nil {
				log.Fatal().Err(err).Msg("seed employee")
			}
			log.Info().Str("username", cfg.Employee.Username).Msg("employee seeded")
		}
	}

	hub := queue.NewHub(cfg.Portal.EventWorkers, b.redis, log)
	hub.Start(ctx)

	idp := identity.NewProvider(b.identities, hub, cfg.JWTSecret, cfg.SessionTTL, log)
	memStorage := memory.NewStorage()
	factory := func(visitorID string) service.VisitorDeps {
		var (
			local   ports.LocalStore
			notices ports.NoticeStore
		)
		if b.redis != nil {
			local = redis.NewLocalStore(b.redis, visitorID, cfg.SessionTTL)
			notices = redis.NewNoticeStore(b.redis, visitorID)
		} else {
			local = memStorage.LocalStore(visitorID)
			notices = memStorage.NoticeStore(visitorID)
		}
		return service.VisitorDeps{
			Sessions: idp.ForVisitor(visitorID, local),
			Local:    local,
			Notices:  notices,
		}
	}

	portals := service.NewRegistry(factory, b.records, service.PortalConfig{
		LoginPath:       cfg.Portal.LoginPath,
		DefaultLanding:  cfg.Portal.DefaultLanding,
		EmployeeLanding: cfg.Portal.EmployeeLanding,
		NoticeTTL:       cfg.Portal.NoticeTTL,
	}, cfg.Portal.VisitorIdleTTL, log)
	defer portals.Close()
	go portals.Run(ctx)

	e := api.NewRouter(api.RouterConfig{
		Portals:      portals,
		Checks:       b.checks,
		CookieName:   cfg.Portal.VisitorCookie,
		SecureCookie: cfg.IsProduction(),
		GuardWait:    cfg.Portal.GuardWait,
		Log:          log,
	})

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("record_store", cfg.RecordStore).
			Bool("redis", b.redis != nil).
			Msg("portal listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
}

// connect opens the configured backends and picks the record store and
// identity repository. RECORD_STORE=memory runs without any external
// service.
func connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backends, error) {
	b := &backends{checks: make(map[string]handler.Checker)}

	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, err
		}
		b.redis = rdb
		b.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn().Msg("REDIS_ADDR not set; visitor storage and session events stay in process")
	}

	if cfg.RecordStore == config.StoreMemory {
		b.records = memory.NewRecordStore()
		b.identities = memory.NewIdentityRepository()
		log.Warn().Msg("RECORD_STORE=memory; nothing is persisted")
		return b, nil
	}

	// Identities live in MongoDB for both persistent record stores.
	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		Timeout:     cfg.Mongo.Timeout,
	})
	if err != nil {
		b.close(log)
		return nil, err
	}
	b.mongoClient, b.mongoDB = client, db
	b.checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }

	identities := mongo.NewIdentityRepository(db)
	if err := identities.EnsureIndexes(ctx); err != nil {
		b.close(log)
		return nil, err
	}
	b.identities = identities

	switch cfg.RecordStore {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
			Timeout:  cfg.Postgres.Timeout,
		})
		if err != nil {
			b.close(log)
			return nil, err
		}
		b.pg = pool
		b.checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			b.close(log)
			return nil, err
		}
		b.records = postgres.NewRecordStore(pool)
	default:
		records := mongo.NewRecordStore(db)
		if err := records.EnsureIndexes(ctx); err != nil {
			b.close(log)
			return nil, err
		}
		b.records = records
	}
	return b, nil
}

func (b *backends) close(log zerolog.Logger) {
	if b.pg != nil {
		b.pg.Close()
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
	if b.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.mongoClient.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("close mongodb")
		}
	}
}
