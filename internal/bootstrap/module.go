package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"faulttriage/internal/bootstrap/config"
	"faulttriage/internal/bootstrap/database"
	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/errs"
	cacheinfra "faulttriage/internal/infrastructure/cache"
	"faulttriage/internal/infrastructure/eventbus"
	"faulttriage/internal/infrastructure/lock"
	"faulttriage/internal/infrastructure/metrics"
	"faulttriage/internal/infrastructure/persistence/relational/repository"
	"faulttriage/internal/infrastructure/persistence/relational/uow"
	taxonomyinfra "faulttriage/internal/infrastructure/taxonomy"
	"faulttriage/internal/ports"
	"faulttriage/internal/usecase/triage"
)

const redisKeyPrefix = "faulttriage:"

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			repository.NewFaultRepository,
			fx.As(new(ports.FaultRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			uow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideRedis),
	fx.Provide(provideCache),
	fx.Provide(provideLocker),
	fx.Provide(provideTaxonomy),
	fx.Provide(eventbus.NewHub),
	fx.Provide(provideDecisionPublisher),
	fx.Provide(metrics.NewRecorder),
	fx.Provide(provideTriageService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB, recorder *metrics.Recorder, taxonomy ports.TaxonomyProvider, hub *eventbus.Hub) *App {
	return &App{
		Config:    cfg,
		DB:        db,
		Metrics:   recorder,
		Taxonomy:  taxonomy,
		Decisions: hub,
	}
}

// provideRedis returns nil when no backend is configured to use Redis.
func provideRedis(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (redis.UniversalClient, error) {
	if !cfg.NeedsRedis() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.Wrapf(err, "connect redis %s", cfg.Redis.Addr)
	}
	logging.Info(ctx, "connected to redis", slog.String("addr", cfg.Redis.Addr))

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func provideCache(cfg config.Config, db *gorm.DB, rdb redis.UniversalClient) ports.Cache {
	switch strings.ToLower(cfg.Cache.Backend) {
	case "redis":
		return cacheinfra.NewRedisCache(rdb, redisKeyPrefix+"cache:")
	case "none":
		return nil
	default:
		return cacheinfra.NewSQLCache(db)
	}
}

func provideLocker(cfg config.Config, rdb redis.UniversalClient) ports.KeyLocker {
	if strings.EqualFold(cfg.Lock.Backend, "redis") {
		return lock.NewRedisLocker(rdb, redisKeyPrefix+"lock:", cfg.Lock.TTL)
	}
	return lock.NewMemoryLocker()
}

func provideTaxonomy(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.TaxonomyProvider, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	if strings.TrimSpace(cfg.Taxonomy.File) == "" {
		builtin, err := taxonomyinfra.Builtin()
		if err != nil {
			return nil, errs.Wrap(err, "load builtin taxonomy")
		}
		return taxonomyinfra.NewStatic(builtin), nil
	}

	provider, err := taxonomyinfra.NewFileProvider(cfg.Taxonomy.File)
	if err != nil {
		return nil, errs.Wrap(err, "load taxonomy file")
	}
	logging.Info(
		logCtx,
		"taxonomy loaded",
		slog.String("path", provider.Path()),
		slog.String("version", provider.Current().Version),
	)

	if cfg.Taxonomy.Watch {
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(logCtx))
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(_ context.Context) error {
				go func() {
					defer close(done)
					if err := provider.Watch(watchCtx); err != nil {
						logging.Error(watchCtx, "taxonomy watcher stopped", slog.Any("err", errs.Loggable(err)))
					}
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
				case <-stopCtx.Done():
				}
				return nil
			},
		})
	}
	return provider, nil
}

// provideDecisionPublisher sends decisions to the live hub and to NATS, or to
// the log when no NATS URL is configured.
func provideDecisionPublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config, hub *eventbus.Hub) (ports.DecisionPublisher, error) {
	if strings.TrimSpace(cfg.NATS.URL) == "" {
		return eventbus.Fanout{eventbus.LogPublisher{}, hub}, nil
	}

	pub, err := eventbus.NewNATSPublisher(ctx, cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return pub.Close()
		},
	})
	return eventbus.Fanout{pub, hub}, nil
}

type triageParams struct {
	fx.In

	Config    config.Config
	Repo      ports.FaultRepository
	UOW       ports.UnitOfWork
	Locker    ports.KeyLocker
	Taxonomy  ports.TaxonomyProvider
	Publisher ports.DecisionPublisher
	Recorder  *metrics.Recorder
	Cache     ports.Cache
}

func provideTriageService(p triageParams) *triage.Service {
	return triage.NewService(
		p.Repo,
		p.UOW,
		p.Locker,
		p.Taxonomy,
		p.Publisher,
		p.Recorder,
		p.Cache,
		triage.WithCustomerCacheTTL(p.Config.Cache.TTL),
	)
}
