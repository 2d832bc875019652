package container

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/application"
	repo "github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-identity/internal/infrastructure/redisstore"
	"github.com/oksasatya/go-ddd-identity/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	"github.com/oksasatya/go-ddd-identity/pkg/metrics"
)

// Container holds the components shared by the router modules and commands.
type Container struct {
	Cfg    *config.Config
	Logger *logrus.Logger

	PGPool    *pgxpool.Pool
	Redis     *redis.Client
	ES        *elasticsearch.Client
	RabbitPub *helpers.RabbitPublisher

	Repo      repo.UserRepository
	Hasher    *helpers.PasswordHasher
	JWT       *helpers.JWTManager
	Gate      *middleware.Gate
	Auth      *application.AuthService
	Directory *application.DirectoryService

	Registry *prometheus.Registry
	Metrics  *metrics.AuthMetrics

	closers []func()
}

// New connects the configured backends and wires the services. Optional
// integrations (Elasticsearch, RabbitMQ) that fail to connect are logged and skipped.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Cfg: cfg, Logger: logger}

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.NewAuthMetrics("identity", c.Registry)

	store, err := c.openStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Repo = store

	c.openIntegrations(ctx)
	c.wire()
	return c, nil
}

// NewWithRepo wires services over an existing store. No backend is dialed.
func NewWithRepo(cfg *config.Config, logger *logrus.Logger, r repo.UserRepository) *Container {
	c := &Container{Cfg: cfg, Logger: logger, Repo: r}
	c.Registry = prometheus.NewRegistry()
	c.Metrics = metrics.NewAuthMetrics("identity", c.Registry)
	c.wire()
	return c
}

func (c *Container) wire() {
	c.Hasher = helpers.NewPasswordHasher(c.Cfg.BcryptCost)
	c.JWT = helpers.NewJWTManager(c.Cfg.TokenConfig())
	c.Gate = middleware.NewGate(c.JWT, c.Logger, c.Metrics)
	c.Directory = application.NewDirectoryService(c.ES, c.Cfg.ESUsersIndex, c.Logger)

	var sinks []application.UserEventSink
	if c.ES != nil {
		sinks = append(sinks, c.Directory)
	}
	if c.RabbitPub != nil {
		sinks = append(sinks, application.NewWelcomeNotifier(c.RabbitPub, c.Cfg))
	}
	c.Auth = application.NewAuthService(c.Repo, c.Hasher, c.JWT, c.Logger, c.Metrics, sinks...)
}

func (c *Container) openStore(ctx context.Context) (repo.UserRepository, error) {
	switch c.Cfg.CredentialStore {
	case config.StorePostgres:
		pool, err := pginfra.NewPool(ctx, c.Cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.PGPool = pool
		c.closers = append(c.closers, pool.Close)
		if err := pginfra.RunMigrations(c.Cfg.PostgresDSN(), c.Cfg.MigrationsDir, c.Logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pginfra.NewUserRepository(pool), nil
	case config.StoreRedis:
		rdb, err := helpers.NewRedisClient(ctx, c.Cfg.RedisAddr, c.Cfg.RedisPassword, c.Cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c.Redis = rdb
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		return redisstore.NewUserRepository(rdb), nil
	case config.StoreMemory:
		c.Logger.Warn("using in-memory credential store; users are lost on restart")
		return memory.NewUserRepository(), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", c.Cfg.CredentialStore)
	}
}

func (c *Container) openIntegrations(ctx context.Context) {
	if c.Cfg.ElasticsearchEnabled {
		es, err := helpers.NewESClient(c.Cfg.ESAddrs(), c.Cfg.ElasticsearchUser, c.Cfg.ElasticsearchPass)
		if err == nil {
			err = helpers.PingES(ctx, es)
		}
		if err != nil {
			helpers.LogError(c.Logger, "elasticsearch disabled", err, nil)
		} else {
			c.ES = es
		}
	}

	if c.Cfg.MailWelcomeEnabled {
		pub, err := helpers.NewRabbitPublisher(c.Cfg.RabbitMQURL, c.Cfg.RabbitMQEmailQueue)
		if err != nil {
			helpers.LogError(c.Logger, "welcome emails disabled", err, logrus.Fields{"queue": c.Cfg.RabbitMQEmailQueue})
		} else {
			c.RabbitPub = pub
			c.closers = append(c.closers, pub.Close)
		}
	}
}

// Close releases connections in reverse order of opening.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
