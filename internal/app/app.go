package app

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"helpem-go/internal/cache"
	"helpem-go/internal/config"
	"helpem-go/internal/db"
	personaldomain "helpem-go/internal/domain/personal"
	proposaldomain "helpem-go/internal/domain/proposal"
	suppressiondomain "helpem-go/internal/domain/suppression"
	tribedomain "helpem-go/internal/domain/tribe"
	personalrepo "helpem-go/internal/repository/postgres/personal"
	proposalrepo "helpem-go/internal/repository/postgres/proposal"
	suppressionrepo "helpem-go/internal/repository/postgres/suppression"
	triberepo "helpem-go/internal/repository/postgres/tribe"
	"helpem-go/internal/transport/httpserver"
	"helpem-go/internal/transport/httpserver/handler"
	"helpem-go/pkg/logger"
)

type App struct {
	cfg        config.Config
	httpServer *http.Server
	db         *gorm.DB
	redis      *redis.Client
}

func New(log logger.Logger) (*App, error) {
	log.Info("app: loading config")
	cfg, err := config.Load(log)
	if err != nil {
		return nil, err
	}

	log.Info("app: initializing database")
	dbConn, err := db.NewPostgres(cfg.DB, log)
	if err != nil {
		return nil, err
	}

	log.Info("app: applying migrations")
	if err := db.Migrate(dbConn); err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	inboxCache := proposaldomain.NoopInboxCache()
	if cfg.Cache.Enabled {
		log.Info("app: initializing redis cache", "addr", cfg.Cache.RedisAddr)
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		inboxCache = cache.NewRedisInboxCache(redisClient, log)
	}

	suppressionSvc := suppressiondomain.NewService(suppressionrepo.NewPostgres(dbConn))
	tribeSvc := tribedomain.NewService(triberepo.NewPostgres(dbConn))
	personalSvc := personaldomain.NewService(personalrepo.NewPostgres(dbConn), suppressionSvc)
	proposalSvc := proposaldomain.NewService(
		proposalrepo.NewPostgres(dbConn),
		tribeSvc,
		suppressionSvc,
		inboxCache,
		cfg.Cache.InboxTTL,
	)

	handlers := handler.New(tribeSvc, proposalSvc, personalSvc, suppressionSvc, log)

	log.Info("app: initializing router")
	router := httpserver.NewRouter(cfg, handlers, log)

	log.Info("app: initializing http server")
	srv := httpserver.New(cfg, router)

	return &App{
		cfg:        cfg,
		httpServer: srv,
		db:         dbConn,
		redis:      redisClient,
	}, nil
}

func (a *App) HTTPServer() *http.Server {
	return a.httpServer
}

func (a *App) Close() error {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			return err
		}
	}
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
