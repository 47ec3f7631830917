package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
	"github.com/xiebiao/library/internal/interface/rpc"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/mq"
)

const (
	categoryCacheTTL    = 5 * time.Minute
	healthCheckInterval = 10 * time.Second
	dispatcherDrainWait = 10 * time.Second
)

// App serve命令运行所需的全部组件
type App struct {
	Engine *gin.Engine
	Health *rpc.HealthServer
}

// storage 按database.driver选出的一组仓储
type storage struct {
	tx         shared.TxManager
	users      user.Repository
	books      book.Repository
	categories category.Repository
	pinger     rpc.Pinger
}

// provideStorage memory驱动使用进程内存储，其余驱动走GORM
func provideStorage(cfg *config.Config, log *zap.Logger) (*storage, func(), error) {
	if cfg.Database.Driver == "memory" {
		log.Warn("使用内存存储，重启后数据丢失")
		store := memory.NewStore()
		return &storage{
			tx:         store,
			users:      memory.NewUserRepository(store),
			books:      memory.NewBookRepository(store),
			categories: memory.NewCategoryRepository(store),
		}, func() {}, nil
	}

	db, err := mysql.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("close database failed", zap.Error(err))
		}
	}

	return &storage{
		tx:         mysql.NewTxManager(db),
		users:      mysql.NewUserRepository(db),
		books:      mysql.NewBookRepository(db),
		categories: mysql.NewCategoryRepository(db),
		pinger:     sqlDB,
	}, cleanup, nil
}

func provideTxManager(st *storage) shared.TxManager { return st.tx }

func provideUserRepository(st *storage) user.Repository { return st.users }

func provideBookRepository(st *storage) book.Repository { return st.books }

// provideCategoryRepository 分类列表走Redis缓存
func provideCategoryRepository(st *storage, client *goredis.Client, log *zap.Logger) category.Repository {
	return redis.NewCategoryCache(st.categories, client, categoryCacheTTL, log)
}

// provideRedis Redis客户端（会话与Token黑名单依赖它，serve必须配置）
func provideRedis(cfg *config.Config, log *zap.Logger) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// provideDispatcher 通知分发器
// rabbitmq.enabled=false时消息只写日志
func provideDispatcher(cfg *config.Config, log *zap.Logger) (*messaging.Dispatcher, func(), error) {
	mqCfg := cfg.RabbitMQ

	var (
		publisher messaging.Publisher
		closePub  = func() {}
	)
	if mqCfg.Enabled {
		pub, err := mq.NewPublisher(mqCfg.URL, mqCfg.Exchange, "topic", log)
		if err != nil {
			return nil, nil, err
		}
		if err := pub.Declare(messaging.Bindings(mqCfg.InfoQueue, mqCfg.EmailQueue, mqCfg.PerformanceQueue)...); err != nil {
			_ = pub.Close()
			return nil, nil, err
		}
		publisher = pub
		closePub = func() { _ = pub.Close() }
	} else {
		log.Info("RabbitMQ未启用，通知消息只写日志")
		publisher = messaging.NewLogPublisher(log)
	}

	d := messaging.NewDispatcher(publisher, messaging.Options{
		Workers:         mqCfg.Workers,
		BufferSize:      mqCfg.BufferSize,
		BreakerFailures: mqCfg.BreakerFailures,
		BreakerTimeout:  mqCfg.BreakerTimeout,
	}, log)

	// 先排空缓冲区再关闭连接
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatcherDrainWait)
		defer cancel()
		if err := d.Close(ctx); err != nil {
			log.Warn("dispatcher close timeout, pending events dropped", zap.Error(err))
		}
		closePub()
	}
	return d, cleanup, nil
}

func provideUserService(repo user.Repository) user.Service {
	return user.NewService(repo)
}

func provideBookService(repo book.Repository, users user.Repository, categories category.Repository) book.Service {
	return book.NewService(repo, users, categories)
}

func provideCategoryService(repo category.Repository, users user.Repository) category.Service {
	return category.NewService(repo, users)
}

// provideJWTManager 从配置创建JWT管理器
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
}

// provideEngine 创建Gin引擎，release模式下不暴露Swagger
func provideEngine(
	cfg *config.Config,
	log *zap.Logger,
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	categoryHandler *handler.CategoryHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return router.New(router.Options{
		ServiceName:   cfg.Tracing.ServiceName,
		EnableSwagger: cfg.Server.Mode != gin.ReleaseMode,
	}, log, userHandler, bookHandler, categoryHandler, authMiddleware)
}

func provideHealthServer(st *storage, log *zap.Logger) *rpc.HealthServer {
	return rpc.NewHealthServer(st.pinger, healthCheckInterval, log)
}
