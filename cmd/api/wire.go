//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 修改后运行 `wire gen ./cmd/api` 重新生成wire_gen.go

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	appbook "github.com/xiebiao/library/internal/application/book"
	appcategory "github.com/xiebiao/library/internal/application/category"
	"github.com/xiebiao/library/internal/application/shared"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/messaging"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
)

// infrastructureSet 基础设施：存储、Redis、消息分发
var infrastructureSet = wire.NewSet(
	provideStorage,
	provideRedis,
	provideDispatcher,
	wire.Bind(new(event.Dispatcher), new(*messaging.Dispatcher)),
)

// repositorySet 仓储（按database.driver选出）
var repositorySet = wire.NewSet(
	provideTxManager,
	provideUserRepository,
	provideBookRepository,
	provideCategoryRepository,
)

// domainSet 领域服务
var domainSet = wire.NewSet(
	provideUserService,
	provideBookService,
	provideCategoryService,
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	shared.NewExecutor,
	appuser.NewRegisterUseCase,
	appuser.NewLoginUseCase,
	appuser.NewLogoutUseCase,
	appuser.NewRefreshTokenUseCase,
	appuser.NewListUsersUseCase,
	appuser.NewGetUserUseCase,
	appbook.NewCreateBookUseCase,
	appbook.NewBlockBookUseCase,
	appbook.NewBorrowBookUseCase,
	appbook.NewReturnBookUseCase,
	appbook.NewListBooksUseCase,
	appbook.NewListUserBooksUseCase,
	appcategory.NewCreateCategoryUseCase,
	appcategory.NewListCategoriesUseCase,
	appcategory.NewSubscribeUseCase,
	appcategory.NewListSubscriptionsUseCase,
)

// middlewareSet JWT与会话
var middlewareSet = wire.NewSet(
	provideJWTManager,
	redis.NewSessionStore,
	wire.Bind(new(appuser.SessionStore), new(*redis.SessionStore)),
	wire.Bind(new(middleware.TokenBlacklist), new(*redis.SessionStore)),
	middleware.NewAuthMiddleware,
)

// handlerSet HTTP处理器
var handlerSet = wire.NewSet(
	handler.NewUserHandler,
	handler.NewBookHandler,
	handler.NewCategoryHandler,
)

// InitializeApp 组装serve命令的全部组件
// 返回的cleanup按创建的逆序释放资源（分发器排空 → Redis → 数据库）
func InitializeApp(cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		middlewareSet,
		handlerSet,
		provideEngine,
		provideHealthServer,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
