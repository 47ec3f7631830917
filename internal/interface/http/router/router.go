// Package router 路由注册
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// Options 路由选项
type Options struct {
	ServiceName   string
	EnableSwagger bool
}

// New 创建Gin引擎并注册全部路由
//
// 中间件顺序：Recovery → Tracing → Logger → Metrics
// Tracing在Logger之前，日志里才能带上trace_id
func New(
	opts Options,
	log *zap.Logger,
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	categoryHandler *handler.CategoryHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(log),
		middleware.Tracing(opts.ServiceName),
		middleware.Logger(log),
		middleware.Metrics(),
	)

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 访问 http://localhost:8080/swagger/index.html 查看API文档
	if opts.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := authMiddleware.RequireAuth()
	employee := middleware.RequireRole(user.RoleEmployee)
	customer := middleware.RequireRole(user.RoleCustomer)

	v1 := r.Group("/api/v1")
	{
		// 用户模块
		users := v1.Group("/users")
		{
			users.POST("", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.POST("/refresh", userHandler.RefreshToken)
			users.POST("/logout", requireAuth, userHandler.Logout)
			users.GET("", requireAuth, employee, userHandler.ListUsers)
			users.GET("/:id", requireAuth, employee, userHandler.GetUser)
			// 顾客只能查自己，由领域服务再校验一次
			users.GET("/:id/books", requireAuth, bookHandler.ListUserBooks)
		}

		// 分类模块
		categories := v1.Group("/categories")
		{
			categories.GET("", authMiddleware.OptionalAuth(), categoryHandler.ListCategories)
			categories.POST("", requireAuth, employee, categoryHandler.CreateCategory)
			categories.GET("/subscriptions", requireAuth, categoryHandler.Subscriptions)
			categories.PATCH("/:id/subscribe", requireAuth, customer, categoryHandler.Subscribe)
		}

		// 图书模块
		books := v1.Group("/books")
		{
			books.GET("", authMiddleware.OptionalAuth(), bookHandler.ListBooks)
			books.POST("", requireAuth, employee, bookHandler.CreateBook)
			books.PATCH("/:id/block", requireAuth, employee, bookHandler.BlockBook)
			books.PUT("/:id/borrow", requireAuth, customer, bookHandler.BorrowBook)
			// 顾客只能归还自己借的书，由领域服务校验
			books.PATCH("/:id/return", requireAuth, bookHandler.ReturnBook)
		}
	}

	return r
}
