// Command library 图书借阅服务
//
// 子命令：
//
//	library serve                     启动HTTP服务（以及gRPC健康检查）
//	library migrate                   迁移表结构
//	library consume                   消费通知队列
//	library category create --name X  创建分类
//	library user create ...           创建用户（交互式输入密码）
//
// @title           Library API
// @version         1.0
// @description     图书借阅服务：图书入库、冻结、借阅、归还，分类订阅与新书通知
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/page"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/response"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "图书借阅服务",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找./config/config.yaml）")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newConsumeCmd(),
		newCategoryCmd(),
		newUserCmd(),
	)
	return root
}

// bootstrap 所有子命令共用的启动步骤：加载配置、创建日志、设置全局参数
func bootstrap() (*config.Config, *zap.Logger, error) {
	// 1. 加载配置
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, nil, err
	}

	// 2. 创建日志
	log, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("创建日志失败: %w", err)
	}

	// 3. 全局参数
	response.SetLogger(log)
	page.SetLimits(cfg.Library.DefaultPageSize, cfg.Library.MaxPageSize)

	return cfg, log, nil
}
