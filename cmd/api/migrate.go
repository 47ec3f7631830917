package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "迁移表结构",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.Database.Driver == "memory" {
				return errors.New("memory驱动不需要迁移")
			}

			db, err := mysql.NewDB(cfg, log)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err := mysql.AutoMigrate(db); err != nil {
				return err
			}
			log.Info("数据库迁移完成")
			return nil
		},
	}
}
