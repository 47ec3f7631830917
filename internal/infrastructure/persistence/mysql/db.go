package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架，按database.driver选择方言（mysql/postgres/sqlite）
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. database.auto_migrate为true时自动迁移表结构
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	// 1. 选择方言
	dialector, err := openDialector(cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. 配置GORM日志
	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	// 3. 连接数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 4. 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		// sqlite同一时刻只允许一个写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}

	// 5. 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))

	// 6. 自动迁移表结构（开发环境）
	// 注意：生产环境应使用版本化的迁移脚本（cmd: library migrate）
	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	return db, nil
}

func openDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql", "":
		return mysql.Open(cfg.DSN()), nil
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// AutoMigrate 自动迁移表结构
// 学习要点：
// 1. AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
// 2. 迁移顺序：先被引用的表（users/categories），再引用它们的表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&CategoryModel{},
		&BookModel{},
		&SubscriptionModel{},
	)
}

// UserModel GORM用户模型
// 设计说明：
// 1. 这是infrastructure层的数据模型，包含GORM tag
// 2. domain/user/entity.go是领域实体，不依赖GORM
// 3. Repository负责两者之间的转换
type UserModel struct {
	ID        uint      `gorm:"primaryKey"`
	FirstName string    `gorm:"size:50;not null;comment:名"`
	LastName  string    `gorm:"size:50;not null;comment:姓"`
	Username  string    `gorm:"uniqueIndex;size:50;not null;comment:用户名"`
	Email     string    `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password  string    `gorm:"size:255;not null;comment:密码（bcrypt加密）"`
	Role      int       `gorm:"not null;default:1;comment:角色(1顾客2员工)"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// CategoryModel GORM分类模型
type CategoryModel struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:100;not null;comment:分类名"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

// TableName 指定表名
func (CategoryModel) TableName() string {
	return "categories"
}

// BookModel GORM图书模型
// 设计说明:
// 1. BorrowerID有索引,用户借阅列表直接按它反查(不单独维护反向集合)
// 2. 借阅日期只存日期部分
// 3. State使用int存储(1可借阅2已借出)
type BookModel struct {
	ID         uint           `gorm:"primaryKey"`
	Title      string         `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author     string         `gorm:"index:idx_search;size:100;not null;comment:作者"`
	Blocked    bool           `gorm:"not null;default:false;comment:是否冻结"`
	State      int            `gorm:"not null;default:1;comment:借阅状态(1可借阅2已借出)"`
	FromDate   *time.Time     `gorm:"type:date;comment:借阅开始日期"`
	ToDate     *time.Time     `gorm:"type:date;comment:借阅截止日期"`
	CategoryID *uint          `gorm:"index;comment:分类ID"`
	BorrowerID *uint          `gorm:"index;comment:借阅人用户ID"`
	Category   *CategoryModel `gorm:"foreignKey:CategoryID"`
	Borrower   *UserModel     `gorm:"foreignKey:BorrowerID"`
	CreatedAt  time.Time      `gorm:"comment:创建时间"`
	UpdatedAt  time.Time      `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}

// SubscriptionModel 用户订阅分类(多对多关联表)
// 复合主键保证同一用户对同一分类只有一条记录
type SubscriptionModel struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false"`
	CategoryID uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time `gorm:"comment:订阅时间"`
}

// TableName 指定表名
func (SubscriptionModel) TableName() string {
	return "category_subscriptions"
}
