package category

import (
	"context"

	"github.com/xiebiao/library/internal/domain/user"
)

// Repository 分类仓储接口
type Repository interface {
	// Create 创建分类，名称重复返回ErrCategoryDuplicate
	Create(ctx context.Context, c *Category) error

	FindByID(ctx context.Context, id uint) (*Category, error)

	// List 全部分类（按ID升序）
	List(ctx context.Context) ([]*Category, error)

	// AddSubscriber 订阅（集合语义：已订阅时不报错、不重复写入）
	AddSubscriber(ctx context.Context, categoryID, userID uint) error

	// ListSubscribers 分类的全部订阅者
	ListSubscribers(ctx context.Context, categoryID uint) ([]*user.User, error)

	// ListByUser 用户订阅的全部分类
	ListByUser(ctx context.Context, userID uint) ([]*Category, error)
}
