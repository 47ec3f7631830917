package user

import (
	"context"

	"github.com/xiebiao/library/internal/domain/page"
)

// Repository 用户仓储接口
// 实现方（mysql、memory）在记录不存在时返回NotFound类错误
type Repository interface {
	// Create 创建用户
	// 用户名或邮箱已存在时返回ErrUsernameDuplicate/ErrEmailDuplicate
	Create(ctx context.Context, user *User) error

	FindByID(ctx context.Context, id uint) (*User, error)

	FindByUsername(ctx context.Context, username string) (*User, error)

	FindByEmail(ctx context.Context, email string) (*User, error)

	// List 分页查询（按ID升序）
	List(ctx context.Context, req page.Request) ([]*User, int64, error)
}
