package book

import (
	"context"

	"github.com/xiebiao/library/internal/domain/page"
)

// Repository 图书仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现(mysql/memory)
// 2. 查询结果需要带上Category与Borrower
// 3. 所有方法都从ctx中获取当前事务
type Repository interface {
	// Create 创建图书,回填ID
	Create(ctx context.Context, book *Book) error

	// FindByID 普通读取,不存在返回NotFound类错误
	FindByID(ctx context.Context, id uint) (*Book, error)

	// LockByID 悲观锁读取(SELECT ... FOR UPDATE)
	// 必须在事务内调用,锁持有到事务提交或回滚
	LockByID(ctx context.Context, id uint) (*Book, error)

	// Block 只写冻结标记,不触碰借阅字段
	Block(ctx context.Context, id uint) error

	// SaveLoan 写入借阅状态、借阅人与借阅日期
	// 只允许在LockByID持有行锁期间调用
	SaveLoan(ctx context.Context, book *Book) error

	// ReleaseLoan 清空借阅信息,条件是当前借阅人仍为borrowerID
	// 条件不满足(已被归还或已被他人重新借出)时返回ErrCodeBookNotBorrowed
	ReleaseLoan(ctx context.Context, id, borrowerID uint) error

	// List 分页查询(按ID升序)
	List(ctx context.Context, req page.Request) ([]*Book, int64, error)

	// ListByBorrower 用户当前借阅的图书
	ListByBorrower(ctx context.Context, userID uint) ([]*Book, error)
}
