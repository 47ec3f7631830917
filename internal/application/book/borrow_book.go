package book

import (
	"context"
	"time"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
)

// BorrowBookUseCase 借阅用例
// 事务边界覆盖"加锁读取 → 校验 → 更新"，锁在提交时释放；
// 借阅成功的通知在提交之后才会发出
type BorrowBookUseCase struct {
	executor    *shared.Executor
	bookService book.Service
}

// NewBorrowBookUseCase 创建借阅用例
func NewBorrowBookUseCase(executor *shared.Executor, bookService book.Service) *BorrowBookUseCase {
	return &BorrowBookUseCase{
		executor:    executor,
		bookService: bookService,
	}
}

// BorrowBookRequest 借阅请求
type BorrowBookRequest struct {
	Actor  user.Identity
	BookID uint
	ToDate time.Time // 归还日期（按天比较）
}

// Execute 执行借阅
func (uc *BorrowBookUseCase) Execute(ctx context.Context, req BorrowBookRequest) (*BookResponse, error) {
	var borrowed *book.Book
	err := uc.executor.Run(ctx, "book.borrow", req.Actor, func(ctx context.Context) (event.Event, error) {
		b, ev, err := uc.bookService.Borrow(ctx, req.Actor.Username, req.BookID, req.ToDate)
		borrowed = b
		return ev, err
	})
	if err != nil {
		return nil, err
	}
	return toResponse(borrowed), nil
}
