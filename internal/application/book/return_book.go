package book

import (
	"context"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
)

// ReturnBookUseCase 归还用例
// 顾客只能归还自己借的书，员工可以归还任何已借出的书
type ReturnBookUseCase struct {
	executor    *shared.Executor
	bookService book.Service
}

// NewReturnBookUseCase 创建归还用例
func NewReturnBookUseCase(executor *shared.Executor, bookService book.Service) *ReturnBookUseCase {
	return &ReturnBookUseCase{
		executor:    executor,
		bookService: bookService,
	}
}

// ReturnBookRequest 归还请求
type ReturnBookRequest struct {
	Actor  user.Identity
	BookID uint
}

// Execute 执行归还
func (uc *ReturnBookUseCase) Execute(ctx context.Context, req ReturnBookRequest) (*BookResponse, error) {
	var returned *book.Book
	err := uc.executor.Run(ctx, "book.return", req.Actor, func(ctx context.Context) (event.Event, error) {
		b, ev, err := uc.bookService.Return(ctx, req.Actor, req.BookID)
		returned = b
		return ev, err
	})
	if err != nil {
		return nil, err
	}
	return toResponse(returned), nil
}
