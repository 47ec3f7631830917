package book

import (
	"context"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
)

// BlockBookUseCase 冻结图书用例（员工）
type BlockBookUseCase struct {
	executor    *shared.Executor
	bookService book.Service
}

// NewBlockBookUseCase 创建冻结用例
func NewBlockBookUseCase(executor *shared.Executor, bookService book.Service) *BlockBookUseCase {
	return &BlockBookUseCase{
		executor:    executor,
		bookService: bookService,
	}
}

// BlockBookRequest 冻结请求
type BlockBookRequest struct {
	Actor  user.Identity
	BookID uint
}

// Execute 执行冻结（重复冻结不报错）
func (uc *BlockBookUseCase) Execute(ctx context.Context, req BlockBookRequest) (*BookResponse, error) {
	if err := user.RequireEmployee(req.Actor); err != nil {
		return nil, err
	}

	var blocked *book.Book
	err := uc.executor.Run(ctx, "book.block", req.Actor, func(ctx context.Context) (event.Event, error) {
		b, ev, err := uc.bookService.Block(ctx, req.BookID)
		blocked = b
		return ev, err
	})
	if err != nil {
		return nil, err
	}
	return toResponse(blocked), nil
}
