package book

import (
	"context"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
)

// CreateBookUseCase 图书入库用例（员工）
type CreateBookUseCase struct {
	executor    *shared.Executor
	bookService book.Service
}

// NewCreateBookUseCase 创建入库用例
func NewCreateBookUseCase(executor *shared.Executor, bookService book.Service) *CreateBookUseCase {
	return &CreateBookUseCase{
		executor:    executor,
		bookService: bookService,
	}
}

// CreateBookRequest 入库请求
type CreateBookRequest struct {
	Actor      user.Identity
	Title      string
	Author     string
	CategoryID *uint
}

// Execute 执行入库
// 路由层已经限制了员工角色，这里再校验一次，CLI等其他入口同样受约束
func (uc *CreateBookUseCase) Execute(ctx context.Context, req CreateBookRequest) (*BookResponse, error) {
	if err := user.RequireEmployee(req.Actor); err != nil {
		return nil, err
	}

	var created *book.Book
	err := uc.executor.Run(ctx, "book.create", req.Actor, func(ctx context.Context) (event.Event, error) {
		b, ev, err := uc.bookService.Create(ctx, book.CreateParams{
			Title:      req.Title,
			Author:     req.Author,
			CategoryID: req.CategoryID,
		})
		created = b
		return ev, err
	})
	if err != nil {
		return nil, err
	}
	return toResponse(created), nil
}
