package book

import (
	"context"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/page"
	"github.com/xiebiao/library/internal/domain/user"
)

// ListBooksUseCase 图书分页查询用例
// 页码从1开始，page<1直接返回参数错误；page_size缺省20，最大100
type ListBooksUseCase struct {
	executor    *shared.Executor
	bookService book.Service
}

// NewListBooksUseCase 创建列表查询用例
func NewListBooksUseCase(executor *shared.Executor, bookService book.Service) *ListBooksUseCase {
	return &ListBooksUseCase{
		executor:    executor,
		bookService: bookService,
	}
}

// ListBooksRequest 列表查询请求
type ListBooksRequest struct {
	Actor    user.Identity // 可以是匿名
	Page     int
	PageSize int
}

// ListBooksResponse 列表查询响应
type ListBooksResponse struct {
	List  []*BookResponse
	Total int64
	Page  page.Request
}

// Execute 执行列表查询
func (uc *ListBooksUseCase) Execute(ctx context.Context, req ListBooksRequest) (*ListBooksResponse, error) {
	// 1. 校验分页参数
	pageReq, err := page.New(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	// 2. 查询
	var resp *ListBooksResponse
	err = uc.executor.Query(ctx, "book.list", req.Actor, func(ctx context.Context) error {
		books, total, err := uc.bookService.List(ctx, pageReq)
		if err != nil {
			return err
		}
		resp = &ListBooksResponse{List: toResponses(books), Total: total, Page: pageReq}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListUserBooksUseCase 查询用户借阅的图书
// 顾客只能查看自己的，员工可以查看任何人的
type ListUserBooksUseCase struct {
	executor    *shared.Executor
	bookService book.Service
}

// NewListUserBooksUseCase 创建用户借阅查询用例
func NewListUserBooksUseCase(executor *shared.Executor, bookService book.Service) *ListUserBooksUseCase {
	return &ListUserBooksUseCase{
		executor:    executor,
		bookService: bookService,
	}
}

// ListUserBooksRequest 查询请求
type ListUserBooksRequest struct {
	Actor  user.Identity
	UserID uint
}

// Execute 执行查询
func (uc *ListUserBooksUseCase) Execute(ctx context.Context, req ListUserBooksRequest) ([]*BookResponse, error) {
	var list []*BookResponse
	err := uc.executor.Query(ctx, "book.list_for_user", req.Actor, func(ctx context.Context) error {
		books, err := uc.bookService.ListForUser(ctx, req.Actor, req.UserID)
		if err != nil {
			return err
		}
		list = toResponses(books)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
