package user

import (
	"context"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/page"
	"github.com/xiebiao/library/internal/domain/user"
)

// ListUsersUseCase 用户分页查询（员工）
type ListUsersUseCase struct {
	executor    *shared.Executor
	userService user.Service
}

// NewListUsersUseCase 创建用例
func NewListUsersUseCase(executor *shared.Executor, userService user.Service) *ListUsersUseCase {
	return &ListUsersUseCase{executor: executor, userService: userService}
}

// ListUsersRequest 查询请求
type ListUsersRequest struct {
	Actor    user.Identity
	Page     int
	PageSize int
}

// ListUsersResponse 查询响应
type ListUsersResponse struct {
	List  []*UserResponse
	Total int64
	Page  page.Request
}

// Execute 执行查询
func (uc *ListUsersUseCase) Execute(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error) {
	if err := user.RequireEmployee(req.Actor); err != nil {
		return nil, err
	}
	pageReq, err := page.New(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	var resp *ListUsersResponse
	err = uc.executor.Query(ctx, "user.list", req.Actor, func(ctx context.Context) error {
		users, total, err := uc.userService.List(ctx, pageReq)
		if err != nil {
			return err
		}
		list := make([]*UserResponse, 0, len(users))
		for _, u := range users {
			list = append(list, toResponse(u))
		}
		resp = &ListUsersResponse{List: list, Total: total, Page: pageReq}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetUserUseCase 查询单个用户（员工）
type GetUserUseCase struct {
	executor    *shared.Executor
	userService user.Service
}

// NewGetUserUseCase 创建用例
func NewGetUserUseCase(executor *shared.Executor, userService user.Service) *GetUserUseCase {
	return &GetUserUseCase{executor: executor, userService: userService}
}

// Execute 执行查询
func (uc *GetUserUseCase) Execute(ctx context.Context, actor user.Identity, id uint) (*UserResponse, error) {
	if err := user.RequireEmployee(actor); err != nil {
		return nil, err
	}

	var resp *UserResponse
	err := uc.executor.Query(ctx, "user.get", actor, func(ctx context.Context) error {
		u, err := uc.userService.GetByID(ctx, id)
		if err != nil {
			return err
		}
		resp = toResponse(u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
