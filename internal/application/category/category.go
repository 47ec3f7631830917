// Package category 分类与订阅用例
package category

import (
	"context"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
)

// CategoryResponse 分类DTO
type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func toResponses(list []*category.Category) []*CategoryResponse {
	out := make([]*CategoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, &CategoryResponse{ID: c.ID, Name: c.Name})
	}
	return out
}

// CreateCategoryUseCase 创建分类（员工、管理命令）
type CreateCategoryUseCase struct {
	executor *shared.Executor
	service  category.Service
}

// NewCreateCategoryUseCase 创建用例
func NewCreateCategoryUseCase(executor *shared.Executor, service category.Service) *CreateCategoryUseCase {
	return &CreateCategoryUseCase{executor: executor, service: service}
}

// CreateCategoryRequest 创建请求
type CreateCategoryRequest struct {
	Actor user.Identity
	Name  string
}

// Execute 执行创建
func (uc *CreateCategoryUseCase) Execute(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	if err := user.RequireEmployee(req.Actor); err != nil {
		return nil, err
	}

	var created *category.Category
	err := uc.executor.Run(ctx, "category.create", req.Actor, func(ctx context.Context) (event.Event, error) {
		c, ev, err := uc.service.Create(ctx, req.Name)
		created = c
		return ev, err
	})
	if err != nil {
		return nil, err
	}
	return &CategoryResponse{ID: created.ID, Name: created.Name}, nil
}

// ListCategoriesUseCase 分类列表（公开）
type ListCategoriesUseCase struct {
	executor *shared.Executor
	service  category.Service
}

// NewListCategoriesUseCase 创建用例
func NewListCategoriesUseCase(executor *shared.Executor, service category.Service) *ListCategoriesUseCase {
	return &ListCategoriesUseCase{executor: executor, service: service}
}

// Execute 查询全部分类
func (uc *ListCategoriesUseCase) Execute(ctx context.Context, actor user.Identity) ([]*CategoryResponse, error) {
	var list []*CategoryResponse
	err := uc.executor.Query(ctx, "category.list", actor, func(ctx context.Context) error {
		categories, err := uc.service.List(ctx)
		if err != nil {
			return err
		}
		list = toResponses(categories)
		return nil
	})
	return list, err
}

// SubscribeUseCase 订阅分类
// 订阅后该分类有新书入库时会收到邮件通知，重复订阅不报错
type SubscribeUseCase struct {
	executor *shared.Executor
	service  category.Service
}

// NewSubscribeUseCase 创建订阅用例
func NewSubscribeUseCase(executor *shared.Executor, service category.Service) *SubscribeUseCase {
	return &SubscribeUseCase{executor: executor, service: service}
}

// SubscribeRequest 订阅请求
type SubscribeRequest struct {
	Actor      user.Identity
	CategoryID uint
}

// Execute 执行订阅
func (uc *SubscribeUseCase) Execute(ctx context.Context, req SubscribeRequest) error {
	return uc.executor.Run(ctx, "category.subscribe", req.Actor, func(ctx context.Context) (event.Event, error) {
		return uc.service.Subscribe(ctx, req.Actor.Username, req.CategoryID)
	})
}

// ListSubscriptionsUseCase 当前用户订阅的分类
type ListSubscriptionsUseCase struct {
	executor *shared.Executor
	service  category.Service
}

// NewListSubscriptionsUseCase 创建用例
func NewListSubscriptionsUseCase(executor *shared.Executor, service category.Service) *ListSubscriptionsUseCase {
	return &ListSubscriptionsUseCase{executor: executor, service: service}
}

// Execute 查询调用者自己的订阅
func (uc *ListSubscriptionsUseCase) Execute(ctx context.Context, actor user.Identity) ([]*CategoryResponse, error) {
	var list []*CategoryResponse
	err := uc.executor.Query(ctx, "category.subscriptions", actor, func(ctx context.Context) error {
		categories, err := uc.service.Subscriptions(ctx, actor.UserID)
		if err != nil {
			return err
		}
		list = toResponses(categories)
		return nil
	})
	return list, err
}
