package category

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Service 分类与订阅领域服务
type Service interface {
	// Create 创建分类（管理操作）
	Create(ctx context.Context, name string) (*Category, event.Event, error)

	List(ctx context.Context) ([]*Category, error)

	// Subscribe 用户订阅分类，重复订阅是空操作
	Subscribe(ctx context.Context, username string, categoryID uint) (event.Event, error)

	// Subscriptions 用户订阅的分类
	Subscriptions(ctx context.Context, userID uint) ([]*Category, error)
}

type service struct {
	repo     Repository
	userRepo user.Repository
}

// NewService 创建分类服务
func NewService(repo Repository, userRepo user.Repository) Service {
	return &service{repo: repo, userRepo: userRepo}
}

func (s *service) Create(ctx context.Context, name string) (*Category, event.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, event.Event{}, apperrors.New(apperrors.ErrCodeInvalidParams, "分类名长度应为1-100个字符")
	}

	c := NewCategory(name)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, event.Event{}, err
	}
	return c, event.New(event.KindCategoryCreated, fmt.Sprintf("%s 已创建", c)), nil
}

func (s *service) List(ctx context.Context) ([]*Category, error) {
	return s.repo.List(ctx)
}

// Subscribe 订阅分类
// 1. 用户必须存在
// 2. 分类必须存在
// 3. 加入订阅集合（幂等）
func (s *service) Subscribe(ctx context.Context, username string, categoryID uint) (event.Event, error) {
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return event.Event{}, err
	}

	c, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		return event.Event{}, err
	}

	if err := s.repo.AddSubscriber(ctx, c.ID, u.ID); err != nil {
		return event.Event{}, err
	}

	return event.New(event.KindCategorySubscribed, fmt.Sprintf("%s 订阅了分类: %s", u, c)), nil
}

func (s *service) Subscriptions(ctx context.Context, userID uint) ([]*Category, error) {
	return s.repo.ListByUser(ctx, userID)
}
