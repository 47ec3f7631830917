package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/user"
)

type categoryRepository struct {
	s *Store
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(s *Store) category.Repository {
	return &categoryRepository{s: s}
}

func (r *categoryRepository) Create(ctx context.Context, c *category.Category) error {
	for _, existing := range r.s.allCategories(ctx) {
		if existing.Name == c.Name {
			return category.ErrCategoryDuplicate
		}
	}

	row := categoryRow{
		ID:        r.s.allocID("categories"),
		Name:      c.Name,
		CreatedAt: time.Now(),
	}
	if err := r.s.write(ctx, func(t *tx) { t.categories[row.ID] = row }); err != nil {
		return err
	}

	c.ID = row.ID
	c.CreatedAt = row.CreatedAt
	return nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*category.Category, error) {
	row, ok := r.s.categoryRow(ctx, id)
	if !ok {
		return nil, category.NotFoundByID(id)
	}
	return toCategoryEntity(row), nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*category.Category, error) {
	rows := r.s.allCategories(ctx)
	list := make([]*category.Category, len(rows))
	for i, row := range rows {
		list[i] = toCategoryEntity(row)
	}
	return list, nil
}

// AddSubscriber 集合语义:已存在时什么都不做
func (r *categoryRepository) AddSubscriber(ctx context.Context, categoryID, userID uint) error {
	k := subKey{CategoryID: categoryID, UserID: userID}
	if r.s.hasSubscription(ctx, k) {
		return nil
	}
	return r.s.write(ctx, func(t *tx) { t.subs[k] = struct{}{} })
}

func (r *categoryRepository) ListSubscribers(ctx context.Context, categoryID uint) ([]*user.User, error) {
	var ids []uint
	for _, k := range r.s.allSubscriptions(ctx) {
		if k.CategoryID == categoryID {
			ids = append(ids, k.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	users := make([]*user.User, 0, len(ids))
	for _, id := range ids {
		if row, ok := r.s.userRow(ctx, id); ok {
			users = append(users, toUserEntity(row))
		}
	}
	return users, nil
}

func (r *categoryRepository) ListByUser(ctx context.Context, userID uint) ([]*category.Category, error) {
	var ids []uint
	for _, k := range r.s.allSubscriptions(ctx) {
		if k.UserID == userID {
			ids = append(ids, k.CategoryID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	list := make([]*category.Category, 0, len(ids))
	for _, id := range ids {
		if row, ok := r.s.categoryRow(ctx, id); ok {
			list = append(list, toCategoryEntity(row))
		}
	}
	return list, nil
}

func toCategoryEntity(row categoryRow) *category.Category {
	return &category.Category{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
	}
}
