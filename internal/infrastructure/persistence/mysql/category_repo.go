package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(db *gorm.DB) category.Repository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, c *category.Category) error {
	model := &CategoryModel{Name: c.Name}
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return category.ErrCategoryDuplicate
		}
		return apperrors.Wrap(err, "创建分类失败")
	}

	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	return nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uint) (*category.Category, error) {
	var model CategoryModel
	if err := getDB(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, category.NotFoundByID(id)
		}
		return nil, apperrors.Wrap(err, "查询分类失败")
	}
	return toCategoryEntity(&model), nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*category.Category, error) {
	var models []CategoryModel
	if err := getDB(ctx, r.db).Order("id ASC").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询分类列表失败")
	}

	list := make([]*category.Category, len(models))
	for i := range models {
		list[i] = toCategoryEntity(&models[i])
	}
	return list, nil
}

// AddSubscriber 订阅(INSERT ... ON CONFLICT DO NOTHING)
// 复合主键冲突时什么都不做,重复订阅不会报错
func (r *categoryRepository) AddSubscriber(ctx context.Context, categoryID, userID uint) error {
	sub := &SubscriptionModel{UserID: userID, CategoryID: categoryID}
	err := getDB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sub).Error
	if err != nil {
		return apperrors.Wrap(err, "订阅分类失败")
	}
	return nil
}

func (r *categoryRepository) ListSubscribers(ctx context.Context, categoryID uint) ([]*user.User, error) {
	var models []UserModel
	err := getDB(ctx, r.db).
		Joins("JOIN category_subscriptions s ON s.user_id = users.id").
		Where("s.category_id = ?", categoryID).
		Order("users.id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询分类订阅者失败")
	}

	users := make([]*user.User, len(models))
	for i := range models {
		users[i] = toUserEntity(&models[i])
	}
	return users, nil
}

func (r *categoryRepository) ListByUser(ctx context.Context, userID uint) ([]*category.Category, error) {
	var models []CategoryModel
	err := getDB(ctx, r.db).
		Joins("JOIN category_subscriptions s ON s.category_id = categories.id").
		Where("s.user_id = ?", userID).
		Order("categories.id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询用户订阅失败")
	}

	list := make([]*category.Category, len(models))
	for i := range models {
		list[i] = toCategoryEntity(&models[i])
	}
	return list, nil
}
