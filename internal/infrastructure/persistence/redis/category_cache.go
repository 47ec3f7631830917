package redis

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/category"
)

const categoryListKey = "library:categories:list"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// cachedCategory 缓存中的分类
type cachedCategory struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryCache 分类列表缓存（Cache-Aside）
// 1. List先查缓存，未命中再查数据库并回填
// 2. Create成功后删除缓存
// 3. Redis不可用时降级为直接查库，只记录日志
type CategoryCache struct {
	category.Repository
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewCategoryCache 包装分类仓储
func NewCategoryCache(inner category.Repository, client *redis.Client, ttl time.Duration, log *zap.Logger) category.Repository {
	return &CategoryCache{Repository: inner, client: client, ttl: ttl, log: log}
}

func (c *CategoryCache) Create(ctx context.Context, cat *category.Category) error {
	if err := c.Repository.Create(ctx, cat); err != nil {
		return err
	}
	if err := c.client.Del(ctx, categoryListKey).Err(); err != nil {
		c.log.Warn("删除分类缓存失败", zap.Error(err))
	}
	return nil
}

func (c *CategoryCache) List(ctx context.Context) ([]*category.Category, error) {
	if list, ok := c.get(ctx); ok {
		return list, nil
	}

	list, err := c.Repository.List(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, list)
	return list, nil
}

func (c *CategoryCache) get(ctx context.Context) ([]*category.Category, bool) {
	val, err := c.client.Get(ctx, categoryListKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("读取分类缓存失败", zap.Error(err))
		}
		return nil, false
	}

	var cached []cachedCategory
	if err := json.Unmarshal(val, &cached); err != nil {
		c.log.Warn("分类缓存反序列化失败", zap.Error(err))
		return nil, false
	}

	list := make([]*category.Category, len(cached))
	for i, cc := range cached {
		list[i] = &category.Category{ID: cc.ID, Name: cc.Name, CreatedAt: cc.CreatedAt}
	}
	return list, true
}

func (c *CategoryCache) set(ctx context.Context, list []*category.Category) {
	cached := make([]cachedCategory, len(list))
	for i, cat := range list {
		cached[i] = cachedCategory{ID: cat.ID, Name: cat.Name, CreatedAt: cat.CreatedAt}
	}

	val, err := json.Marshal(cached)
	if err != nil {
		c.log.Warn("分类缓存序列化失败", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, categoryListKey, val, c.ttl).Err(); err != nil {
		c.log.Warn("写入分类缓存失败", zap.Error(err))
	}
}
