package category

import (
	"fmt"
	"time"
)

// Category 图书分类
// 分类由管理员创建，借阅流程中只作为只读引用
type Category struct {
	ID        uint
	Name      string
	CreatedAt time.Time
}

// NewCategory 创建分类
func NewCategory(name string) *Category {
	return &Category{Name: name, CreatedAt: time.Now()}
}

func (c *Category) String() string {
	return fmt.Sprintf("Category(id=%d, name=%s)", c.ID, c.Name)
}
