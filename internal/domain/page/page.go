// Package page 分页参数约定
//
// 页码从1开始。页码小于1直接报错（不做静默修正），
// 每页数量缺省为DefaultSize，超过MaxSize时截断为MaxSize（两者可由SetLimits按配置修改）。
package page

import (
	"math"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

var (
	defaultSize = DefaultSize
	maxSize     = MaxSize
)

// SetLimits 按配置修改缺省每页数量和上限（启动时调用一次），非正数保持原值
func SetLimits(defaultPageSize, maxPageSize int) {
	if maxPageSize > 0 {
		maxSize = maxPageSize
	}
	if defaultPageSize > 0 {
		defaultSize = defaultPageSize
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}
}

// Request 分页请求
type Request struct {
	Page int // 页码(从1开始)
	Size int // 每页数量
}

// New 校验并规范化分页参数
// size为0表示使用默认值，负数视为非法参数
func New(page, size int) (Request, error) {
	if page < 1 {
		return Request{}, apperrors.ErrInvalidPage
	}
	switch {
	case size == 0:
		size = defaultSize
	case size < 0:
		return Request{}, apperrors.New(apperrors.ErrCodeInvalidParams, "每页数量必须大于0")
	case size > maxSize:
		size = maxSize
	}
	// 偏移量必须能用int表示
	if page-1 > math.MaxInt/size {
		return Request{}, apperrors.New(apperrors.ErrCodeInvalidPage, "页码过大")
	}
	return Request{Page: page, Size: size}, nil
}

// Offset 数据库偏移量，溢出时取math.MaxInt（查询结果为空页）
func (r Request) Offset() int {
	if r.Page <= 1 || r.Size <= 0 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.Size {
		return math.MaxInt
	}
	return (r.Page - 1) * r.Size
}

// TotalPages 总页数
func (r Request) TotalPages(total int64) int {
	if r.Size <= 0 {
		return 0
	}
	pages := int(total) / r.Size
	if int(total)%r.Size != 0 {
		pages++
	}
	return pages
}
