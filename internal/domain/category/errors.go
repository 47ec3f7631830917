package category

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var (
	// ErrCategoryNotFound 分类不存在
	ErrCategoryNotFound = apperrors.New(apperrors.ErrCodeCategoryNotFound, "分类不存在")

	// ErrCategoryDuplicate 分类名已存在
	ErrCategoryDuplicate = apperrors.New(apperrors.ErrCodeCategoryDuplicate, "分类名已存在")
)

// NotFoundByID 指定ID的分类不存在
func NotFoundByID(id uint) error {
	return apperrors.Newf(apperrors.ErrCodeCategoryNotFound, "分类不存在: id=%d", id)
}
