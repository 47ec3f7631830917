package book

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	// ErrInvalidBorrowDate 归还日期早于今天
	ErrInvalidBorrowDate = apperrors.New(apperrors.ErrCodeInvalidBorrowDate, "归还日期不能早于今天")

	// ErrInvalidTitle 书名或作者为空
	ErrInvalidTitle = apperrors.New(apperrors.ErrCodeInvalidParams, "书名和作者不能为空")
)

// NotFoundByID 指定ID的图书不存在
func NotFoundByID(id uint) error {
	return apperrors.Newf(apperrors.ErrCodeBookNotFound, "图书不存在: id=%d", id)
}
