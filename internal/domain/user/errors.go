package user

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// ErrUserNotFound 用户不存在
var ErrUserNotFound = apperrors.New(apperrors.ErrCodeUserNotFound, "用户不存在")

// NotFoundByID 指定ID的用户不存在
func NotFoundByID(id uint) error {
	return apperrors.Newf(apperrors.ErrCodeUserNotFound, "用户不存在: id=%d", id)
}

// NotFoundByUsername 指定用户名的用户不存在
func NotFoundByUsername(username string) error {
	return apperrors.Newf(apperrors.ErrCodeUserNotFound, "用户不存在: username=%s", username)
}
