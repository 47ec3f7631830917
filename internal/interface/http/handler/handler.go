// Package handler HTTP处理器
//
// 处理器只做三件事：绑定参数、从Context取调用者身份、调用应用层用例。
// 业务规则与权限判断都在用例和领域服务里。
package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/response"
)

// bindError 参数绑定失败
func bindError(c *gin.Context, err error) {
	response.Error(c, apperrors.New(apperrors.ErrCodeBindError, "参数格式错误: "+err.Error()))
}
