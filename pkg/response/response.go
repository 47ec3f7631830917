// Package response 统一HTTP响应
//
// 所有接口返回HTTP 200，业务结果由Code区分（0表示成功），
// 客户端按错误码段判断类型：400xx业务规则、401xx认证授权、404xx不存在、409xx参数、5xxxx内部。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/page"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

var log = zap.NewNop()

// SetLogger 设置记录内部错误的日志器（启动时调用一次）
func SetLogger(l *zap.Logger) {
	if l != nil {
		log = l
	}
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应（自动处理AppError）
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	// 内部错误的原始原因只写日志，不返回给客户端
	if appErr.Err != nil || appErr.Code >= apperrors.ErrCodeInternal {
		log.Error("request failed",
			zap.Int("code", appErr.Code),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// ErrorWithCode 自定义错误码和消息
func ErrorWithCode(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// PageData 分页数据封装
type PageData struct {
	List       interface{} `json:"list"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// NewPageData 创建分页数据
func NewPageData(list interface{}, total int64, req page.Request) *PageData {
	return &PageData{
		List:       list,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.Size,
		TotalPages: req.TotalPages(total),
	}
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list interface{}, total int64, req page.Request) {
	Success(c, NewPageData(list, total, req))
}
