package handler

import (
	"github.com/gin-gonic/gin"

	appcategory "github.com/xiebiao/library/internal/application/category"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// CategoryHandler 分类HTTP处理器
type CategoryHandler struct {
	createUseCase        *appcategory.CreateCategoryUseCase
	listUseCase          *appcategory.ListCategoriesUseCase
	subscribeUseCase     *appcategory.SubscribeUseCase
	subscriptionsUseCase *appcategory.ListSubscriptionsUseCase
}

// NewCategoryHandler 创建分类处理器
func NewCategoryHandler(
	createUseCase *appcategory.CreateCategoryUseCase,
	listUseCase *appcategory.ListCategoriesUseCase,
	subscribeUseCase *appcategory.SubscribeUseCase,
	subscriptionsUseCase *appcategory.ListSubscriptionsUseCase,
) *CategoryHandler {
	return &CategoryHandler{
		createUseCase:        createUseCase,
		listUseCase:          listUseCase,
		subscribeUseCase:     subscribeUseCase,
		subscriptionsUseCase: subscriptionsUseCase,
	}
}

// CreateCategory 创建分类
// @Summary      创建分类
// @Tags         分类
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateCategoryRequest true "分类信息"
// @Success      200 {object} response.Response{data=appcategory.CategoryResponse}
// @Failure      200 {object} response.Response "40008分类已存在"
// @Router       /api/v1/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.createUseCase.Execute(c.Request.Context(), appcategory.CreateCategoryRequest{
		Actor: middleware.GetIdentity(c),
		Name:  req.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListCategories 分类列表
// @Summary      分类列表
// @Tags         分类
// @Produce      json
// @Success      200 {object} response.Response{data=[]appcategory.CategoryResponse}
// @Router       /api/v1/categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	result, err := h.listUseCase.Execute(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Subscribe 订阅分类
// @Summary      订阅分类
// @Description  订阅后分类有新书入库时收到邮件通知，重复订阅不报错
// @Tags         分类
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "分类ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/categories/{id}/subscribe [patch]
func (h *CategoryHandler) Subscribe(c *gin.Context) {
	var uri dto.CategoryIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		bindError(c, err)
		return
	}

	err := h.subscribeUseCase.Execute(c.Request.Context(), appcategory.SubscribeRequest{
		Actor:      middleware.GetIdentity(c),
		CategoryID: uri.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Subscriptions 我订阅的分类
// @Summary      我订阅的分类
// @Tags         分类
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=[]appcategory.CategoryResponse}
// @Router       /api/v1/categories/subscriptions [get]
func (h *CategoryHandler) Subscriptions(c *gin.Context) {
	result, err := h.subscriptionsUseCase.Execute(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
