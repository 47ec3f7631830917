package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/interface/http/dto"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// BookHandler 图书HTTP处理器
type BookHandler struct {
	createUseCase    *appbook.CreateBookUseCase
	blockUseCase     *appbook.BlockBookUseCase
	borrowUseCase    *appbook.BorrowBookUseCase
	returnUseCase    *appbook.ReturnBookUseCase
	listUseCase      *appbook.ListBooksUseCase
	userBooksUseCase *appbook.ListUserBooksUseCase
}

// NewBookHandler 创建图书处理器
func NewBookHandler(
	createUseCase *appbook.CreateBookUseCase,
	blockUseCase *appbook.BlockBookUseCase,
	borrowUseCase *appbook.BorrowBookUseCase,
	returnUseCase *appbook.ReturnBookUseCase,
	listUseCase *appbook.ListBooksUseCase,
	userBooksUseCase *appbook.ListUserBooksUseCase,
) *BookHandler {
	return &BookHandler{
		createUseCase:    createUseCase,
		blockUseCase:     blockUseCase,
		borrowUseCase:    borrowUseCase,
		returnUseCase:    returnUseCase,
		listUseCase:      listUseCase,
		userBooksUseCase: userBooksUseCase,
	}
}

// CreateBook 图书入库
// @Summary      图书入库
// @Description  员工录入新书，指定分类时向分类订阅者发送邮件通知
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateBookRequest true "图书信息"
// @Success      200 {object} response.Response{data=appbook.BookResponse}
// @Failure      200 {object} response.Response "40104无权限 / 40403分类不存在"
// @Router       /api/v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.createUseCase.Execute(c.Request.Context(), appbook.CreateBookRequest{
		Actor:      middleware.GetIdentity(c),
		Title:      req.Title,
		Author:     req.Author,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// BlockBook 冻结图书
// @Summary      冻结图书
// @Description  冻结后不能再被借阅，重复冻结不报错
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=appbook.BookResponse}
// @Router       /api/v1/books/{id}/block [patch]
func (h *BookHandler) BlockBook(c *gin.Context) {
	var uri dto.BookIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.blockUseCase.Execute(c.Request.Context(), appbook.BlockBookRequest{
		Actor:  middleware.GetIdentity(c),
		BookID: uri.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// BorrowBook 借阅图书
// @Summary      借阅图书
// @Description  归还日期不能早于今天；同一本书并发借阅只有一个成功
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Param        to query string true "归还日期(YYYY-MM-DD)"
// @Success      200 {object} response.Response{data=appbook.BookResponse}
// @Failure      200 {object} response.Response "40001已冻结 / 40002已借出 / 40007日期非法"
// @Router       /api/v1/books/{id}/borrow [put]
func (h *BookHandler) BorrowBook(c *gin.Context) {
	var uri dto.BookIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		bindError(c, err)
		return
	}
	var req dto.BorrowBookRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	to, err := time.ParseInLocation(book.DateLayout, req.To, time.Local)
	if err != nil {
		bindError(c, err)
		return
	}

	result, err := h.borrowUseCase.Execute(c.Request.Context(), appbook.BorrowBookRequest{
		Actor:  middleware.GetIdentity(c),
		BookID: uri.ID,
		ToDate: to,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ReturnBook 归还图书
// @Summary      归还图书
// @Description  顾客只能归还自己借的书，员工可以归还任何书
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=appbook.BookResponse}
// @Failure      200 {object} response.Response "40006未借出 / 40104无权限"
// @Router       /api/v1/books/{id}/return [patch]
func (h *BookHandler) ReturnBook(c *gin.Context) {
	var uri dto.BookIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.returnUseCase.Execute(c.Request.Context(), appbook.ReturnBookRequest{
		Actor:  middleware.GetIdentity(c),
		BookID: uri.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  页码从1开始，page<1返回40902
// @Tags         图书
// @Produce      json
// @Param        page      query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Success      200 {object} response.Response{data=response.PageData}
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.listUseCase.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Actor:    middleware.GetIdentity(c),
		Page:     req.PageOrDefault(),
		PageSize: req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.List, result.Total, result.Page)
}

// ListUserBooks 用户借阅的图书
// @Summary      用户借阅的图书
// @Description  顾客只能查看自己的借阅
// @Tags         用户
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "用户ID"
// @Success      200 {object} response.Response{data=[]appbook.BookResponse}
// @Router       /api/v1/users/{id}/books [get]
func (h *BookHandler) ListUserBooks(c *gin.Context) {
	var uri dto.UserIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.userBooksUseCase.Execute(c.Request.Context(), appbook.ListUserBooksRequest{
		Actor:  middleware.GetIdentity(c),
		UserID: uri.ID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
