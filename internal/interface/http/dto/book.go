package dto

// CreateBookRequest 图书入库请求
type CreateBookRequest struct {
	Title      string `json:"title" binding:"required,max=200" example:"三体"`
	Author     string `json:"author" binding:"required,max=100" example:"刘慈欣"`
	CategoryID *uint  `json:"category_id" example:"1"` // 可选，指定时分类必须存在
}

// ListBooksRequest 图书列表请求
// page从1开始；不传时为1，传0或负数返回40902
type ListBooksRequest struct {
	Page     *int `form:"page" example:"1"`
	PageSize int  `form:"page_size" binding:"omitempty,min=1" example:"20"`
}

// PageOrDefault 未传page时取第一页
func (r ListBooksRequest) PageOrDefault() int {
	if r.Page == nil {
		return 1
	}
	return *r.Page
}

// BorrowBookRequest 借阅请求
type BorrowBookRequest struct {
	To string `form:"to" binding:"required,datetime=2006-01-02" example:"2024-03-20"` // 归还日期
}

// BookIDUri 路径参数
type BookIDUri struct {
	ID uint `uri:"id" binding:"required,min=1"`
}
