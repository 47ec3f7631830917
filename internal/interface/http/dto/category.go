package dto

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,max=100" example:"科幻"`
}

// CategoryIDUri 路径参数
type CategoryIDUri struct {
	ID uint `uri:"id" binding:"required,min=1"`
}
