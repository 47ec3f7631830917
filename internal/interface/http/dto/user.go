package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	FirstName string `json:"first_name" binding:"required,max=50" example:"三"`
	LastName  string `json:"last_name" binding:"required,max=50" example:"张"`
	Username  string `json:"username" binding:"required,min=3,max=50" example:"zhangsan"`
	Email     string `json:"email" binding:"required,email" example:"zhangsan@example.com"`
	Password  string `json:"password" binding:"required,min=8,max=72" example:"password123"`
	Role      string `json:"role" binding:"required" example:"CUSTOMER"` // EMPLOYEE | CUSTOMER
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"zhangsan"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// RefreshTokenRequest 刷新Token请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshTokenResponse 刷新Token响应
type RefreshTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ListUsersRequest 用户列表请求（与图书列表相同的分页约定）
type ListUsersRequest struct {
	Page     *int `form:"page" example:"1"`
	PageSize int  `form:"page_size" binding:"omitempty,min=1" example:"20"`
}

// PageOrDefault 未传page时取第一页
func (r ListUsersRequest) PageOrDefault() int {
	if r.Page == nil {
		return 1
	}
	return *r.Page
}

// UserIDUri 路径参数
type UserIDUri struct {
	ID uint `uri:"id" binding:"required,min=1"`
}
