package user

import (
	"context"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
)

// RegisterUseCase 用户注册用例
// 注册成功后发送"用户已创建"通知（事务提交后）
type RegisterUseCase struct {
	executor    *shared.Executor
	userService user.Service
}

// NewRegisterUseCase 创建注册用例
func NewRegisterUseCase(executor *shared.Executor, userService user.Service) *RegisterUseCase {
	return &RegisterUseCase{
		executor:    executor,
		userService: userService,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Role      string // EMPLOYEE | CUSTOMER，也接受ROLE_前缀
}

// Execute 执行注册
func (uc *RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	var created *user.User
	err := uc.executor.Run(ctx, "user.register", user.Anonymous(), func(ctx context.Context) (event.Event, error) {
		u, ev, err := uc.userService.Register(ctx, user.RegisterParams{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			Role:      req.Role,
		})
		created = u
		return ev, err
	})
	if err != nil {
		return nil, err
	}
	return toResponse(created), nil
}
