package user

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/page"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// bcryptCost 密码加密强度
const bcryptCost = 12

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// RegisterParams 注册参数
type RegisterParams struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Role      string
}

// Service 用户领域服务
type Service interface {
	// Register 用户注册
	// 用户名、邮箱重复返回InvalidArgument；成功后返回"用户已创建"事件
	Register(ctx context.Context, params RegisterParams) (*User, event.Event, error)

	// Authenticate 校验用户名密码
	Authenticate(ctx context.Context, username, password string) (*User, error)

	GetByID(ctx context.Context, id uint) (*User, error)

	GetByUsername(ctx context.Context, username string) (*User, error)

	List(ctx context.Context, req page.Request) ([]*User, int64, error)
}

type service struct {
	repo Repository
	cost int
}

// Option 服务选项
type Option func(*service)

// WithBcryptCost 修改bcrypt强度（测试中使用bcrypt.MinCost加速）
func WithBcryptCost(cost int) Option {
	return func(s *service) {
		s.cost = cost
	}
}

// NewService 创建用户服务
func NewService(repo Repository, opts ...Option) Service {
	s := &service{repo: repo, cost: bcryptCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register 用户注册
func (s *service) Register(ctx context.Context, params RegisterParams) (*User, event.Event, error) {
	// 1. 参数校验
	role, err := validateRegister(&params)
	if err != nil {
		return nil, event.Event{}, err
	}

	// 2. 用户名、邮箱唯一性（数据库唯一索引兜底并发场景）
	if _, err := s.repo.FindByUsername(ctx, params.Username); err == nil {
		return nil, event.Event{}, apperrors.Newf(apperrors.ErrCodeUsernameDuplicate, "用户名已存在: %s", params.Username)
	} else if !apperrors.IsNotFound(err) {
		return nil, event.Event{}, err
	}
	if _, err := s.repo.FindByEmail(ctx, params.Email); err == nil {
		return nil, event.Event{}, apperrors.Newf(apperrors.ErrCodeEmailDuplicate, "邮箱已存在: %s", params.Email)
	} else if !apperrors.IsNotFound(err) {
		return nil, event.Event{}, err
	}

	// 3. 密码加密
	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cost)
	if err != nil {
		return nil, event.Event{}, apperrors.Wrap(err, "密码加密失败")
	}

	// 4. 持久化
	u := NewUser(params.FirstName, params.LastName, params.Username, params.Email, string(hashed), role)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, event.Event{}, err
	}

	return u, event.New(event.KindUserCreated, fmt.Sprintf("%s 已创建", u)), nil
}

// Authenticate 校验用户名密码
// 用户不存在与密码错误返回同一个错误，避免泄露用户名是否存在
func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrInvalidPassword
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, apperrors.ErrInvalidPassword
		}
		return nil, apperrors.Wrap(err, "密码验证失败")
	}
	return u, nil
}

func (s *service) GetByID(ctx context.Context, id uint) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.FindByUsername(ctx, username)
}

func (s *service) List(ctx context.Context, req page.Request) ([]*User, int64, error) {
	return s.repo.List(ctx, req)
}

// validateRegister 注册参数校验，返回解析后的角色
func validateRegister(p *RegisterParams) (Role, error) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(p.Email)

	if p.FirstName == "" || p.LastName == "" {
		return RoleUnknown, apperrors.New(apperrors.ErrCodeInvalidParams, "姓名不能为空")
	}
	if len(p.Username) < 3 || len(p.Username) > 50 {
		return RoleUnknown, apperrors.New(apperrors.ErrCodeInvalidParams, "用户名长度应为3-50个字符")
	}
	if !emailPattern.MatchString(p.Email) {
		return RoleUnknown, apperrors.New(apperrors.ErrCodeInvalidParams, "邮箱格式不正确")
	}
	if len(p.Password) < 8 {
		return RoleUnknown, apperrors.ErrWeakPassword
	}
	return ParseRole(p.Role)
}
