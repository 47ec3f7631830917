package user

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
)

// errSessionRevoked 会话已删除（登出）或已被新的登录替换
var errSessionRevoked = apperrors.New(apperrors.ErrCodeTokenExpired, "会话已失效，请重新登录")

// SessionStore 会话存储（redis.SessionStore）
type SessionStore interface {
	SaveSession(ctx context.Context, sess redis.Session, ttl time.Duration) error
	GetSession(ctx context.Context, userID uint) (*redis.Session, error)
	DeleteSession(ctx context.Context, userID uint) error
	AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error
}

// LoginUseCase 用户登录用例
// 1. 校验用户名密码
// 2. 签发JWT Token对（携带用户名和角色）
// 3. 保存会话到Redis，记录Refresh Token的jti（失败只记录日志，此时Refresh Token不可用）
type LoginUseCase struct {
	executor     *shared.Executor
	userService  user.Service
	jwtManager   *jwt.Manager
	sessionStore SessionStore
	log          *zap.Logger
}

// NewLoginUseCase 创建登录用例
func NewLoginUseCase(
	executor *shared.Executor,
	userService user.Service,
	jwtManager *jwt.Manager,
	sessionStore SessionStore,
	log *zap.Logger,
) *LoginUseCase {
	return &LoginUseCase{
		executor:     executor,
		userService:  userService,
		jwtManager:   jwtManager,
		sessionStore: sessionStore,
		log:          log,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string
	Password string
	ClientIP string
}

// LoginResponse 登录响应
type LoginResponse struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
}

// Execute 执行登录
func (uc *LoginUseCase) Execute(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	// 1. 校验用户名密码
	var u *user.User
	err := uc.executor.Query(ctx, "user.login", user.Anonymous(), func(ctx context.Context) error {
		var err error
		u, err = uc.userService.Authenticate(ctx, req.Username, req.Password)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 2. 签发Token
	pair, err := uc.jwtManager.GenerateToken(jwt.Subject{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role.String(),
	})
	if err != nil {
		return nil, err
	}

	// 3. 保存会话（有效期与Refresh Token一致）
	sess := redis.Session{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role.String(),
		ClientIP:  req.ClientIP,
		RefreshID: pair.RefreshID,
		LoginAt:   time.Now(),
	}
	if err := uc.sessionStore.SaveSession(ctx, sess, uc.jwtManager.RefreshTokenTTL()); err != nil {
		uc.log.Warn("save session failed", zap.Uint("user_id", u.ID), zap.Error(err))
	}

	return &LoginResponse{
		User:         toResponse(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// LogoutUseCase 用户登出用例
type LogoutUseCase struct {
	sessionStore SessionStore
	jwtManager   *jwt.Manager
}

// NewLogoutUseCase 创建登出用例
func NewLogoutUseCase(sessionStore SessionStore, jwtManager *jwt.Manager) *LogoutUseCase {
	return &LogoutUseCase{sessionStore: sessionStore, jwtManager: jwtManager}
}

// Execute 执行登出
// Access Token加入黑名单，过期时间与Token有效期一致
func (uc *LogoutUseCase) Execute(ctx context.Context, userID uint, accessToken string) error {
	if err := uc.sessionStore.DeleteSession(ctx, userID); err != nil {
		return err
	}
	return uc.sessionStore.AddToBlacklist(ctx, accessToken, uc.jwtManager.AccessTokenTTL())
}

// RefreshTokenUseCase 刷新Access Token
// 1. 只接受typ=refresh的Token
// 2. 会话必须存在且记录的jti与Token一致（登出或重新登录后旧Token失效）
// 3. 按Refresh Token中的用户ID重新查询，角色变更会体现在新Token中
type RefreshTokenUseCase struct {
	userService  user.Service
	jwtManager   *jwt.Manager
	sessionStore SessionStore
}

// NewRefreshTokenUseCase 创建刷新用例
func NewRefreshTokenUseCase(userService user.Service, jwtManager *jwt.Manager, sessionStore SessionStore) *RefreshTokenUseCase {
	return &RefreshTokenUseCase{userService: userService, jwtManager: jwtManager, sessionStore: sessionStore}
}

// Execute 执行刷新
func (uc *RefreshTokenUseCase) Execute(ctx context.Context, refreshToken string) (string, error) {
	return uc.jwtManager.RefreshAccessToken(refreshToken, func(claims *jwt.Claims) (jwt.Subject, error) {
		sess, err := uc.sessionStore.GetSession(ctx, claims.UserID)
		if err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeUnauthorized) {
				return jwt.Subject{}, errSessionRevoked
			}
			return jwt.Subject{}, err
		}
		if sess.RefreshID != claims.ID {
			return jwt.Subject{}, errSessionRevoked
		}

		u, err := uc.userService.GetByID(ctx, claims.UserID)
		if err != nil {
			return jwt.Subject{}, err
		}
		return jwt.Subject{
			UserID:   u.ID,
			Username: u.Username,
			Email:    u.Email,
			Role:     u.Role.String(),
		}, nil
	})
}
