package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	appbook "github.com/xiebiao/library/internal/application/book"
	appcategory "github.com/xiebiao/library/internal/application/category"
	"github.com/xiebiao/library/internal/application/shared"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
)

// sessionStore 内存版会话存储
type sessionStore struct {
	mu        sync.Mutex
	sessions  map[uint]redis.Session
	blacklist map[string]bool
}

func (s *sessionStore) SaveSession(_ context.Context, sess redis.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.UserID] = sess
	return nil
}

func (s *sessionStore) GetSession(_ context.Context, userID uint) (*redis.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	return &sess, nil
}

func (s *sessionStore) DeleteSession(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *sessionStore) AddToBlacklist(_ context.Context, token string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[token] = true
	return nil
}

func (s *sessionStore) IsInBlacklist(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blacklist[token], nil
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	t      *testing.T
	engine *gin.Engine
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	userRepo := memory.NewUserRepository(store)
	categoryRepo := memory.NewCategoryRepository(store)
	bookRepo := memory.NewBookRepository(store)

	userService := user.NewService(userRepo, user.WithBcryptCost(bcrypt.MinCost))
	categoryService := category.NewService(categoryRepo, userRepo)
	bookService := book.NewService(bookRepo, userRepo, categoryRepo)

	exec := shared.NewExecutor(store, nil, nil)
	sessions := &sessionStore{sessions: make(map[uint]redis.Session), blacklist: make(map[string]bool)}
	jwtManager := jwt.NewManager("test-secret", time.Hour, 24*time.Hour)

	userHandler := handler.NewUserHandler(
		appuser.NewRegisterUseCase(exec, userService),
		appuser.NewLoginUseCase(exec, userService, jwtManager, sessions, zap.NewNop()),
		appuser.NewLogoutUseCase(sessions, jwtManager),
		appuser.NewRefreshTokenUseCase(userService, jwtManager, sessions),
		appuser.NewListUsersUseCase(exec, userService),
		appuser.NewGetUserUseCase(exec, userService),
	)
	bookHandler := handler.NewBookHandler(
		appbook.NewCreateBookUseCase(exec, bookService),
		appbook.NewBlockBookUseCase(exec, bookService),
		appbook.NewBorrowBookUseCase(exec, bookService),
		appbook.NewReturnBookUseCase(exec, bookService),
		appbook.NewListBooksUseCase(exec, bookService),
		appbook.NewListUserBooksUseCase(exec, bookService),
	)
	categoryHandler := handler.NewCategoryHandler(
		appcategory.NewCreateCategoryUseCase(exec, categoryService),
		appcategory.NewListCategoriesUseCase(exec, categoryService),
		appcategory.NewSubscribeUseCase(exec, categoryService),
		appcategory.NewListSubscriptionsUseCase(exec, categoryService),
	)

	engine := router.New(router.Options{ServiceName: "library-test"}, zap.NewNop(),
		userHandler, bookHandler, categoryHandler, middleware.NewAuthMiddleware(jwtManager, sessions))
	return &server{t: t, engine: engine}
}

// do 发送请求并解析统一响应
func (s *server) do(method, path, token string, body interface{}) envelope {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(s.t, http.StatusOK, w.Code)

	var resp envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// signUp 注册并登录，返回用户ID与Access Token
func (s *server) signUp(username, role string) (uint, string) {
	s.t.Helper()
	resp := s.do(http.MethodPost, "/api/v1/users", "", map[string]string{
		"first_name": "San",
		"last_name":  "Zhang",
		"username":   username,
		"email":      username + "@example.com",
		"password":   "password123",
		"role":       role,
	})
	require.Equal(s.t, 0, resp.Code, resp.Message)

	login := s.login(username)
	return login.User.ID, login.AccessToken
}

// login 登录，返回完整的Token对
func (s *server) login(username string) appuser.LoginResponse {
	s.t.Helper()
	resp := s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(s.t, 0, resp.Code, resp.Message)

	var login appuser.LoginResponse
	require.NoError(s.t, json.Unmarshal(resp.Data, &login))
	return login
}

func TestRouter_LendingFlow(t *testing.T) {
	s := newServer(t)
	employeeID, employee := s.signUp("librarian", "EMPLOYEE")
	customerID, customer := s.signUp("reader", "ROLE_CUSTOMER")
	tomorrow := time.Now().AddDate(0, 0, 1).Format(book.DateLayout)

	// 员工建分类和图书
	resp := s.do(http.MethodPost, "/api/v1/categories", employee, map[string]string{"name": "科幻"})
	require.Equal(t, 0, resp.Code, resp.Message)
	var cat appcategory.CategoryResponse
	require.NoError(t, json.Unmarshal(resp.Data, &cat))

	resp = s.do(http.MethodPost, "/api/v1/books", employee, map[string]interface{}{
		"title":       "三体",
		"author":      "刘慈欣",
		"category_id": cat.ID,
	})
	require.Equal(t, 0, resp.Code, resp.Message)
	var created appbook.BookResponse
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "READY", created.State)
	assert.Equal(t, "科幻", created.Category)

	t.Run("顾客订阅分类", func(t *testing.T) {
		resp := s.do(http.MethodPatch, fmt.Sprintf("/api/v1/categories/%d/subscribe", cat.ID), customer, nil)
		assert.Equal(t, 0, resp.Code, resp.Message)

		resp = s.do(http.MethodGet, "/api/v1/categories/subscriptions", customer, nil)
		require.Equal(t, 0, resp.Code)
		var subs []appcategory.CategoryResponse
		require.NoError(t, json.Unmarshal(resp.Data, &subs))
		require.Len(t, subs, 1)
		assert.Equal(t, cat.ID, subs[0].ID)
	})

	t.Run("员工不能订阅", func(t *testing.T) {
		resp := s.do(http.MethodPatch, fmt.Sprintf("/api/v1/categories/%d/subscribe", cat.ID), employee, nil)
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})

	t.Run("顾客不能录入图书", func(t *testing.T) {
		resp := s.do(http.MethodPost, "/api/v1/books", customer, map[string]string{"title": "x", "author": "y"})
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})

	t.Run("未登录不能录入图书", func(t *testing.T) {
		resp := s.do(http.MethodPost, "/api/v1/books", "", map[string]string{"title": "x", "author": "y"})
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("日期格式错误", func(t *testing.T) {
		resp := s.do(http.MethodPut, fmt.Sprintf("/api/v1/books/%d/borrow?to=20240320", created.ID), customer, nil)
		assert.Equal(t, apperrors.ErrCodeBindError, resp.Code)
	})

	t.Run("借阅与重复借阅", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/books/%d/borrow?to=%s", created.ID, tomorrow)
		resp := s.do(http.MethodPut, path, customer, nil)
		require.Equal(t, 0, resp.Code, resp.Message)
		var borrowed appbook.BookResponse
		require.NoError(t, json.Unmarshal(resp.Data, &borrowed))
		assert.Equal(t, "BORROWED", borrowed.State)
		assert.Equal(t, tomorrow, borrowed.ToDate)
		require.NotNil(t, borrowed.Borrower)
		assert.Equal(t, customerID, borrowed.Borrower.ID)

		resp = s.do(http.MethodPut, path, customer, nil)
		assert.Equal(t, apperrors.ErrCodeBookBorrowed, resp.Code)
	})

	t.Run("查看借阅列表", func(t *testing.T) {
		resp := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%d/books", customerID), customer, nil)
		require.Equal(t, 0, resp.Code, resp.Message)
		var books []appbook.BookResponse
		require.NoError(t, json.Unmarshal(resp.Data, &books))
		assert.Len(t, books, 1)

		resp = s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%d/books", employeeID), customer, nil)
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})

	t.Run("归还", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/books/%d/return", created.ID)
		resp := s.do(http.MethodPatch, path, customer, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		resp = s.do(http.MethodPatch, path, customer, nil)
		assert.Equal(t, apperrors.ErrCodeBookNotBorrowed, resp.Code)
	})

	t.Run("冻结后不能借阅", func(t *testing.T) {
		resp := s.do(http.MethodPatch, fmt.Sprintf("/api/v1/books/%d/block", created.ID), employee, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		resp = s.do(http.MethodPut, fmt.Sprintf("/api/v1/books/%d/borrow?to=%s", created.ID, tomorrow), customer, nil)
		assert.Equal(t, apperrors.ErrCodeBookBlocked, resp.Code)
	})
}

func TestRouter_Pagination(t *testing.T) {
	s := newServer(t)
	_, employee := s.signUp("librarian", "EMPLOYEE")
	for i := 0; i < 3; i++ {
		resp := s.do(http.MethodPost, "/api/v1/books", employee, map[string]string{
			"title":  fmt.Sprintf("book-%d", i),
			"author": "author",
		})
		require.Equal(t, 0, resp.Code, resp.Message)
	}

	t.Run("匿名可以查看图书列表", func(t *testing.T) {
		resp := s.do(http.MethodGet, "/api/v1/books?page=2&page_size=2", "", nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var data struct {
			List       []appbook.BookResponse `json:"list"`
			Total      int64                  `json:"total"`
			Page       int                    `json:"page"`
			TotalPages int                    `json:"total_pages"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, int64(3), data.Total)
		assert.Equal(t, 2, data.Page)
		assert.Equal(t, 2, data.TotalPages)
		require.Len(t, data.List, 1)
		assert.Equal(t, "book-2", data.List[0].Title)
	})

	t.Run("页码为0", func(t *testing.T) {
		resp := s.do(http.MethodGet, "/api/v1/books?page=0", "", nil)
		assert.Equal(t, apperrors.ErrCodeInvalidPage, resp.Code)
	})

	t.Run("页码过大", func(t *testing.T) {
		resp := s.do(http.MethodGet, "/api/v1/books?page=9223372036854775807&page_size=2", "", nil)
		assert.Equal(t, apperrors.ErrCodeInvalidPage, resp.Code)
	})

	t.Run("用户列表只对员工开放", func(t *testing.T) {
		_, customer := s.signUp("reader", "CUSTOMER")
		resp := s.do(http.MethodGet, "/api/v1/users", customer, nil)
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)

		resp = s.do(http.MethodGet, "/api/v1/users", employee, nil)
		assert.Equal(t, 0, resp.Code, resp.Message)
	})
}

func TestRouter_Session(t *testing.T) {
	s := newServer(t)
	_, token := s.signUp("reader", "CUSTOMER")

	t.Run("重复注册", func(t *testing.T) {
		resp := s.do(http.MethodPost, "/api/v1/users", "", map[string]string{
			"first_name": "San",
			"last_name":  "Zhang",
			"username":   "reader",
			"email":      "other@example.com",
			"password":   "password123",
			"role":       "CUSTOMER",
		})
		assert.Equal(t, apperrors.ErrCodeUsernameDuplicate, resp.Code)
	})

	t.Run("密码错误", func(t *testing.T) {
		resp := s.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{
			"username": "reader",
			"password": "wrong-password",
		})
		assert.Equal(t, apperrors.ErrCodeInvalidPassword, resp.Code)
	})

	t.Run("登出后Token失效", func(t *testing.T) {
		resp := s.do(http.MethodGet, "/api/v1/categories/subscriptions", token, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		resp = s.do(http.MethodPost, "/api/v1/users/logout", token, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		resp = s.do(http.MethodGet, "/api/v1/categories/subscriptions", token, nil)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, resp.Code)
	})

	t.Run("刷新Token", func(t *testing.T) {
		login := s.login("reader")

		resp := s.do(http.MethodPost, "/api/v1/users/refresh", "", map[string]string{"refresh_token": login.RefreshToken})
		require.Equal(t, 0, resp.Code, resp.Message)
		var refreshed struct {
			AccessToken string `json:"access_token"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &refreshed))
		resp = s.do(http.MethodGet, "/api/v1/categories/subscriptions", refreshed.AccessToken, nil)
		assert.Equal(t, 0, resp.Code, resp.Message)

		// Access Token不能当作Refresh Token
		resp = s.do(http.MethodPost, "/api/v1/users/refresh", "", map[string]string{"refresh_token": login.AccessToken})
		assert.Equal(t, apperrors.ErrCodeInvalidToken, resp.Code)

		// Refresh Token不能访问接口
		resp = s.do(http.MethodGet, "/api/v1/categories/subscriptions", login.RefreshToken, nil)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, resp.Code)
	})

	t.Run("登出后Refresh Token失效", func(t *testing.T) {
		login := s.login("reader")

		resp := s.do(http.MethodPost, "/api/v1/users/logout", login.AccessToken, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		resp = s.do(http.MethodPost, "/api/v1/users/refresh", "", map[string]string{"refresh_token": login.RefreshToken})
		assert.Equal(t, apperrors.ErrCodeTokenExpired, resp.Code)
	})

	t.Run("重新登录后旧Refresh Token失效", func(t *testing.T) {
		old := s.login("reader")
		s.login("reader")

		resp := s.do(http.MethodPost, "/api/v1/users/refresh", "", map[string]string{"refresh_token": old.RefreshToken})
		assert.Equal(t, apperrors.ErrCodeTokenExpired, resp.Code)
	})

	t.Run("健康检查", func(t *testing.T) {
		resp := s.do(http.MethodGet, "/ping", "", nil)
		assert.Equal(t, 0, resp.Code)
	})
}
