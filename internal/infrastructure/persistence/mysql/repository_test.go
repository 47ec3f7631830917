package mysql

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/page"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// newTestDB 每个测试一个临时sqlite数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			Path:        filepath.Join(t.TempDir(), "library.db"),
			AutoMigrate: true,
		},
	}
	db, err := NewDB(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, repo user.Repository, username string, role user.Role) *user.User {
	t.Helper()
	u := user.NewUser("名", "姓", username, username+"@example.com", "hashed", role)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	alice := createUser(t, repo, "alice", user.RoleCustomer)
	createUser(t, repo, "bob", user.RoleEmployee)

	t.Run("按用户名和邮箱查找", func(t *testing.T) {
		found, err := repo.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, found.ID)
		assert.Equal(t, user.RoleCustomer, found.Role)

		found, err = repo.FindByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.RoleEmployee, found.Role)
	})

	t.Run("不存在", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 999)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUserNotFound))

		_, err = repo.FindByUsername(ctx, "ghost")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("唯一索引兜底", func(t *testing.T) {
		err := repo.Create(ctx, user.NewUser("A", "B", "alice", "new@example.com", "hashed", user.RoleCustomer))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUsernameDuplicate))

		err = repo.Create(ctx, user.NewUser("A", "B", "carol", "alice@example.com", "hashed", user.RoleCustomer))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmailDuplicate))
	})

	t.Run("分页", func(t *testing.T) {
		users, total, err := repo.List(ctx, page.Request{Page: 2, Size: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, users, 1)
		assert.Equal(t, "bob", users[0].Username)
	})
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewCategoryRepository(db)
	users := NewUserRepository(db)
	alice := createUser(t, users, "alice", user.RoleCustomer)
	bob := createUser(t, users, "bob", user.RoleCustomer)

	c := category.NewCategory("科幻")
	require.NoError(t, repo.Create(ctx, c))
	assert.NotZero(t, c.ID)

	t.Run("分类名重复", func(t *testing.T) {
		err := repo.Create(ctx, category.NewCategory("科幻"))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCategoryDuplicate))
	})

	t.Run("重复订阅只保留一条", func(t *testing.T) {
		require.NoError(t, repo.AddSubscriber(ctx, c.ID, alice.ID))
		require.NoError(t, repo.AddSubscriber(ctx, c.ID, alice.ID))
		require.NoError(t, repo.AddSubscriber(ctx, c.ID, bob.ID))

		subs, err := repo.ListSubscribers(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, subs, 2)
		assert.Equal(t, "alice", subs[0].Username)

		mine, err := repo.ListByUser(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "科幻", mine[0].Name)
	})

	t.Run("分类不存在", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 404)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCategoryNotFound))
	})
}

func TestBookRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tx := NewTxManager(db)
	repo := NewBookRepository(db)
	users := NewUserRepository(db)
	categories := NewCategoryRepository(db)

	alice := createUser(t, users, "alice", user.RoleCustomer)
	c := category.NewCategory("推理")
	require.NoError(t, categories.Create(ctx, c))

	b := book.NewBook("白夜行", "东野圭吾", c)
	require.NoError(t, repo.Create(ctx, b))
	require.NotZero(t, b.ID)

	t.Run("读取时带上分类", func(t *testing.T) {
		found, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "推理", found.CategoryName())
		assert.Equal(t, book.StateReady, found.State)
		assert.Nil(t, found.Borrower)
	})

	t.Run("借出后借阅人和日期持久化", func(t *testing.T) {
		today := book.Day(time.Now())
		err := tx.Transaction(ctx, func(ctx context.Context) error {
			locked, err := repo.LockByID(ctx, b.ID)
			if err != nil {
				return err
			}
			if err := locked.Borrow(alice, today, today.AddDate(0, 0, 7)); err != nil {
				return err
			}
			return repo.SaveLoan(ctx, locked)
		})
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", found.BorrowerUsername())
		assert.Equal(t, today.AddDate(0, 0, 7).Format(book.DateLayout), found.ToDate.Format(book.DateLayout))
		assert.NoError(t, found.CheckInvariant())

		mine, err := repo.ListByBorrower(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 1)
	})

	t.Run("冻结不覆盖借阅字段", func(t *testing.T) {
		require.NoError(t, repo.Block(ctx, b.ID))
		require.NoError(t, repo.Block(ctx, b.ID))

		found, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, found.Blocked)
		assert.Equal(t, "alice", found.BorrowerUsername())
		assert.NoError(t, found.CheckInvariant())
	})

	t.Run("借阅人不匹配时归还失败", func(t *testing.T) {
		err := repo.ReleaseLoan(ctx, b.ID, alice.ID+100)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBookNotBorrowed))

		found, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", found.BorrowerUsername())
	})

	t.Run("归还后借阅信息清空", func(t *testing.T) {
		require.NoError(t, repo.ReleaseLoan(ctx, b.ID, alice.ID))

		found, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Nil(t, found.Borrower)
		assert.Nil(t, found.FromDate)
		assert.Nil(t, found.ToDate)
		assert.True(t, found.Blocked)
		assert.NoError(t, found.CheckInvariant())

		// 重复归还
		err = repo.ReleaseLoan(ctx, b.ID, alice.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBookNotBorrowed))
	})

	t.Run("事务回滚", func(t *testing.T) {
		other := book.NewBook("嫌疑人X的献身", "东野圭吾", nil)
		require.NoError(t, repo.Create(ctx, other))

		err := tx.Transaction(ctx, func(ctx context.Context) error {
			if err := repo.Block(ctx, other.ID); err != nil {
				return err
			}
			return apperrors.ErrInternal
		})
		require.Error(t, err)

		found, err := repo.FindByID(ctx, other.ID)
		require.NoError(t, err)
		assert.False(t, found.Blocked)
	})

	t.Run("事务外加锁返回错误", func(t *testing.T) {
		_, err := repo.LockByID(ctx, b.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInternal))
	})

	t.Run("图书不存在", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 404)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBookNotFound))

		err = tx.Transaction(ctx, func(ctx context.Context) error {
			_, err := repo.LockByID(ctx, 404)
			return err
		})
		assert.True(t, apperrors.IsNotFound(err))

		err = repo.Block(ctx, 404)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("分页", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, book.NewBook("第二本", "作者", nil)))

		books, total, err := repo.List(ctx, page.Request{Page: 1, Size: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, books, 1)
		assert.Equal(t, b.ID, books[0].ID)
	})
}

// TestConcurrentBorrow sqlite只有一个写连接,事务天然串行,结果必须与行锁一致
func TestConcurrentBorrow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tx := NewTxManager(db)
	books := NewBookRepository(db)
	users := NewUserRepository(db)
	svc := book.NewService(books, users, NewCategoryRepository(db))

	b := book.NewBook("并发", "作者", nil)
	require.NoError(t, books.Create(ctx, b))

	const n = 5
	names := []string{"u1", "u2", "u3", "u4", "u5"}
	for _, name := range names {
		createUser(t, users, name, user.RoleCustomer)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		borrowed  int
	)
	to := time.Now().AddDate(0, 0, 3)
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			err := tx.Transaction(ctx, func(ctx context.Context) error {
				_, _, err := svc.Borrow(ctx, name, b.ID, to)
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperrors.HasCode(err, apperrors.ErrCodeBookBorrowed) {
				borrowed++
			} else {
				t.Errorf("意外错误: %v", err)
			}
		}(name)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, borrowed)
}

func TestIsDuplicateError(t *testing.T) {
	assert.False(t, isDuplicateError(nil))
	assert.True(t, isDuplicateError(gorm.ErrDuplicatedKey))
	assert.False(t, isDuplicateError(assert.AnError))

	err := errors.New("UNIQUE constraint failed: users.username")
	assert.True(t, duplicateOn(err, "username"))
	assert.False(t, duplicateOn(err, "email"))

	err = errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`)
	assert.True(t, duplicateOn(err, "email"))
}
