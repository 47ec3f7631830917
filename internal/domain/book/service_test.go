package book_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/page"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// fixture 基于内存存储的测试环境,"今天"固定为2024-03-10
type fixture struct {
	store      *memory.Store
	books      book.Repository
	users      user.Repository
	categories category.Repository
	svc        book.Service
	today      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	f := &fixture{
		store:      s,
		books:      memory.NewBookRepository(s),
		users:      memory.NewUserRepository(s),
		categories: memory.NewCategoryRepository(s),
		today:      time.Date(2024, 3, 10, 15, 30, 0, 0, time.Local),
	}
	f.svc = book.NewService(f.books, f.users, f.categories, book.WithClock(func() time.Time { return f.today }))
	return f
}

func (f *fixture) user(t *testing.T, username string, role user.Role) *user.User {
	t.Helper()
	u := user.NewUser("名", "姓", username, username+"@example.com", "hashed", role)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) book(t *testing.T) *book.Book {
	t.Helper()
	b, _, err := f.svc.Create(context.Background(), book.CreateParams{Title: "三体", Author: "刘慈欣"})
	require.NoError(t, err)
	return b
}

// borrow 在事务内借阅(LockByID要求事务)
func (f *fixture) borrow(ctx context.Context, username string, id uint, to time.Time) (*book.Book, event.Event, error) {
	var (
		b   *book.Book
		ev  event.Event
		err error
	)
	txErr := f.store.Transaction(ctx, func(ctx context.Context) error {
		b, ev, err = f.svc.Borrow(ctx, username, id, to)
		return err
	})
	if err == nil {
		err = txErr
	}
	return b, ev, err
}

func (f *fixture) day(offset int) time.Time {
	return book.Day(f.today).AddDate(0, 0, offset)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("无分类创建", func(t *testing.T) {
		f := newFixture(t)
		b, ev, err := f.svc.Create(ctx, book.CreateParams{Title: " 三体 ", Author: "刘慈欣"})
		require.NoError(t, err)

		assert.NotZero(t, b.ID)
		assert.Equal(t, "三体", b.Title)
		assert.False(t, b.Blocked)
		assert.Equal(t, book.StateReady, b.State)
		assert.Nil(t, b.Borrower)
		assert.NoError(t, b.CheckInvariant())

		assert.Equal(t, event.KindBookCreated, ev.Kind)
		assert.False(t, ev.HasFanout())
	})

	t.Run("分类订阅者收到邮件", func(t *testing.T) {
		f := newFixture(t)
		alice := f.user(t, "alice", user.RoleCustomer)
		bob := f.user(t, "bob", user.RoleCustomer)
		f.user(t, "carol", user.RoleCustomer)

		c := category.NewCategory("科幻")
		require.NoError(t, f.categories.Create(ctx, c))
		require.NoError(t, f.categories.AddSubscriber(ctx, c.ID, alice.ID))
		require.NoError(t, f.categories.AddSubscriber(ctx, c.ID, bob.ID))

		b, ev, err := f.svc.Create(ctx, book.CreateParams{Title: "三体", Author: "刘慈欣", CategoryID: &c.ID})
		require.NoError(t, err)
		assert.Equal(t, "科幻", b.CategoryName())

		require.True(t, ev.HasFanout())
		assert.Equal(t, "科幻", ev.Book.Category)
		assert.Equal(t, b.ID, ev.Book.ID)
		require.Len(t, ev.Recipients, 2)
		assert.Equal(t, "alice@example.com", ev.Recipients[0].Email)
		assert.Equal(t, "bob@example.com", ev.Recipients[1].Email)
	})

	t.Run("分类不存在", func(t *testing.T) {
		f := newFixture(t)
		missing := uint(42)
		_, _, err := f.svc.Create(ctx, book.CreateParams{Title: "三体", Author: "刘慈欣", CategoryID: &missing})
		assert.True(t, apperrors.IsNotFound(err))

		_, total, err := f.books.List(ctx, page.Request{Page: 1, Size: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("标题为空", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.Create(ctx, book.CreateParams{Title: "  ", Author: "刘慈欣"})
		assert.True(t, apperrors.IsInvalidArgument(err))
	})
}

func TestService_Block(t *testing.T) {
	ctx := context.Background()

	t.Run("冻结是幂等的", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t)

		first, ev, err := f.svc.Block(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, first.Blocked)
		assert.Equal(t, event.KindBookBlocked, ev.Kind)

		second, _, err := f.svc.Block(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, second.Blocked)
	})

	t.Run("已借出的图书也能冻结", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "alice", user.RoleCustomer)
		b := f.book(t)
		_, _, err := f.borrow(ctx, "alice", b.ID, f.day(3))
		require.NoError(t, err)

		blocked, _, err := f.svc.Block(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, blocked.Blocked)
		assert.Equal(t, book.StateBorrowed, blocked.State)
	})

	t.Run("图书不存在", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.Block(ctx, 404)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestService_Borrow(t *testing.T) {
	ctx := context.Background()

	t.Run("借阅成功", func(t *testing.T) {
		f := newFixture(t)
		alice := f.user(t, "alice", user.RoleCustomer)
		b := f.book(t)

		got, ev, err := f.borrow(ctx, "alice", b.ID, f.day(10))
		require.NoError(t, err)
		assert.Equal(t, book.StateBorrowed, got.State)
		assert.Equal(t, alice.ID, got.Borrower.ID)
		assert.Equal(t, f.day(0), *got.FromDate)
		assert.Equal(t, f.day(10), *got.ToDate)
		assert.NoError(t, got.CheckInvariant())
		assert.Equal(t, event.KindBookBorrowed, ev.Kind)

		// 反向集合与借阅人一致
		mine, err := f.books.ListByBorrower(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, b.ID, mine[0].ID)
	})

	t.Run("归还日期为今天可以借阅", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "alice", user.RoleCustomer)
		b := f.book(t)

		_, _, err := f.borrow(ctx, "alice", b.ID, f.day(0))
		assert.NoError(t, err)
	})

	t.Run("归还日期早于今天", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "alice", user.RoleCustomer)
		b := f.book(t)
		before, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)

		_, _, err = f.borrow(ctx, "alice", b.ID, f.day(-1))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidBorrowDate))

		after, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
		assert.Equal(t, book.StateReady, after.State)
	})

	t.Run("日期非法时不检查图书是否存在", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.borrow(ctx, "alice", 404, f.day(-1))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidBorrowDate))
	})

	t.Run("图书不存在", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "alice", user.RoleCustomer)
		_, _, err := f.borrow(ctx, "alice", 404, f.day(1))
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("已冻结的图书不可借阅", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "alice", user.RoleCustomer)
		b := f.book(t)
		_, _, err := f.svc.Block(ctx, b.ID)
		require.NoError(t, err)

		_, _, err = f.borrow(ctx, "alice", b.ID, f.day(1))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBookBlocked))
		assert.True(t, apperrors.IsInvalidArgument(err))
	})

	t.Run("借阅人不存在", func(t *testing.T) {
		f := newFixture(t)
		b := f.book(t)
		_, _, err := f.borrow(ctx, "ghost", b.ID, f.day(1))
		assert.True(t, apperrors.IsNotFound(err))

		after, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, book.StateReady, after.State)
	})
}

// TestScenario_BorrowAndReturn 分类→图书→借阅→重复借阅→归还
func TestScenario_BorrowAndReturn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.user(t, "userx", user.RoleCustomer)
	f.user(t, "usery", user.RoleCustomer)

	c := category.NewCategory("推理")
	require.NoError(t, f.categories.Create(ctx, c))

	b, _, err := f.svc.Create(ctx, book.CreateParams{Title: "白夜行", Author: "东野圭吾", CategoryID: &c.ID})
	require.NoError(t, err)
	assert.False(t, b.Blocked)
	assert.Equal(t, book.StateReady, b.State)

	got, _, err := f.borrow(ctx, "userx", b.ID, f.day(10))
	require.NoError(t, err)
	assert.Equal(t, book.StateBorrowed, got.State)
	assert.Equal(t, "userx", got.BorrowerUsername())
	assert.Equal(t, f.day(10), *got.ToDate)

	_, _, err = f.borrow(ctx, "usery", b.ID, f.day(5))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBookBorrowed))
	assert.Contains(t, apperrors.GetAppError(err).Message, f.day(10).Format(book.DateLayout))

	returned, ev, err := f.svc.Return(ctx, x.Identity(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, book.StateReady, returned.State)
	assert.Nil(t, returned.Borrower)
	assert.Nil(t, returned.FromDate)
	assert.Nil(t, returned.ToDate)
	assert.Equal(t, event.KindBookReturned, ev.Kind)
	assert.Contains(t, ev.Info, "userx")
	assert.Contains(t, ev.Info, "CUSTOMER")

	stored, err := f.books.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckInvariant())

	mine, err := f.books.ListByBorrower(ctx, x.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestService_Return(t *testing.T) {
	ctx := context.Background()

	t.Run("未借出的图书返回参数错误而不是无权限", func(t *testing.T) {
		f := newFixture(t)
		stranger := f.user(t, "stranger", user.RoleCustomer)
		b := f.book(t)

		_, _, err := f.svc.Return(ctx, stranger.Identity(), b.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBookNotBorrowed))
		assert.False(t, apperrors.IsAccessDenied(err))
	})

	t.Run("顾客不能归还别人借的书,员工可以", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "alice", user.RoleCustomer)
		bob := f.user(t, "bob", user.RoleCustomer)
		staff := f.user(t, "staff", user.RoleEmployee)
		b := f.book(t)
		_, _, err := f.borrow(ctx, "alice", b.ID, f.day(3))
		require.NoError(t, err)

		_, _, err = f.svc.Return(ctx, bob.Identity(), b.ID)
		assert.True(t, apperrors.IsAccessDenied(err))

		still, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", still.BorrowerUsername())

		returned, _, err := f.svc.Return(ctx, staff.Identity(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, book.StateReady, returned.State)
	})

	t.Run("图书不存在", func(t *testing.T) {
		f := newFixture(t)
		staff := f.user(t, "staff", user.RoleEmployee)
		_, _, err := f.svc.Return(ctx, staff.Identity(), 404)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

// interleavedRepository 在写入前插入另一个已提交的操作
type interleavedRepository struct {
	book.Repository
	beforeBlock   func()
	beforeRelease func()
}

func (r *interleavedRepository) Block(ctx context.Context, id uint) error {
	if r.beforeBlock != nil {
		r.beforeBlock()
	}
	return r.Repository.Block(ctx, id)
}

func (r *interleavedRepository) ReleaseLoan(ctx context.Context, id, borrowerID uint) error {
	if r.beforeRelease != nil {
		r.beforeRelease()
	}
	return r.Repository.ReleaseLoan(ctx, id, borrowerID)
}

func TestService_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()

	t.Run("冻结不会抹掉读取之后提交的借阅", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "alice", user.RoleCustomer)
		f.user(t, "bob", user.RoleCustomer)
		b := f.book(t)

		repo := &interleavedRepository{Repository: f.books}
		repo.beforeBlock = func() {
			_, _, err := f.borrow(ctx, "alice", b.ID, f.day(5))
			require.NoError(t, err)
		}
		svc := book.NewService(repo, f.users, f.categories, book.WithClock(func() time.Time { return f.today }))

		var blocked *book.Book
		err := f.store.Transaction(ctx, func(ctx context.Context) error {
			var err error
			blocked, _, err = svc.Block(ctx, b.ID)
			return err
		})
		require.NoError(t, err)
		assert.True(t, blocked.Blocked)

		stored, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, stored.Blocked)
		assert.Equal(t, "alice", stored.BorrowerUsername())
		assert.NoError(t, stored.CheckInvariant())

		_, _, err = f.borrow(ctx, "bob", b.ID, f.day(2))
		assert.Error(t, err)
	})

	t.Run("过期的归还不会抹掉他人的新借阅", func(t *testing.T) {
		f := newFixture(t)
		alice := f.user(t, "alice", user.RoleCustomer)
		f.user(t, "bob", user.RoleCustomer)
		staff := f.user(t, "staff", user.RoleEmployee)
		b := f.book(t)
		_, _, err := f.borrow(ctx, "alice", b.ID, f.day(3))
		require.NoError(t, err)

		repo := &interleavedRepository{Repository: f.books}
		repo.beforeRelease = func() {
			_, _, err := f.svc.Return(ctx, staff.Identity(), b.ID)
			require.NoError(t, err)
			_, _, err = f.borrow(ctx, "bob", b.ID, f.day(4))
			require.NoError(t, err)
		}
		svc := book.NewService(repo, f.users, f.categories, book.WithClock(func() time.Time { return f.today }))

		err = f.store.Transaction(ctx, func(ctx context.Context) error {
			_, _, err := svc.Return(ctx, alice.Identity(), b.ID)
			return err
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBookNotBorrowed))

		stored, err := f.books.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", stored.BorrowerUsername())
		assert.Equal(t, f.day(4), *stored.ToDate)
		assert.NoError(t, stored.CheckInvariant())
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.book(t)
	}

	t.Run("第0页返回参数错误", func(t *testing.T) {
		_, _, err := f.svc.List(ctx, page.Request{Page: 0, Size: 10})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidPage))
	})

	t.Run("第1页", func(t *testing.T) {
		books, total, err := f.svc.List(ctx, page.Request{Page: 1, Size: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, books, 2)
	})

	t.Run("超出范围返回空页", func(t *testing.T) {
		books, total, err := f.svc.List(ctx, page.Request{Page: 5, Size: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Empty(t, books)

		books, _, err = f.svc.List(ctx, page.Request{Page: math.MaxInt, Size: 2})
		require.NoError(t, err)
		assert.Empty(t, books)
	})
}

func TestService_ListForUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice", user.RoleCustomer)
	bob := f.user(t, "bob", user.RoleCustomer)
	staff := f.user(t, "staff", user.RoleEmployee)
	b := f.book(t)
	_, _, err := f.borrow(ctx, "alice", b.ID, f.day(1))
	require.NoError(t, err)

	t.Run("本人可以查看", func(t *testing.T) {
		books, err := f.svc.ListForUser(ctx, alice.Identity(), alice.ID)
		require.NoError(t, err)
		assert.Len(t, books, 1)
	})

	t.Run("员工可以查看任何人", func(t *testing.T) {
		books, err := f.svc.ListForUser(ctx, staff.Identity(), alice.ID)
		require.NoError(t, err)
		assert.Len(t, books, 1)
	})

	t.Run("其他顾客无权查看", func(t *testing.T) {
		_, err := f.svc.ListForUser(ctx, bob.Identity(), alice.ID)
		assert.True(t, apperrors.IsAccessDenied(err))
	})

	t.Run("用户不存在", func(t *testing.T) {
		_, err := f.svc.ListForUser(ctx, staff.Identity(), 404)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
