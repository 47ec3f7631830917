package book

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/page"
	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// CreateParams 创建图书参数
type CreateParams struct {
	Title      string
	Author     string
	CategoryID *uint // 可选
}

// Service 图书借阅生命周期领域服务
// 设计说明:
// 1. 每个写操作都返回待发送的领域事件,由应用层在事务提交后分发
// 2. 调用者身份由参数显式传入
// 3. 事务边界由应用层控制,这里的所有仓储调用都使用传入的ctx
type Service interface {
	// Create 创建图书(未冻结、可借阅),指定分类时分类必须存在
	Create(ctx context.Context, params CreateParams) (*Book, event.Event, error)

	// Block 冻结图书(幂等)
	Block(ctx context.Context, id uint) (*Book, event.Event, error)

	// Borrow 借阅图书,同一本书的并发借阅只有一个成功
	Borrow(ctx context.Context, username string, id uint, to time.Time) (*Book, event.Event, error)

	// Return 归还图书,顾客只能归还自己借的书
	Return(ctx context.Context, actor user.Identity, id uint) (*Book, event.Event, error)

	// List 分页查询
	List(ctx context.Context, req page.Request) ([]*Book, int64, error)

	// ListForUser 查询指定用户借阅的图书,顾客只能查自己的
	ListForUser(ctx context.Context, actor user.Identity, userID uint) ([]*Book, error)
}

type service struct {
	repo         Repository
	userRepo     user.Repository
	categoryRepo category.Repository
	now          func() time.Time
}

// Option 服务选项
type Option func(*service)

// WithClock 替换时钟(测试中固定"今天")
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// NewService 创建图书领域服务
func NewService(repo Repository, userRepo user.Repository, categoryRepo category.Repository, opts ...Option) Service {
	s := &service{
		repo:         repo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 创建图书
func (s *service) Create(ctx context.Context, params CreateParams) (*Book, event.Event, error) {
	// 1. 参数校验
	title := strings.TrimSpace(params.Title)
	author := strings.TrimSpace(params.Author)
	if title == "" || author == "" {
		return nil, event.Event{}, ErrInvalidTitle
	}

	// 2. 解析分类及其订阅者
	var (
		c           *category.Category
		subscribers []*user.User
	)
	if params.CategoryID != nil {
		var err error
		c, err = s.categoryRepo.FindByID(ctx, *params.CategoryID)
		if err != nil {
			return nil, event.Event{}, err
		}
		subscribers, err = s.categoryRepo.ListSubscribers(ctx, c.ID)
		if err != nil {
			return nil, event.Event{}, err
		}
	}

	// 3. 持久化
	b := NewBook(title, author, c)
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, event.Event{}, err
	}

	// 4. 创建事件(分类订阅者逐个收到邮件通知)
	ev := event.New(event.KindBookCreated, fmt.Sprintf("%s 已创建", b))
	if c != nil {
		ev.Book = snapshot(b)
		for _, u := range subscribers {
			ev.Recipients = append(ev.Recipients, event.Recipient{
				Email:     u.Email,
				FirstName: u.FirstName,
				LastName:  u.LastName,
			})
		}
	}
	return b, ev, nil
}

// Block 冻结图书
// 只写冻结标记,与并发的借阅/归还互不覆盖
func (s *service) Block(ctx context.Context, id uint) (*Book, event.Event, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, event.Event{}, err
	}

	if err := s.repo.Block(ctx, id); err != nil {
		return nil, event.Event{}, err
	}

	// 重新读取,返回包含最新借阅状态的图书
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, event.Event{}, err
	}
	return b, event.New(event.KindBookBlocked, fmt.Sprintf("%s 已冻结", b)), nil
}

// Borrow 借阅图书
// 并发控制:
//  1. 先校验日期,日期非法时不触碰图书记录
//  2. LockByID加排他锁,同一本书的借阅被串行化
//  3. 锁内检查冻结/已借出,只有第一个拿到锁的请求能看到READY
//  4. 事务提交后释放锁,后续请求看到BORROWED并失败
func (s *service) Borrow(ctx context.Context, username string, id uint, to time.Time) (*Book, event.Event, error) {
	// 1. 归还日期不能早于今天
	today := Day(s.now())
	until := DateIn(to, today.Location())
	if until.Before(today) {
		return nil, event.Event{}, ErrInvalidBorrowDate
	}

	// 2. 加锁读取
	b, err := s.repo.LockByID(ctx, id)
	if err != nil {
		return nil, event.Event{}, err
	}

	// 3. 冻结/已借出检查
	if err := b.CanBeBorrowed(); err != nil {
		return nil, event.Event{}, err
	}

	// 4. 解析借阅人
	borrower, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, event.Event{}, err
	}

	// 5. 状态变更并持久化
	if err := b.Borrow(borrower, today, until); err != nil {
		return nil, event.Event{}, err
	}
	if err := s.repo.SaveLoan(ctx, b); err != nil {
		return nil, event.Event{}, err
	}

	info := fmt.Sprintf("%s 已被 %s 借阅至 %s", b, borrower.Username, b.ToDate.Format(DateLayout))
	return b, event.New(event.KindBookBorrowed, info), nil
}

// Return 归还图书
// 未借出的图书一律返回InvalidArgument(先于权限校验),
// 顾客归还别人借的书返回AccessDenied,员工不受限制
func (s *service) Return(ctx context.Context, actor user.Identity, id uint) (*Book, event.Event, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, event.Event{}, err
	}

	if b.Borrower == nil {
		return nil, event.Event{}, apperrors.Newf(apperrors.ErrCodeBookNotBorrowed, "图书未被借出: id=%d", b.ID)
	}

	if !user.CanAccess(actor, b.Borrower.Username) {
		return nil, event.Event{}, apperrors.Newf(apperrors.ErrCodeForbidden, "无权归还图书: id=%d", b.ID)
	}

	// 以读到的借阅人为条件写入,读取之后发生的归还/再借出会让这里失败
	if err := s.repo.ReleaseLoan(ctx, b.ID, b.Borrower.ID); err != nil {
		return nil, event.Event{}, err
	}
	if err := b.Return(); err != nil {
		return nil, event.Event{}, err
	}

	info := fmt.Sprintf("%s 已由 %s(%s) 归还", b, actor.Username, actor.Role)
	return b, event.New(event.KindBookReturned, info), nil
}

// List 分页查询
func (s *service) List(ctx context.Context, req page.Request) ([]*Book, int64, error) {
	if req.Page < 1 {
		return nil, 0, apperrors.ErrInvalidPage
	}
	return s.repo.List(ctx, req)
}

// ListForUser 用户借阅的图书
func (s *service) ListForUser(ctx context.Context, actor user.Identity, userID uint) ([]*Book, error) {
	target, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.CanAccess(actor, target.Username) {
		return nil, apperrors.Newf(apperrors.ErrCodeForbidden, "无权查看用户的借阅记录: id=%d", userID)
	}

	return s.repo.ListByBorrower(ctx, target.ID)
}

func snapshot(b *Book) *event.BookSnapshot {
	return &event.BookSnapshot{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Category: b.CategoryName(),
	}
}
