package book

import (
	"fmt"
	"time"

	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// DateLayout 借阅日期格式
const DateLayout = "2006-01-02"

// State 图书借阅状态
type State int

const (
	StateReady    State = iota + 1 // 可借阅
	StateBorrowed                  // 已借出
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateBorrowed:
		return "BORROWED"
	default:
		return "UNKNOWN"
	}
}

// Book 图书实体(聚合根)
// 不变量:
// 1. State==StateBorrowed ⇔ Borrower!=nil ⇔ FromDate!=nil ⇔ ToDate!=nil
// 2. Blocked与State正交:冻结的图书不能被借出,但可以处于任意状态
// 3. Category在创建时确定,之后不再变化
type Book struct {
	ID       uint
	Title    string
	Author   string
	Blocked  bool
	State    State
	FromDate *time.Time
	ToDate   *time.Time
	Category *category.Category
	Borrower *user.User

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBook 创建新图书(未冻结、可借阅)
func NewBook(title, author string, c *category.Category) *Book {
	now := time.Now()
	return &Book{
		Title:     title,
		Author:    author,
		Blocked:   false,
		State:     StateReady,
		Category:  c,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Borrow 借出图书
// 调用方负责在持有行锁的情况下调用,避免并发借出
func (b *Book) Borrow(borrower *user.User, today, to time.Time) error {
	if err := b.CanBeBorrowed(); err != nil {
		return err
	}

	from := Day(today)
	until := Day(to)
	b.State = StateBorrowed
	b.Borrower = borrower
	b.FromDate = &from
	b.ToDate = &until
	b.UpdatedAt = time.Now()
	return nil
}

// CanBeBorrowed 冻结或已借出的图书不可借阅
func (b *Book) CanBeBorrowed() error {
	if b.Blocked {
		return apperrors.Newf(apperrors.ErrCodeBookBlocked, "图书不可借阅(已冻结): id=%d", b.ID)
	}
	if b.State == StateBorrowed {
		return apperrors.Newf(apperrors.ErrCodeBookBorrowed, "图书已借出, 借阅至: %s", b.ToDate.Format(DateLayout))
	}
	return nil
}

// Return 归还图书,清空借阅人与借阅日期
func (b *Book) Return() error {
	if b.Borrower == nil {
		return apperrors.Newf(apperrors.ErrCodeBookNotBorrowed, "图书未被借出: id=%d", b.ID)
	}
	b.State = StateReady
	b.Borrower = nil
	b.FromDate = nil
	b.ToDate = nil
	b.UpdatedAt = time.Now()
	return nil
}

// IsBorrowed 是否已借出
func (b *Book) IsBorrowed() bool {
	return b.State == StateBorrowed
}

// BorrowerUsername 当前借阅人用户名(未借出时为空)
func (b *Book) BorrowerUsername() string {
	if b.Borrower == nil {
		return ""
	}
	return b.Borrower.Username
}

// CategoryName 分类名(无分类时为空)
func (b *Book) CategoryName() string {
	if b.Category == nil {
		return ""
	}
	return b.Category.Name
}

// CheckInvariant 校验借阅状态的一致性
func (b *Book) CheckInvariant() error {
	borrowed := b.State == StateBorrowed
	if borrowed != (b.Borrower != nil) || borrowed != (b.FromDate != nil) || borrowed != (b.ToDate != nil) {
		return apperrors.Newf(apperrors.ErrCodeInternal, "图书状态不一致: id=%d state=%s", b.ID, b.State)
	}
	return nil
}

func (b *Book) String() string {
	return fmt.Sprintf("Book(id=%d, title=%s, author=%s)", b.ID, b.Title, b.Author)
}

// Day 截断到当天零点(保留时区)
func Day(t time.Time) time.Time {
	return DateIn(t, t.Location())
}

// DateIn 取t的日历日期,在loc时区构造零点
// 日期参数只有年月日有意义,换时区时不能按瞬时时间换算
func DateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
