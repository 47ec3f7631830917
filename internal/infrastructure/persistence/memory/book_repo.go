package memory

import (
	"context"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/page"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type bookRepository struct {
	s *Store
}

// NewBookRepository 创建图书仓储
func NewBookRepository(s *Store) book.Repository {
	return &bookRepository{s: s}
}

func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	now := time.Now()
	row := toBookRow(b)
	row.ID = r.s.allocID("books")
	row.CreatedAt = now
	row.UpdatedAt = now

	if err := r.s.write(ctx, func(t *tx) { t.books[row.ID] = row }); err != nil {
		return err
	}

	b.ID = row.ID
	b.CreatedAt = row.CreatedAt
	b.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	row, ok := r.s.bookRow(ctx, id)
	if !ok {
		return nil, book.NotFoundByID(id)
	}
	return r.toEntity(ctx, row), nil
}

// LockByID 获取行锁后读取
// 必须在事务内调用:锁随事务结束释放,事务外加锁没有意义
func (r *bookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	t := txFrom(ctx)
	if t == nil {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "LockByID必须在事务内调用")
	}

	if err := r.s.lockBook(ctx, t, id); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *bookRepository) Block(ctx context.Context, id uint) error {
	now := time.Now()
	return r.s.patchBook(ctx, id, func(row *bookRow) error {
		row.Blocked = true
		row.UpdatedAt = now
		return nil
	})
}

// SaveLoan 只写借阅字段,冻结标记保持提交时的最新值
func (r *bookRepository) SaveLoan(ctx context.Context, b *book.Book) error {
	loan := toBookRow(b)
	loan.UpdatedAt = time.Now()
	err := r.s.patchBook(ctx, b.ID, func(row *bookRow) error {
		row.State = loan.State
		row.BorrowerID = loan.BorrowerID
		row.FromDate = copyTime(loan.FromDate)
		row.ToDate = copyTime(loan.ToDate)
		row.UpdatedAt = loan.UpdatedAt
		return nil
	})
	if err != nil {
		return err
	}
	b.UpdatedAt = loan.UpdatedAt
	return nil
}

// ReleaseLoan 条件归还:提交时借阅人必须仍是borrowerID
func (r *bookRepository) ReleaseLoan(ctx context.Context, id, borrowerID uint) error {
	now := time.Now()
	return r.s.patchBook(ctx, id, func(row *bookRow) error {
		if row.State != int(book.StateBorrowed) || row.BorrowerID == nil || *row.BorrowerID != borrowerID {
			return apperrors.Newf(apperrors.ErrCodeBookNotBorrowed, "图书未被借出: id=%d", id)
		}
		row.State = int(book.StateReady)
		row.BorrowerID = nil
		row.FromDate = nil
		row.ToDate = nil
		row.UpdatedAt = now
		return nil
	})
}

func (r *bookRepository) List(ctx context.Context, req page.Request) ([]*book.Book, int64, error) {
	rows := r.s.allBooks(ctx)
	total := int64(len(rows))

	start := req.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + req.Size
	if end > len(rows) {
		end = len(rows)
	}

	books := make([]*book.Book, 0, end-start)
	for _, row := range rows[start:end] {
		books = append(books, r.toEntity(ctx, row))
	}
	return books, total, nil
}

func (r *bookRepository) ListByBorrower(ctx context.Context, userID uint) ([]*book.Book, error) {
	var books []*book.Book
	for _, row := range r.s.allBooks(ctx) {
		if row.BorrowerID != nil && *row.BorrowerID == userID {
			books = append(books, r.toEntity(ctx, row))
		}
	}
	return books, nil
}

// toEntity 行 → 领域实体(带上分类与借阅人)
func (r *bookRepository) toEntity(ctx context.Context, row bookRow) *book.Book {
	b := &book.Book{
		ID:        row.ID,
		Title:     row.Title,
		Author:    row.Author,
		Blocked:   row.Blocked,
		State:     book.State(row.State),
		FromDate:  copyTime(row.FromDate),
		ToDate:    copyTime(row.ToDate),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.CategoryID != nil {
		if c, ok := r.s.categoryRow(ctx, *row.CategoryID); ok {
			b.Category = toCategoryEntity(c)
		}
	}
	if row.BorrowerID != nil {
		if u, ok := r.s.userRow(ctx, *row.BorrowerID); ok {
			b.Borrower = toUserEntity(u)
		}
	}
	return b
}

func toBookRow(b *book.Book) bookRow {
	row := bookRow{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Blocked:   b.Blocked,
		State:     int(b.State),
		FromDate:  copyTime(b.FromDate),
		ToDate:    copyTime(b.ToDate),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Category != nil {
		id := b.Category.ID
		row.CategoryID = &id
	}
	if b.Borrower != nil {
		id := b.Borrower.ID
		row.BorrowerID = &id
	}
	return row
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
