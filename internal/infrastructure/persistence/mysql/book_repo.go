package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/page"
	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// bookRepository 图书仓储实现
// 设计说明:
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 所有操作都通过getDB(ctx)参与调用方的事务
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

// Create 创建图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	// 1. 领域实体 → GORM模型
	model := toBookModel(b)

	// 2. 插入数据库(关联只写外键,不级联写分类/用户)
	if err := getDB(ctx, r.db).Omit(clause.Associations).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建图书失败")
	}

	// 3. 回填自增ID
	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找图书(带分类和借阅人)
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := getDB(ctx, r.db).
		Preload("Category").
		Preload("Borrower").
		First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.NotFoundByID(id)
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}

	return toBookEntity(&model), nil
}

// LockByID 悲观锁查询图书(用于借阅)
// 教学要点:
// 1. SELECT ... FOR UPDATE锁定行,同一本书的并发借阅在这里排队
// 2. 必须在事务中调用,锁在事务提交/回滚时释放
// 3. 先单独锁行再加载关联,避免锁子句作用到预加载查询上
func (r *bookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	if !inTx(ctx) {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "LockByID必须在事务内调用")
	}

	var locked BookModel
	err := getDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&locked, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.NotFoundByID(id)
		}
		return nil, apperrors.Wrap(err, "锁定图书失败")
	}

	return r.FindByID(ctx, id)
}

// Block 冻结图书
// 只更新blocked列,不会覆盖并发事务写入的借阅字段
func (r *bookRepository) Block(ctx context.Context, id uint) error {
	db := getDB(ctx, r.db)
	result := db.
		Model(&BookModel{ID: id}).
		UpdateColumns(map[string]interface{}{
			"blocked":    true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "冻结图书失败")
	}
	// MySQL默认返回实际变化的行数,值未变化时也是0,需要再确认一次是否存在
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&BookModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return apperrors.Wrap(err, "查询图书失败")
		}
		if count == 0 {
			return book.NotFoundByID(id)
		}
	}
	return nil
}

// SaveLoan 写入借阅状态
// 使用Select显式列出借阅相关字段,冻结标记不在其中
func (r *bookRepository) SaveLoan(ctx context.Context, b *book.Book) error {
	model := toBookModel(b)
	model.UpdatedAt = time.Now()

	result := getDB(ctx, r.db).
		Model(&BookModel{ID: b.ID}).
		Select("state", "from_date", "to_date", "borrower_id", "updated_at").
		Updates(model)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新借阅状态失败")
	}
	if result.RowsAffected == 0 {
		return book.NotFoundByID(b.ID)
	}

	b.UpdatedAt = model.UpdatedAt
	return nil
}

// ReleaseLoan 归还图书
// 条件更新: WHERE id=? AND borrower_id=?
// 影响行数为0说明读取之后图书已被归还或被他人借出
func (r *bookRepository) ReleaseLoan(ctx context.Context, id, borrowerID uint) error {
	result := getDB(ctx, r.db).
		Model(&BookModel{}).
		Where("id = ? AND borrower_id = ? AND state = ?", id, borrowerID, int(book.StateBorrowed)).
		Updates(map[string]interface{}{
			"state":       int(book.StateReady),
			"borrower_id": nil,
			"from_date":   nil,
			"to_date":     nil,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "归还图书失败")
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrCodeBookNotBorrowed, "图书未被借出: id=%d", id)
	}
	return nil
}

// List 分页查询图书列表(按ID升序)
func (r *bookRepository) List(ctx context.Context, req page.Request) ([]*book.Book, int64, error) {
	var (
		models []BookModel
		total  int64
	)

	db := getDB(ctx, r.db)

	// 查询总数
	if err := db.Model(&BookModel{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	// 查询数据
	err := db.Preload("Category").
		Preload("Borrower").
		Order("id ASC").
		Scopes(paginate(req)).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books, total, nil
}

// ListByBorrower 用户当前借阅的图书
func (r *bookRepository) ListByBorrower(ctx context.Context, userID uint) ([]*book.Book, error) {
	var models []BookModel
	err := getDB(ctx, r.db).
		Preload("Category").
		Preload("Borrower").
		Where("borrower_id = ?", userID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询借阅列表失败")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toBookModel 领域实体 → GORM模型
func toBookModel(b *book.Book) *BookModel {
	model := &BookModel{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Blocked:   b.Blocked,
		State:     int(b.State),
		FromDate:  b.FromDate,
		ToDate:    b.ToDate,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Category != nil {
		id := b.Category.ID
		model.CategoryID = &id
	}
	if b.Borrower != nil {
		id := b.Borrower.ID
		model.BorrowerID = &id
	}
	return model
}

// toBookEntity GORM模型 → 领域实体
func toBookEntity(model *BookModel) *book.Book {
	b := &book.Book{
		ID:        model.ID,
		Title:     model.Title,
		Author:    model.Author,
		Blocked:   model.Blocked,
		State:     book.State(model.State),
		FromDate:  localDate(model.FromDate),
		ToDate:    localDate(model.ToDate),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if model.Category != nil {
		b.Category = toCategoryEntity(model.Category)
	}
	if model.Borrower != nil {
		b.Borrower = toUserEntity(model.Borrower)
	}
	return b
}

// localDate DATE列读回来的时区因驱动而异(UTC或连接时区),只取年月日
func localDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := book.DateIn(*t, time.Local)
	return &d
}

func toCategoryEntity(model *CategoryModel) *category.Category {
	return &category.Category{
		ID:        model.ID,
		Name:      model.Name,
		CreatedAt: model.CreatedAt,
	}
}

func toUserEntity(model *UserModel) *user.User {
	return &user.User{
		ID:        model.ID,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Username:  model.Username,
		Email:     model.Email,
		Password:  model.Password,
		Role:      user.Role(model.Role),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
