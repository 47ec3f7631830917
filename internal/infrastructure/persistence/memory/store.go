// Package memory 进程内存储
//
// 用于开发环境(database.driver=memory)和并发测试:
//  1. 每本书一把行锁,LockByID在事务内获取,提交或回滚后释放
//  2. 事务内的写入先暂存,提交时在全局锁内一次性生效,回滚直接丢弃
//  3. 事务内读取优先看到本事务暂存的写入
//  4. 图书的字段级更新以补丁形式暂存,提交时作用在最新的已提交行上,
//     补丁自带的前置条件在提交时重新校验
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type bookRow struct {
	ID         uint
	Title      string
	Author     string
	Blocked    bool
	State      int
	FromDate   *time.Time
	ToDate     *time.Time
	CategoryID *uint
	BorrowerID *uint
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type userRow struct {
	ID        uint
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Role      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type categoryRow struct {
	ID        uint
	Name      string
	CreatedAt time.Time
}

// bookPatch 只修改部分字段的图书更新
// apply返回error表示前置条件不再满足,整个事务回滚
type bookPatch struct {
	id    uint
	apply func(row *bookRow) error
}

type subKey struct {
	CategoryID uint
	UserID     uint
}

// Store 内存存储,同时实现TxManager
type Store struct {
	mu            sync.RWMutex
	books         map[uint]bookRow
	users         map[uint]userRow
	categories    map[uint]categoryRow
	subscriptions map[subKey]struct{}
	nextID        map[string]uint

	lockMu sync.Mutex
	locks  map[uint]chan struct{}
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{
		books:         make(map[uint]bookRow),
		users:         make(map[uint]userRow),
		categories:    make(map[uint]categoryRow),
		subscriptions: make(map[subKey]struct{}),
		nextID:        make(map[string]uint),
		locks:         make(map[uint]chan struct{}),
	}
}

// txKey 事务在context中的key
type txKey struct{}

// tx 一个进行中的事务
type tx struct {
	books      map[uint]bookRow
	users      map[uint]userRow
	categories map[uint]categoryRow
	subs       map[subKey]struct{}
	patches    []bookPatch
	held       []uint // 已持有的行锁
}

func newTx() *tx {
	return &tx{
		books:      make(map[uint]bookRow),
		users:      make(map[uint]userRow),
		categories: make(map[uint]categoryRow),
		subs:       make(map[subKey]struct{}),
	}
}

func txFrom(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// Transaction 执行事务
// fn返回nil时提交,返回error时回滚;已在事务中时直接加入外层事务
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	t := newTx()
	defer s.release(t)

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	return s.commit(t)
}

// commit 在全局写锁内应用暂存写入
func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 提交前再次检查唯一约束(两个事务可能同时注册同一个用户名)
	for _, u := range t.users {
		for _, existing := range s.users {
			if existing.ID == u.ID {
				continue
			}
			if existing.Username == u.Username {
				return apperrors.ErrUsernameDuplicate
			}
			if existing.Email == u.Email {
				return apperrors.ErrEmailDuplicate
			}
		}
	}
	for _, c := range t.categories {
		for _, existing := range s.categories {
			if existing.ID != c.ID && existing.Name == c.Name {
				return apperrors.New(apperrors.ErrCodeCategoryDuplicate, "分类名已存在")
			}
		}
	}

	// 补丁作用在已提交的最新行上,任何一个失败都不写入
	patched := make(map[uint]bookRow)
	for _, p := range t.patches {
		row, ok := patched[p.id]
		if !ok {
			if row, ok = t.books[p.id]; !ok {
				row, ok = s.books[p.id]
			}
		}
		if !ok {
			return book.NotFoundByID(p.id)
		}
		if err := p.apply(&row); err != nil {
			return err
		}
		patched[p.id] = row
	}

	for id, row := range t.users {
		s.users[id] = row
	}
	for id, row := range t.categories {
		s.categories[id] = row
	}
	for id, row := range t.books {
		s.books[id] = row
	}
	for id, row := range patched {
		s.books[id] = row
	}
	for k := range t.subs {
		s.subscriptions[k] = struct{}{}
	}
	return nil
}

// lockBook 获取图书行锁,ctx取消时放弃等待
func (s *Store) lockBook(ctx context.Context, t *tx, id uint) error {
	for _, held := range t.held {
		if held == id {
			return nil
		}
	}

	s.lockMu.Lock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	s.lockMu.Unlock()

	select {
	case ch <- struct{}{}:
		t.held = append(t.held, id)
		return nil
	case <-ctx.Done():
		return apperrors.Wrap(ctx.Err(), "等待图书行锁超时")
	}
}

// release 释放事务持有的全部行锁
func (s *Store) release(t *tx) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	for _, id := range t.held {
		<-s.locks[id]
	}
	t.held = nil
}

// allocID 分配自增ID(回滚不回收,与数据库自增主键一致)
func (s *Store) allocID(table string) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID[table]++
	return s.nextID[table]
}

// =========================================
// 读取辅助:事务暂存优先,其次已提交数据
// =========================================

func (s *Store) bookRow(ctx context.Context, id uint) (bookRow, bool) {
	t := txFrom(ctx)
	if t != nil {
		if row, ok := t.books[id]; ok {
			return t.patched(row), true
		}
	}
	s.mu.RLock()
	row, ok := s.books[id]
	s.mu.RUnlock()
	if ok && t != nil {
		row = t.patched(row)
	}
	return row, ok
}

// patched 在行上叠加本事务的补丁(前置条件失败的补丁跳过,提交时会报错)
func (t *tx) patched(row bookRow) bookRow {
	for _, p := range t.patches {
		if p.id != row.ID {
			continue
		}
		next := row
		if err := p.apply(&next); err == nil {
			row = next
		}
	}
	return row
}

func (s *Store) userRow(ctx context.Context, id uint) (userRow, bool) {
	if t := txFrom(ctx); t != nil {
		if row, ok := t.users[id]; ok {
			return row, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.users[id]
	return row, ok
}

func (s *Store) categoryRow(ctx context.Context, id uint) (categoryRow, bool) {
	if t := txFrom(ctx); t != nil {
		if row, ok := t.categories[id]; ok {
			return row, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.categories[id]
	return row, ok
}

// allBooks 合并后的图书快照(按ID升序)
func (s *Store) allBooks(ctx context.Context) []bookRow {
	merged := make(map[uint]bookRow)
	s.mu.RLock()
	for id, row := range s.books {
		merged[id] = row
	}
	s.mu.RUnlock()
	t := txFrom(ctx)
	if t != nil {
		for id, row := range t.books {
			merged[id] = row
		}
	}

	rows := make([]bookRow, 0, len(merged))
	for _, row := range merged {
		if t != nil {
			row = t.patched(row)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func (s *Store) allUsers(ctx context.Context) []userRow {
	merged := make(map[uint]userRow)
	s.mu.RLock()
	for id, row := range s.users {
		merged[id] = row
	}
	s.mu.RUnlock()
	if t := txFrom(ctx); t != nil {
		for id, row := range t.users {
			merged[id] = row
		}
	}

	rows := make([]userRow, 0, len(merged))
	for _, row := range merged {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func (s *Store) allCategories(ctx context.Context) []categoryRow {
	merged := make(map[uint]categoryRow)
	s.mu.RLock()
	for id, row := range s.categories {
		merged[id] = row
	}
	s.mu.RUnlock()
	if t := txFrom(ctx); t != nil {
		for id, row := range t.categories {
			merged[id] = row
		}
	}

	rows := make([]categoryRow, 0, len(merged))
	for _, row := range merged {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func (s *Store) hasSubscription(ctx context.Context, k subKey) bool {
	if t := txFrom(ctx); t != nil {
		if _, ok := t.subs[k]; ok {
			return true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subscriptions[k]
	return ok
}

func (s *Store) allSubscriptions(ctx context.Context) []subKey {
	var keys []subKey
	s.mu.RLock()
	for k := range s.subscriptions {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	if t := txFrom(ctx); t != nil {
		for k := range t.subs {
			if !s.hasCommittedSubscription(k) {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func (s *Store) hasCommittedSubscription(k subKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subscriptions[k]
	return ok
}

// patchBook 图书字段级更新:先在当前视图上校验一次,提交时再校验一次
func (s *Store) patchBook(ctx context.Context, id uint, apply func(row *bookRow) error) error {
	row, ok := s.bookRow(ctx, id)
	if !ok {
		return book.NotFoundByID(id)
	}
	if err := apply(&row); err != nil {
		return err
	}
	return s.write(ctx, func(t *tx) {
		t.patches = append(t.patches, bookPatch{id: id, apply: apply})
	})
}

// write 写入:事务内暂存,事务外包装成单语句事务立即提交
func (s *Store) write(ctx context.Context, apply func(t *tx)) error {
	if t := txFrom(ctx); t != nil {
		apply(t)
		return nil
	}
	return s.Transaction(ctx, func(ctx context.Context) error {
		apply(txFrom(ctx))
		return nil
	})
}
