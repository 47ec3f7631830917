package shared

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// recorder 记录分发的事件
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Dispatch(_ context.Context, ev event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

var actor = user.Identity{UserID: 7, Username: "alice", Email: "alice@example.com", Role: user.RoleCustomer}

func newExecutor(t *testing.T) (*Executor, *recorder) {
	t.Helper()
	rec := &recorder{}
	exec := NewExecutor(memory.NewStore(), rec, nil)

	tick := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	exec.now = func() time.Time {
		tick = tick.Add(5 * time.Millisecond)
		return tick
	}
	return exec, rec
}

func TestExecutor_Run(t *testing.T) {
	t.Run("提交后分发并补全性能记录", func(t *testing.T) {
		exec, rec := newExecutor(t)

		err := exec.Run(context.Background(), "book.borrow", actor, func(ctx context.Context) (event.Event, error) {
			return event.New(event.KindBookBorrowed, "borrowed"), nil
		})
		require.NoError(t, err)

		events := rec.all()
		require.Len(t, events, 1)
		ev := events[0]
		assert.Equal(t, event.KindBookBorrowed, ev.Kind)
		assert.Equal(t, "book.borrow", ev.Operation)
		assert.Equal(t, uint(7), ev.ActorID)
		assert.Equal(t, "alice@example.com", ev.ActorEmail)
		assert.Equal(t, 5*time.Millisecond, ev.Duration)
		assert.False(t, ev.StartedAt.IsZero())
	})

	t.Run("失败时不分发", func(t *testing.T) {
		exec, rec := newExecutor(t)

		err := exec.Run(context.Background(), "book.borrow", actor, func(ctx context.Context) (event.Event, error) {
			return event.New(event.KindBookBorrowed, "borrowed"), apperrors.New(apperrors.ErrCodeBookBorrowed, "已借出")
		})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBookBorrowed))
		assert.Empty(t, rec.all())
	})

	t.Run("提交失败时不分发", func(t *testing.T) {
		rec := &recorder{}
		exec := NewExecutor(failingTx{}, rec, nil)

		err := exec.Run(context.Background(), "user.register", actor, func(ctx context.Context) (event.Event, error) {
			return event.New(event.KindUserCreated, "created"), nil
		})
		assert.ErrorIs(t, err, errCommit)
		assert.Empty(t, rec.all())
	})

	t.Run("fn在事务内执行", func(t *testing.T) {
		exec, _ := newExecutor(t)
		store := exec.tx.(*memory.Store)

		err := exec.Run(context.Background(), "tx", actor, func(ctx context.Context) (event.Event, error) {
			// 嵌套事务直接加入外层事务
			called := false
			inner := store.Transaction(ctx, func(context.Context) error {
				called = true
				return nil
			})
			assert.True(t, called)
			return event.Event{}, inner
		})
		require.NoError(t, err)
	})
}

func TestExecutor_Query(t *testing.T) {
	exec, rec := newExecutor(t)

	t.Run("成功产生查询性能记录", func(t *testing.T) {
		err := exec.Query(context.Background(), "book.list", user.Anonymous(), func(ctx context.Context) error {
			return nil
		})
		require.NoError(t, err)

		events := rec.all()
		require.Len(t, events, 1)
		assert.Equal(t, event.KindQueried, events[0].Kind)
		assert.Equal(t, "book.list", events[0].Operation)
		assert.Empty(t, events[0].Info)
	})

	t.Run("失败不产生记录", func(t *testing.T) {
		before := len(rec.all())
		err := exec.Query(context.Background(), "book.list", user.Anonymous(), func(ctx context.Context) error {
			return apperrors.ErrInvalidPage
		})
		assert.Error(t, err)
		assert.Len(t, rec.all(), before)
	})
}

func TestNewExecutor_NilDispatcher(t *testing.T) {
	exec := NewExecutor(memory.NewStore(), nil, nil)
	assert.NotPanics(t, func() {
		_ = exec.Run(context.Background(), "noop", actor, func(ctx context.Context) (event.Event, error) {
			return event.Event{}, nil
		})
	})
}

var errCommit = apperrors.New(apperrors.ErrCodeDatabaseError, "提交失败")

// failingTx fn成功但提交失败
type failingTx struct{}

func (failingTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return errCommit
}
