package category_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/event"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

func setup(t *testing.T) (category.Service, category.Repository, *user.User) {
	t.Helper()
	s := memory.NewStore()
	users := memory.NewUserRepository(s)
	repo := memory.NewCategoryRepository(s)

	alice := user.NewUser("爱丽丝", "王", "alice", "alice@example.com", "hashed", user.RoleCustomer)
	require.NoError(t, users.Create(context.Background(), alice))
	return category.NewService(repo, users), repo, alice
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	c, ev, err := svc.Create(ctx, " 科幻 ")
	require.NoError(t, err)
	assert.Equal(t, "科幻", c.Name)
	assert.Equal(t, event.KindCategoryCreated, ev.Kind)

	_, _, err = svc.Create(ctx, "科幻")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCategoryDuplicate))

	_, _, err = svc.Create(ctx, "")
	assert.True(t, apperrors.IsInvalidArgument(err))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("重复订阅是空操作", func(t *testing.T) {
		svc, repo, alice := setup(t)
		c, _, err := svc.Create(ctx, "科幻")
		require.NoError(t, err)

		ev, err := svc.Subscribe(ctx, "alice", c.ID)
		require.NoError(t, err)
		assert.Equal(t, event.KindCategorySubscribed, ev.Kind)

		_, err = svc.Subscribe(ctx, "alice", c.ID)
		require.NoError(t, err)

		subs, err := repo.ListSubscribers(ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, subs, 1)

		mine, err := svc.Subscriptions(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 1)
	})

	t.Run("用户不存在", func(t *testing.T) {
		svc, _, _ := setup(t)
		c, _, err := svc.Create(ctx, "科幻")
		require.NoError(t, err)

		_, err = svc.Subscribe(ctx, "ghost", c.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUserNotFound))
	})

	t.Run("分类不存在", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.Subscribe(ctx, "alice", 404)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCategoryNotFound))
	})
}
