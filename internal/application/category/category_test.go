package category_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcategory "github.com/xiebiao/library/internal/application/category"
	"github.com/xiebiao/library/internal/application/shared"
	"github.com/xiebiao/library/internal/domain/category"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

func TestCategoryUseCases(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	svc := category.NewService(memory.NewCategoryRepository(store), users)
	exec := shared.NewExecutor(store, nil, nil)

	create := appcategory.NewCreateCategoryUseCase(exec, svc)
	list := appcategory.NewListCategoriesUseCase(exec, svc)
	subscribe := appcategory.NewSubscribeUseCase(exec, svc)
	subscriptions := appcategory.NewListSubscriptionsUseCase(exec, svc)

	staff := user.NewUser("张", "三", "staff", "staff@example.com", "hashed", user.RoleEmployee)
	reader := user.NewUser("李", "四", "reader", "reader@example.com", "hashed", user.RoleCustomer)
	require.NoError(t, users.Create(ctx, staff))
	require.NoError(t, users.Create(ctx, reader))

	t.Run("顾客不能创建分类", func(t *testing.T) {
		_, err := create.Execute(ctx, appcategory.CreateCategoryRequest{Actor: reader.Identity(), Name: "科幻"})
		assert.True(t, apperrors.IsAccessDenied(err))
	})

	c, err := create.Execute(ctx, appcategory.CreateCategoryRequest{Actor: staff.Identity(), Name: "科幻"})
	require.NoError(t, err)

	t.Run("重复名称", func(t *testing.T) {
		_, err := create.Execute(ctx, appcategory.CreateCategoryRequest{Actor: staff.Identity(), Name: "科幻"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCategoryDuplicate))
	})

	t.Run("匿名查询列表", func(t *testing.T) {
		all, err := list.Execute(ctx, user.Anonymous())
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "科幻", all[0].Name)
	})

	t.Run("重复订阅只保留一条", func(t *testing.T) {
		require.NoError(t, subscribe.Execute(ctx, appcategory.SubscribeRequest{Actor: reader.Identity(), CategoryID: c.ID}))
		require.NoError(t, subscribe.Execute(ctx, appcategory.SubscribeRequest{Actor: reader.Identity(), CategoryID: c.ID}))

		mine, err := subscriptions.Execute(ctx, reader.Identity())
		require.NoError(t, err)
		assert.Len(t, mine, 1)
	})

	t.Run("分类不存在", func(t *testing.T) {
		err := subscribe.Execute(ctx, appcategory.SubscribeRequest{Actor: reader.Identity(), CategoryID: 404})
		assert.True(t, apperrors.IsNotFound(err))
	})
}
