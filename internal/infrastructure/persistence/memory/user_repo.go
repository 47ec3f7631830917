package memory

import (
	"context"
	"time"

	"github.com/xiebiao/library/internal/domain/page"
	"github.com/xiebiao/library/internal/domain/user"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

type userRepository struct {
	s *Store
}

// NewUserRepository 创建用户仓储
func NewUserRepository(s *Store) user.Repository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	for _, existing := range r.s.allUsers(ctx) {
		if existing.Username == u.Username {
			return apperrors.ErrUsernameDuplicate
		}
		if existing.Email == u.Email {
			return apperrors.ErrEmailDuplicate
		}
	}

	now := time.Now()
	row := userRow{
		ID:        r.s.allocID("users"),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.Password,
		Role:      int(u.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.s.write(ctx, func(t *tx) { t.users[row.ID] = row }); err != nil {
		return err
	}

	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	row, ok := r.s.userRow(ctx, id)
	if !ok {
		return nil, user.NotFoundByID(id)
	}
	return toUserEntity(row), nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	for _, row := range r.s.allUsers(ctx) {
		if row.Username == username {
			return toUserEntity(row), nil
		}
	}
	return nil, user.NotFoundByUsername(username)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, row := range r.s.allUsers(ctx) {
		if row.Email == email {
			return toUserEntity(row), nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *userRepository) List(ctx context.Context, req page.Request) ([]*user.User, int64, error) {
	rows := r.s.allUsers(ctx)
	total := int64(len(rows))

	start := req.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + req.Size
	if end > len(rows) {
		end = len(rows)
	}

	users := make([]*user.User, 0, end-start)
	for _, row := range rows[start:end] {
		users = append(users, toUserEntity(row))
	}
	return users, total, nil
}

func toUserEntity(row userRow) *user.User {
	return &user.User{
		ID:        row.ID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Username:  row.Username,
		Email:     row.Email,
		Password:  row.Password,
		Role:      user.Role(row.Role),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
