package user

import (
	"fmt"
	"time"
)

// User 用户实体（聚合根）
// 说明：
// 1. Password为bcrypt哈希值
// 2. 借阅的图书集合不在实体上维护，由books.borrower_id反查，保证两侧天然一致
// 3. 订阅的分类集合由category仓储维护
type User struct {
	ID        uint
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string // bcrypt哈希值
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser 创建新用户（工厂方法）
// hashedPassword必须是bcrypt加密后的密码
func NewUser(firstName, lastName, username, email, hashedPassword string, role Role) *User {
	now := time.Now()
	return &User{
		FirstName: firstName,
		LastName:  lastName,
		Username:  username,
		Email:     email,
		Password:  hashedPassword,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Identity 用户对应的调用者身份
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// FullName 姓名
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) String() string {
	return fmt.Sprintf("User(id=%d, username=%s, role=%s)", u.ID, u.Username, u.Role)
}
