package user

import (
	"strings"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Role 用户角色（封闭枚举）
type Role int

const (
	RoleUnknown Role = iota
	RoleCustomer
	RoleEmployee
)

// rolePrefix 兼容"ROLE_EMPLOYEE"这种带前缀的写法
const rolePrefix = "ROLE_"

// ParseRole 解析角色字符串（大小写不敏感，可带ROLE_前缀）
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, rolePrefix)
	switch name {
	case "EMPLOYEE":
		return RoleEmployee, nil
	case "CUSTOMER":
		return RoleCustomer, nil
	}
	return RoleUnknown, apperrors.Newf(apperrors.ErrCodeInvalidRole, "无效的角色: %s", s)
}

// String 角色名（也用于JWT Claims）
func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "EMPLOYEE"
	case RoleCustomer:
		return "CUSTOMER"
	default:
		return "UNKNOWN"
	}
}

// IsEmployeeTier 员工级别角色跳过归属校验
func (r Role) IsEmployeeTier() bool {
	return r == RoleEmployee
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleCustomer
}
