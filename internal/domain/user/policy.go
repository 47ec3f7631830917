package user

import (
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Identity 调用者身份
// 由接口层（JWT中间件、CLI）构造后显式传入每个调用，领域层不读取任何全局上下文
type Identity struct {
	UserID   uint
	Username string
	Email    string
	Role     Role
}

// Anonymous 未登录调用者
func Anonymous() Identity {
	return Identity{}
}

// IsAnonymous 是否未登录
func (i Identity) IsAnonymous() bool {
	return i.Username == ""
}

// CanAccess 判断调用者能否访问归属于ownerUsername的资源
// 规则：员工级别总是通过；顾客只能访问自己的资源
func CanAccess(actor Identity, ownerUsername string) bool {
	if actor.Role.IsEmployeeTier() {
		return true
	}
	if actor.Role != RoleCustomer || actor.Username == "" {
		return false
	}
	return actor.Username == ownerUsername
}

// RequireEmployee 员工专属操作的角色校验
func RequireEmployee(actor Identity) error {
	if !actor.Role.IsEmployeeTier() {
		return apperrors.ErrForbidden
	}
	return nil
}

// RequireRole 要求调用者为指定角色之一
func RequireRole(actor Identity, roles ...Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperrors.ErrForbidden
}
