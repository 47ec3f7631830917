package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Session 登录会话
type Session struct {
	UserID    uint
	Username  string
	Role      string
	ClientIP  string
	RefreshID string // 本次登录签发的Refresh Token的jti
	LoginAt   time.Time
}

// SessionStore 会话存储
// 设计说明：
// 1. 使用Redis存储用户登录会话
// 2. 支持JWT黑名单（用户登出后Access Token立即失效）
// 3. Key设计：library:session:{user_id}、library:blacklist:{sha256(token)}
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// SaveSession 保存用户会话，过期时间与Refresh Token一致
// HSet与Expire放在同一个事务管道里，避免留下不过期的key
func (s *SessionStore) SaveSession(ctx context.Context, sess Session, ttl time.Duration) error {
	key := sessionKey(sess.UserID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"username":   sess.Username,
			"role":       sess.Role,
			"client_ip":  sess.ClientIP,
			"refresh_id": sess.RefreshID,
			"login_at":   sess.LoginAt.Unix(),
		})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "保存会话失败")
	}
	return nil
}

// GetSession 获取用户会话
func (s *SessionStore) GetSession(ctx context.Context, userID uint) (*Session, error) {
	result, err := s.client.HGetAll(ctx, sessionKey(userID)).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "获取会话失败")
	}
	if len(result) == 0 {
		return nil, apperrors.ErrUnauthorized
	}
	return parseSession(userID, result), nil
}

// DeleteSession 删除用户会话（用于登出）
func (s *SessionStore) DeleteSession(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return apperrors.Wrap(err, "删除会话失败")
	}
	return nil
}

// AddToBlacklist 将Token加入黑名单，过期时间与Access Token一致
func (s *SessionStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, blacklistKey(token), "revoked", ttl).Err(); err != nil {
		return apperrors.Wrap(err, "添加Token到黑名单失败")
	}
	return nil
}

// IsInBlacklist 检查Token是否在黑名单中
func (s *SessionStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "检查黑名单失败")
	}
	return exists > 0, nil
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("library:session:%d", userID)
}

// blacklistKey Token较长，取摘要作为key
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "library:blacklist:" + hex.EncodeToString(sum[:])
}

func parseSession(userID uint, fields map[string]string) *Session {
	sess := &Session{
		UserID:    userID,
		Username:  fields["username"],
		Role:      fields["role"],
		ClientIP:  fields["client_ip"],
		RefreshID: fields["refresh_id"],
	}
	if ts, err := strconv.ParseInt(fields["login_at"], 10, 64); err == nil {
		sess.LoginAt = time.Unix(ts, 0)
	}
	return sess
}
