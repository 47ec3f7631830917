// Package event 领域事件
//
// 领域服务不直接调用消息发送方，而是把待发送的事件随结果一起返回，
// 由应用层在事务提交成功后交给Dispatcher（事务回滚则事件被丢弃）。
package event

import (
	"context"
	"time"
)

// Kind 事件类型（同时用作消息路由键）
type Kind string

const (
	KindUserCreated        Kind = "user.created"
	KindCategoryCreated    Kind = "category.created"
	KindCategorySubscribed Kind = "category.subscribed"
	KindBookCreated        Kind = "book.created"
	KindBookBlocked        Kind = "book.blocked"
	KindBookBorrowed       Kind = "book.borrowed"
	KindBookReturned       Kind = "book.returned"
	// KindQueried 只读操作，只产生性能记录
	KindQueried Kind = "query"
)

// Recipient 邮件通知接收人（分类订阅者）
type Recipient struct {
	Email     string
	FirstName string
	LastName  string
}

// BookSnapshot 事件中携带的图书快照
type BookSnapshot struct {
	ID       uint
	Title    string
	Author   string
	Category string
}

// Event 领域事件
type Event struct {
	Kind Kind
	// Info 审计/通知文本，为空时不发送info消息
	Info string
	// Book 与Recipients只在图书创建时填充，用于逐个订阅者发送邮件通知
	Book       *BookSnapshot
	Recipients []Recipient

	// 以下字段由应用层在提交后填写（性能记录）
	Operation  string
	ActorID    uint
	ActorEmail string
	StartedAt  time.Time
	Duration   time.Duration
}

// New 创建带审计文本的事件
func New(kind Kind, info string) Event {
	return Event{Kind: kind, Info: info}
}

// HasFanout 是否需要逐个订阅者发送邮件
func (e Event) HasFanout() bool {
	return e.Book != nil && len(e.Recipients) > 0
}

// Dispatcher 事件分发边界
// 实现方必须是尽力而为的：发送失败只记录日志，不能影响已经提交的业务操作
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}
