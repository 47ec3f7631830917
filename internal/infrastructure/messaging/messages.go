// Package messaging 通知消息投递
//
// 一个提交成功的领域事件会被拆成以下消息，发布到同一个Topic Exchange：
//
//	info.<kind>              审计/通知文本        → info-queue
//	email.<kind>             每个分类订阅者一条    → email-info-queue
//	performance.<operation>  用例耗时记录         → performance-info-queue
package messaging

import (
	"time"

	"github.com/xiebiao/library/internal/domain/event"
)

// 路由键前缀（队列按前缀.#绑定）
const (
	PrefixInfo        = "info"
	PrefixEmail       = "email"
	PrefixPerformance = "performance"
)

// InfoMessage 审计/通知文本
type InfoMessage struct {
	Kind       string    `json:"kind"`
	Info       string    `json:"info"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EmailMessage 新书入库邮件通知（每个订阅者一条）
type EmailMessage struct {
	BookID        uint   `json:"bookId"`
	BookTitle     string `json:"book_title"`
	BookAuthor    string `json:"book_author"`
	BookCategory  string `json:"book_category"`
	Email         string `json:"email"`
	UserFirstName string `json:"user_firstName"`
	UserLastName  string `json:"user_lastName"`
}

// PerformanceInfo 用例耗时记录
// ID为调用者用户ID（匿名为0），ExecutionTime单位毫秒
type PerformanceInfo struct {
	ID              uint      `json:"id"`
	Email           string    `json:"email"`
	ExecutionTime   int64     `json:"executionTime"`
	ClassMethodName string    `json:"classMethodName"`
	MethodStartTime time.Time `json:"methodStartTime"`
}

// Message 待发布的一条消息
type Message struct {
	RoutingKey string
	Body       interface{}
}

// Build 把事件拆成待发布的消息
// 1. Info非空时发送一条info消息
// 2. 图书创建且有订阅者时，每个订阅者一条email消息
// 3. 填写了Operation时发送一条性能记录
func Build(ev event.Event) []Message {
	var out []Message

	if ev.Info != "" {
		at := ev.StartedAt.Add(ev.Duration)
		if ev.StartedAt.IsZero() {
			at = time.Now()
		}
		out = append(out, Message{
			RoutingKey: PrefixInfo + "." + string(ev.Kind),
			Body:       InfoMessage{Kind: string(ev.Kind), Info: ev.Info, OccurredAt: at},
		})
	}

	if ev.HasFanout() {
		for _, r := range ev.Recipients {
			out = append(out, Message{
				RoutingKey: PrefixEmail + "." + string(ev.Kind),
				Body: EmailMessage{
					BookID:        ev.Book.ID,
					BookTitle:     ev.Book.Title,
					BookAuthor:    ev.Book.Author,
					BookCategory:  ev.Book.Category,
					Email:         r.Email,
					UserFirstName: r.FirstName,
					UserLastName:  r.LastName,
				},
			})
		}
	}

	if ev.Operation != "" {
		out = append(out, Message{
			RoutingKey: PrefixPerformance + "." + ev.Operation,
			Body: PerformanceInfo{
				ID:              ev.ActorID,
				Email:           ev.ActorEmail,
				ExecutionTime:   ev.Duration.Milliseconds(),
				ClassMethodName: ev.Operation,
				MethodStartTime: ev.StartedAt,
			},
		})
	}
	return out
}
