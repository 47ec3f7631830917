package book

import (
	"github.com/xiebiao/library/internal/domain/book"
)

// BookResponse 图书DTO
// 未借出时borrower、from_date、to_date为空
type BookResponse struct {
	ID       uint          `json:"id"`
	Title    string        `json:"title"`
	Author   string        `json:"author"`
	Blocked  bool          `json:"blocked"`
	State    string        `json:"state"`
	Category string        `json:"category,omitempty"`
	Borrower *BorrowerInfo `json:"borrower,omitempty"`
	FromDate string        `json:"from_date,omitempty"`
	ToDate   string        `json:"to_date,omitempty"`
}

// BorrowerInfo 借阅人
type BorrowerInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// toResponse 领域实体 → DTO
func toResponse(b *book.Book) *BookResponse {
	resp := &BookResponse{
		ID:       b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Blocked:  b.Blocked,
		State:    b.State.String(),
		Category: b.CategoryName(),
	}
	if b.Borrower != nil {
		resp.Borrower = &BorrowerInfo{ID: b.Borrower.ID, Username: b.Borrower.Username}
	}
	if b.FromDate != nil {
		resp.FromDate = b.FromDate.Format(book.DateLayout)
	}
	if b.ToDate != nil {
		resp.ToDate = b.ToDate.Format(book.DateLayout)
	}
	return resp
}

func toResponses(books []*book.Book) []*BookResponse {
	list := make([]*BookResponse, 0, len(books))
	for _, b := range books {
		list = append(list, toResponse(b))
	}
	return list
}
