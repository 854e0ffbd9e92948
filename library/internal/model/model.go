package model

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusIssued    Status = "ISSUED"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Book struct {
	ID      int      `json:"id"`
	Title   string   `json:"title"`
	Author  string   `json:"author"`
	Genre   string   `json:"genre"`
	Loan    *Loan    `json:"loan,omitempty"`
	Reviews []Review `json:"reviews"`
}

// Loan is present only while the book is issued; holder and timestamp live and die together.
type Loan struct {
	Holder   string    `json:"holder"`
	IssuedAt time.Time `json:"issuedAt"`
}

type Review struct {
	Reviewer string `json:"reviewer"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

func (b Book) Status() Status {
	if b.Loan != nil {
		return StatusIssued
	}
	return StatusAvailable
}

func (b Book) IsIssued() bool {
	return b.Loan != nil
}

// AverageRating reports false when the book has no reviews yet.
func (b Book) AverageRating() (float64, bool) {
	if len(b.Reviews) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range b.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(b.Reviews)), true
}

// Clone returns a copy that shares no mutable state with b.
func (b Book) Clone() Book {
	c := b
	if b.Loan != nil {
		loan := *b.Loan
		c.Loan = &loan
	}
	c.Reviews = make([]Review, len(b.Reviews))
	copy(c.Reviews, b.Reviews)
	return c
}

// Waitlist maps a book id to the FIFO queue of users waiting for it.
type Waitlist map[int][]string

func (w Waitlist) Push(bookID int, user string) int {
	w[bookID] = append(w[bookID], user)
	return len(w[bookID])
}

func (w Waitlist) Pop(bookID int) (string, bool) {
	q := w[bookID]
	if len(q) == 0 {
		return "", false
	}
	head := q[0]
	if len(q) == 1 {
		delete(w, bookID)
	} else {
		w[bookID] = q[1:]
	}
	return head, true
}

func (w Waitlist) Queue(bookID int) []string {
	q := make([]string, len(w[bookID]))
	copy(q, w[bookID])
	return q
}

// BorrowingHistory maps a user to the ids of the books they were issued, oldest first.
type BorrowingHistory map[string][]int

func (h BorrowingHistory) Append(user string, bookID int) {
	h[user] = append(h[user], bookID)
}

func (h BorrowingHistory) Of(user string) []int {
	ids := make([]int, len(h[user]))
	copy(ids, h[user])
	return ids
}

type Session struct {
	ID      uuid.UUID
	User    string
	IsAdmin bool
}

func NewSession(user string, isAdmin bool) Session {
	return Session{
		ID:      uuid.New(),
		User:    user,
		IsAdmin: isAdmin,
	}
}

type AddBookRequest struct {
	ID     int    `json:"id" validate:"gt=0"`
	Title  string `json:"title" validate:"required,singleline"`
	Author string `json:"author" validate:"required,singleline"`
	Genre  string `json:"genre" validate:"required,singleline"`
}

type CreateReview struct {
	BookID  int    `json:"bookId"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"singleline"`
}

type Outcome string

const (
	OutcomeIssued Outcome = "ISSUED"
	OutcomeQueued Outcome = "QUEUED"
)

type IssueResult struct {
	Outcome Outcome `json:"outcome"`
	BookID  int     `json:"bookId"`
	// Position is the 1-based place in the waitlist when Outcome is QUEUED.
	Position int `json:"position,omitempty"`
}

type ReturnResult struct {
	BookID     int     `json:"bookId"`
	Fine       float64 `json:"fine"`
	NextInLine string  `json:"nextInLine,omitempty"`
}

func (r ReturnResult) HasNextInLine() bool {
	return r.NextInLine != ""
}

type BookView struct {
	Book          `json:",inline"`
	Status        Status   `json:"status"`
	AverageRating *float64 `json:"averageRating,omitempty"`
}

func NewBookView(b Book) BookView {
	v := BookView{Book: b, Status: b.Status()}
	if avg, ok := b.AverageRating(); ok {
		v.AverageRating = &avg
	}
	return v
}

type ListBooks struct {
	TotalElements int        `json:"totalElements"`
	Items         []BookView `json:"items"`
}

type WaitlistView struct {
	BookID int      `json:"bookId"`
	Queue  []string `json:"queue"`
}
