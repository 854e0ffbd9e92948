package kafka

import (
	"strconv"
	"time"
)

type EventType string

const (
	EventBookAdded   EventType = "BOOK_ADDED"
	EventIssued      EventType = "ISSUED"
	EventQueued      EventType = "QUEUED"
	EventReturned    EventType = "RETURNED"
	EventNextInLine  EventType = "NEXT_IN_LINE"
	EventReviewAdded EventType = "REVIEW_ADDED"
)

// EventCirculation is published to CirculationTopic after every desk operation that changes state.
type EventCirculation struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"sessionId"`
	UserName   string    `json:"username"`
	BookID     int       `json:"bookId"`
	EventType  EventType `json:"eventType"`
	Fine       float64   `json:"fine,omitempty"`
	NextInLine string    `json:"nextInLine,omitempty"`
	Position   int       `json:"position,omitempty"`
	Rating     int       `json:"rating,omitempty"`
}

// Key keeps all events of one book on the same partition.
func (e EventCirculation) Key() string {
	return strconv.Itoa(e.BookID)
}
