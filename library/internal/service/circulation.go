package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/Astemirdum/library-desk/pkg/kafka"
)

// FinePolicy charges RatePerDay for every day a loan runs past GraceDays.
type FinePolicy struct {
	GraceDays  float64
	RatePerDay float64
}

func DefaultFinePolicy() FinePolicy {
	return FinePolicy{GraceDays: 7, RatePerDay: 5}
}

// Fine counts fractional days: a loan returned 10.5 days after issue is charged
// for 3.5 days under the default policy.
func (p FinePolicy) Fine(issuedAt, returnedAt time.Time) float64 {
	days := returnedAt.Sub(issuedAt).Hours() / 24
	if days <= p.GraceDays {
		return 0
	}
	return (days - p.GraceDays) * p.RatePerDay
}

// Issue lends an available book to the session user. An issued book is not an error:
// the user joins the end of its waitlist instead and nothing is persisted.
func (s *Service) Issue(ctx context.Context, sess model.Session, bookID int) (model.IssueResult, error) {
	if err := requireUser(sess); err != nil {
		return model.IssueResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.book(bookID)
	if err != nil {
		return model.IssueResult{}, err
	}

	if b.IsIssued() {
		pos := s.waitlist.Push(bookID, sess.User)
		s.log.Info("book queued",
			zap.Int("bookID", bookID), zap.String("user", sess.User), zap.Int("position", pos))
		s.publish(sess, kafka.EventCirculation{BookID: bookID, EventType: kafka.EventQueued, Position: pos})
		return model.IssueResult{Outcome: model.OutcomeQueued, BookID: bookID, Position: pos}, nil
	}

	prevHistory, hadHistory := s.history[sess.User]
	b.Loan = &model.Loan{Holder: sess.User, IssuedAt: s.clock()}
	s.history.Append(sess.User, bookID)
	if err := s.commit(ctx, func() {
		s.books[s.index[bookID]].Loan = nil
		if hadHistory {
			s.history[sess.User] = prevHistory
		} else {
			delete(s.history, sess.User)
		}
	}); err != nil {
		return model.IssueResult{}, err
	}

	s.log.Info("book issued", zap.Int("bookID", bookID), zap.String("user", sess.User))
	s.publish(sess, kafka.EventCirculation{BookID: bookID, EventType: kafka.EventIssued})
	return model.IssueResult{Outcome: model.OutcomeIssued, BookID: bookID}, nil
}

// Return closes the session user's loan, computes the fine and hands the book's
// waitlist head back to the caller. The head is only notified, not issued the book.
func (s *Service) Return(ctx context.Context, sess model.Session, bookID int) (model.ReturnResult, error) {
	if err := requireUser(sess); err != nil {
		return model.ReturnResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.book(bookID)
	if err != nil {
		return model.ReturnResult{}, err
	}
	if !b.IsIssued() {
		return model.ReturnResult{}, errors.Wrapf(errs.ErrNotFound, "book %d is not issued", bookID)
	}
	if b.Loan.Holder != sess.User {
		return model.ReturnResult{}, errors.Wrapf(errs.ErrNotPermitted, "book %d is held by another user", bookID)
	}

	loan := b.Loan
	fine := s.fines.Fine(loan.IssuedAt, s.clock())
	b.Loan = nil
	if err := s.commit(ctx, func() {
		s.books[s.index[bookID]].Loan = loan
	}); err != nil {
		return model.ReturnResult{}, err
	}

	res := model.ReturnResult{BookID: bookID, Fine: fine}
	res.NextInLine, _ = s.waitlist.Pop(bookID)

	s.log.Info("book returned",
		zap.Int("bookID", bookID), zap.String("user", sess.User), zap.Float64("fine", fine))
	s.publish(sess, kafka.EventCirculation{BookID: bookID, EventType: kafka.EventReturned, Fine: fine})
	if res.HasNextInLine() {
		s.publish(sess, kafka.EventCirculation{BookID: bookID, EventType: kafka.EventNextInLine, NextInLine: res.NextInLine})
	}
	return res, nil
}

// History lists the books issued to the session user in this process, oldest first.
func (s *Service) History(_ context.Context, sess model.Session) []model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.history.Of(sess.User)
	books := make([]model.Book, 0, len(ids))
	for _, id := range ids {
		if b, err := s.book(id); err == nil {
			books = append(books, b.Clone())
		}
	}
	return books
}

func (s *Service) Waitlist(_ context.Context, bookID int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.book(bookID); err != nil {
		return nil, err
	}
	return s.waitlist.Queue(bookID), nil
}
