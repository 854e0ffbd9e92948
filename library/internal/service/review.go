package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/Astemirdum/library-desk/pkg/kafka"
)

func (s *Service) AddReview(ctx context.Context, sess model.Session, req model.CreateReview) (model.Review, error) {
	if err := requireUser(sess); err != nil {
		return model.Review{}, err
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if err := s.check(req); err != nil {
		return model.Review{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.book(req.BookID)
	if err != nil {
		return model.Review{}, err
	}

	rv := model.Review{Reviewer: sess.User, Rating: req.Rating, Comment: req.Comment}
	n := len(b.Reviews)
	b.Reviews = append(b.Reviews, rv)
	if err := s.commit(ctx, func() {
		rb := &s.books[s.index[req.BookID]]
		rb.Reviews = rb.Reviews[:n]
	}); err != nil {
		return model.Review{}, err
	}

	s.log.Info("review added",
		zap.Int("bookID", req.BookID), zap.String("user", sess.User), zap.Int("rating", req.Rating))
	s.publish(sess, kafka.EventCirculation{BookID: req.BookID, EventType: kafka.EventReviewAdded, Rating: req.Rating})
	return rv, nil
}

// AverageRating reports false when the book has no reviews.
func (s *Service) AverageRating(_ context.Context, bookID int) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.book(bookID)
	if err != nil {
		return 0, false, err
	}
	avg, ok := b.AverageRating()
	return avg, ok, nil
}
