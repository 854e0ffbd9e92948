package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/Astemirdum/library-desk/library/internal/search"
	"github.com/Astemirdum/library-desk/pkg/kafka"
)

func (s *Service) AddBook(ctx context.Context, sess model.Session, req model.AddBookRequest) (model.Book, error) {
	if !sess.IsAdmin {
		return model.Book{}, errors.Wrap(errs.ErrNotPermitted, "only the admin can add books")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	req.Genre = strings.TrimSpace(req.Genre)
	if err := s.check(req); err != nil {
		return model.Book{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[req.ID]; ok {
		return model.Book{}, errors.Wrapf(errs.ErrInvalidInput, "book id %d already exists", req.ID)
	}

	b := model.Book{
		ID:      req.ID,
		Title:   req.Title,
		Author:  req.Author,
		Genre:   req.Genre,
		Reviews: []model.Review{},
	}
	s.books = append(s.books, b)
	s.index[b.ID] = len(s.books) - 1
	if err := s.commit(ctx, func() {
		s.books = s.books[:len(s.books)-1]
		delete(s.index, b.ID)
	}); err != nil {
		return model.Book{}, err
	}

	s.log.Info("book added", zap.Int("bookID", b.ID), zap.String("title", b.Title))
	s.publish(sess, kafka.EventCirculation{BookID: b.ID, EventType: kafka.EventBookAdded})
	return b.Clone(), nil
}

func (s *Service) ListBooks(_ context.Context) []model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	books := make([]model.Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b.Clone())
	}
	return books
}

func (s *Service) GetBook(_ context.Context, id int) (model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.book(id)
	if err != nil {
		return model.Book{}, err
	}
	return b.Clone(), nil
}

// FindByTitle matches the whole title, ignoring case and surrounding spaces.
func (s *Service) FindByTitle(_ context.Context, title string) (model.Book, error) {
	title = strings.TrimSpace(title)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if strings.EqualFold(b.Title, title) {
			return b.Clone(), nil
		}
	}
	return model.Book{}, errors.Wrapf(errs.ErrNotFound, "title %q", title)
}

// Search returns books whose titles approximately contain query, best match first.
func (s *Service) Search(_ context.Context, query string) []model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := search.Rank(query, s.books)
	books := make([]model.Book, 0, len(matches))
	for _, m := range matches {
		books = append(books, s.books[s.index[m.BookID]].Clone())
	}
	s.log.Debug("search", zap.String("query", query), zap.Int("matches", len(matches)))
	return books
}
