package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/model"
	libraryRepo "github.com/Astemirdum/library-desk/library/internal/repository"
	"github.com/Astemirdum/library-desk/pkg/kafka"
	"github.com/Astemirdum/library-desk/pkg/validate"
)

// Service owns the in-memory catalog, waitlists and borrowing history of one desk session.
// Every mutation is written through repo before it returns; a failed write undoes it.
type Service struct {
	mu       sync.Mutex
	log      *zap.Logger
	repo     libraryRepo.Repository
	events   kafka.Enqueuer
	validate *validator.Validate
	fines    FinePolicy
	now      func() time.Time

	books    []model.Book
	index    map[int]int
	waitlist model.Waitlist
	history  model.BorrowingHistory
}

type Option func(s *Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithEvents(e kafka.Enqueuer) Option {
	return func(s *Service) {
		s.events = e
	}
}

func WithFinePolicy(p FinePolicy) Option {
	return func(s *Service) {
		s.fines = p
	}
}

func NewService(repo libraryRepo.Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:      log.Named("service"),
		repo:     repo,
		events:   kafka.NopEnqueuer{},
		validate: validate.New(),
		fines:    DefaultFinePolicy(),
		now:      time.Now,
		books:    []model.Book{},
		index:    map[int]int{},
		waitlist: model.Waitlist{},
		history:  model.BorrowingHistory{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the catalog with the stored snapshot. Waitlists and history start empty.
func (s *Service) Load(ctx context.Context) error {
	books, err := s.repo.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	index := make(map[int]int, len(books))
	for i, b := range books {
		if _, dup := index[b.ID]; dup {
			return errors.Wrapf(errs.ErrCorruptStore, "duplicate book id %d", b.ID)
		}
		index[b.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = books
	s.index = index
	s.waitlist = model.Waitlist{}
	s.history = model.BorrowingHistory{}
	s.log.Info("catalog loaded", zap.Int("books", len(books)))
	return nil
}

// book must be called with mu held; the pointer is valid until the next append to s.books.
func (s *Service) book(id int) (*model.Book, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, errors.Wrapf(errs.ErrNotFound, "book %d", id)
	}
	return &s.books[i], nil
}

func (s *Service) commit(ctx context.Context, undo func()) error {
	if err := s.repo.Save(ctx, s.books); err != nil {
		undo()
		s.log.Error("save catalog", zap.Error(err))
		return errors.Wrap(err, "save catalog")
	}
	return nil
}

// clock truncates to whole seconds, the precision the catalog is stored with.
func (s *Service) clock() time.Time {
	return time.Unix(s.now().Unix(), 0)
}

func (s *Service) publish(sess model.Session, e kafka.EventCirculation) {
	e.Timestamp = s.now().UTC()
	e.SessionID = sess.ID.String()
	e.UserName = sess.User
	if err := s.events.Enqueue(kafka.CirculationTopic, e.Key(), e); err != nil {
		s.log.Warn("publish circulation event",
			zap.String("type", string(e.EventType)), zap.Int("bookID", e.BookID), zap.Error(err))
	}
}

func (s *Service) check(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(errs.ErrInvalidInput, err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := fmt.Sprintf("%s fails %s", strings.ToLower(fe.Field()), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return errors.Wrap(errs.ErrInvalidInput, strings.Join(msgs, ", "))
}

func requireUser(sess model.Session) error {
	if strings.TrimSpace(sess.User) == "" {
		return errors.Wrap(errs.ErrInvalidInput, "session has no user")
	}
	return nil
}
