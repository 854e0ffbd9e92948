package handler

import (
	"context"

	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/Astemirdum/library-desk/library/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LibraryService interface {
	AddBook(ctx context.Context, sess model.Session, req model.AddBookRequest) (model.Book, error)
	ListBooks(ctx context.Context) []model.Book
	GetBook(ctx context.Context, id int) (model.Book, error)
	FindByTitle(ctx context.Context, title string) (model.Book, error)
	Search(ctx context.Context, query string) []model.Book
	Issue(ctx context.Context, sess model.Session, bookID int) (model.IssueResult, error)
	Return(ctx context.Context, sess model.Session, bookID int) (model.ReturnResult, error)
	History(ctx context.Context, sess model.Session) []model.Book
	Waitlist(ctx context.Context, bookID int) ([]string, error)
	AddReview(ctx context.Context, sess model.Session, req model.CreateReview) (model.Review, error)
}

var _ LibraryService = (*service.Service)(nil)
