package repository

import (
	"context"
	"time"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/pkg/errors"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

// Repository loads and stores the whole catalog snapshot in catalog order.
type Repository interface {
	Load(ctx context.Context) ([]model.Book, error)
	Save(ctx context.Context, books []model.Book) error
}

func newLoan(issued bool, holder string, issuedAt int64) (*model.Loan, error) {
	switch {
	case issued && holder != "" && issuedAt != 0:
		return &model.Loan{Holder: holder, IssuedAt: time.Unix(issuedAt, 0)}, nil
	case !issued && holder == "" && issuedAt == 0:
		return nil, nil
	default:
		return nil, errors.Wrapf(errs.ErrCorruptStore,
			"issued=%t holder=%q issuedAt=%d disagree", issued, holder, issuedAt)
	}
}

func loanFields(loan *model.Loan) (issued bool, holder string, issuedAt int64) {
	if loan == nil {
		return false, "", 0
	}
	return true, loan.Holder, loan.IssuedAt.Unix()
}

func checkRating(rating int) error {
	if rating < model.MinRating || rating > model.MaxRating {
		return errors.Wrapf(errs.ErrCorruptStore, "rating %d out of range", rating)
	}
	return nil
}
