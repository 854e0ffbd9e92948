package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/model"
)

const (
	booksTableName   = `books`
	reviewsTableName = `reviews`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type bookRow struct {
	ID       int    `db:"id"`
	Position int    `db:"position"`
	Title    string `db:"title"`
	Author   string `db:"author"`
	Genre    string `db:"genre"`
	Issued   bool   `db:"issued"`
	Holder   string `db:"holder"`
	IssuedAt int64  `db:"issued_at"`
}

type reviewRow struct {
	BookID   int    `db:"book_id"`
	Position int    `db:"position"`
	Reviewer string `db:"reviewer"`
	Rating   int    `db:"rating"`
	Comment  string `db:"comment"`
}

type postgresRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewPostgresRepository(db *sqlx.DB, log *zap.Logger) (*postgresRepository, error) {
	return &postgresRepository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

func (r *postgresRepository) Load(ctx context.Context) ([]model.Book, error) {
	q, args, err := qb.Select("id", "position", "title", "author", "genre", "issued", "holder", "issued_at").
		From(booksTableName).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []bookRow
	if err = r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		r.log.Error("Load books", zap.String("q", q), zap.Error(err))
		return nil, errors.Wrap(err, "select books")
	}

	q, args, err = qb.Select("book_id", "position", "reviewer", "rating", "comment").
		From(reviewsTableName).
		OrderBy("book_id", "position").
		ToSql()
	if err != nil {
		return nil, err
	}
	var reviews []reviewRow
	if err = r.db.SelectContext(ctx, &reviews, q, args...); err != nil {
		r.log.Error("Load reviews", zap.String("q", q), zap.Error(err))
		return nil, errors.Wrap(err, "select reviews")
	}

	return assemble(rows, reviews)
}

// Save rewrites both tables inside one transaction, so readers see either the old or the new catalog.
func (r *postgresRepository) Save(ctx context.Context, books []model.Book) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{reviewsTableName, booksTableName} {
		q, args, qErr := qb.Delete(table).ToSql()
		if qErr != nil {
			return qErr
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return errors.Wrapf(err, "clear %s", table)
		}
	}

	bookQueries, err := insertBooksQueries(books)
	if err != nil {
		return err
	}
	reviewQueries, err := insertReviewsQueries(books)
	if err != nil {
		return err
	}
	for _, iq := range append(bookQueries, reviewQueries...) {
		if _, err = tx.ExecContext(ctx, iq.sql, iq.args...); err != nil {
			return mapPgError(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	r.log.Debug("catalog saved", zap.Int("books", len(books)))
	return nil
}

// insertBatchRows keeps every INSERT well under the 65535 bind parameter limit.
const insertBatchRows = 1000

type insertQuery struct {
	sql  string
	args []interface{}
}

func insertBooksQueries(books []model.Book) ([]insertQuery, error) {
	var queries []insertQuery
	for from := 0; from < len(books); from += insertBatchRows {
		to := min(from+insertBatchRows, len(books))
		ins := qb.Insert(booksTableName).
			Columns("id", "position", "title", "author", "genre", "issued", "holder", "issued_at")
		for pos := from; pos < to; pos++ {
			b := books[pos]
			issued, holder, issuedAt := loanFields(b.Loan)
			ins = ins.Values(b.ID, pos, b.Title, b.Author, b.Genre, issued, holder, issuedAt)
		}
		q, args, err := ins.ToSql()
		if err != nil {
			return nil, err
		}
		queries = append(queries, insertQuery{sql: q, args: args})
	}
	return queries, nil
}

func insertReviewsQueries(books []model.Book) ([]insertQuery, error) {
	var (
		queries []insertQuery
		ins     sq.InsertBuilder
		n       int
	)
	flush := func() error {
		if n == 0 {
			return nil
		}
		q, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		queries = append(queries, insertQuery{sql: q, args: args})
		n = 0
		return nil
	}
	for _, b := range books {
		for pos, rv := range b.Reviews {
			if n == 0 {
				ins = qb.Insert(reviewsTableName).
					Columns("book_id", "position", "reviewer", "rating", "comment")
			}
			ins = ins.Values(b.ID, pos, rv.Reviewer, rv.Rating, rv.Comment)
			if n++; n == insertBatchRows {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return queries, nil
}

func assemble(rows []bookRow, reviews []reviewRow) ([]model.Book, error) {
	books := make([]model.Book, 0, len(rows))
	index := make(map[int]int, len(rows))
	for _, row := range rows {
		loan, err := newLoan(row.Issued, row.Holder, row.IssuedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "book %d", row.ID)
		}
		index[row.ID] = len(books)
		books = append(books, model.Book{
			ID:      row.ID,
			Title:   row.Title,
			Author:  row.Author,
			Genre:   row.Genre,
			Loan:    loan,
			Reviews: []model.Review{},
		})
	}
	for _, rv := range reviews {
		i, ok := index[rv.BookID]
		if !ok {
			return nil, errors.Wrapf(errs.ErrCorruptStore, "review for unknown book %d", rv.BookID)
		}
		if err := checkRating(rv.Rating); err != nil {
			return nil, errors.Wrapf(err, "book %d", rv.BookID)
		}
		books[i].Reviews = append(books[i].Reviews, model.Review{
			Reviewer: rv.Reviewer,
			Rating:   rv.Rating,
			Comment:  rv.Comment,
		})
	}
	return books, nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return errors.Wrap(errs.ErrInvalidInput, pgErr.Detail)
		case pgerrcode.CheckViolation:
			return errors.Wrap(errs.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return errors.Wrap(err, "insert catalog")
}
