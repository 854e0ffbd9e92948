package repository

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/pkg/errors"
)

const recordTerminator = "---"

// Encode writes books one field per line:
// id, title, author, genre, issued flag, holder, issue time (epoch seconds),
// review count, then reviewer, rating and comment per review, then "---".
func Encode(w io.Writer, books []model.Book) error {
	bw := bufio.NewWriter(w)
	for _, b := range books {
		issued, holder, issuedAt := loanFields(b.Loan)
		flag := "0"
		if issued {
			flag = "1"
		}
		lines := []string{
			strconv.Itoa(b.ID),
			b.Title,
			b.Author,
			b.Genre,
			flag,
			holder,
			strconv.FormatInt(issuedAt, 10),
			strconv.Itoa(len(b.Reviews)),
		}
		for _, r := range b.Reviews {
			lines = append(lines, r.Reviewer, strconv.Itoa(r.Rating), r.Comment)
		}
		lines = append(lines, recordTerminator)
		for _, line := range lines {
			if _, err := bw.WriteString(line + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Decode reads records written by Encode.
func Decode(r io.Reader) ([]model.Book, error) {
	lr := newLineReader(r)
	books := make([]model.Book, 0)
	for {
		first, err := lr.next()
		if errors.Is(err, io.EOF) {
			return books, nil
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(first) == "" {
			continue
		}
		b, err := decodeBook(lr, first)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", len(books)+1)
		}
		books = append(books, b)
	}
}

func decodeBook(lr *lineReader, idLine string) (model.Book, error) {
	var (
		b   model.Book
		err error
	)
	if b.ID, err = lr.atoi(idLine, "id"); err != nil {
		return model.Book{}, err
	}
	if b.Title, err = lr.field(); err != nil {
		return model.Book{}, err
	}
	if b.Author, err = lr.field(); err != nil {
		return model.Book{}, err
	}
	if b.Genre, err = lr.field(); err != nil {
		return model.Book{}, err
	}
	flag, err := lr.field()
	if err != nil {
		return model.Book{}, err
	}
	if flag != "0" && flag != "1" {
		return model.Book{}, lr.corrupt("issued flag %q", flag)
	}
	holder, err := lr.field()
	if err != nil {
		return model.Book{}, err
	}
	issuedAt, err := lr.int64Field("issue time")
	if err != nil {
		return model.Book{}, err
	}
	if b.Loan, err = newLoan(flag == "1", holder, issuedAt); err != nil {
		return model.Book{}, errors.Wrapf(err, "line %d", lr.n)
	}

	count, err := lr.intField("review count")
	if err != nil {
		return model.Book{}, err
	}
	if count < 0 {
		return model.Book{}, lr.corrupt("review count %d", count)
	}
	b.Reviews = make([]model.Review, 0, count)
	for i := 0; i < count; i++ {
		var rv model.Review
		if rv.Reviewer, err = lr.field(); err != nil {
			return model.Book{}, err
		}
		if rv.Rating, err = lr.intField("rating"); err != nil {
			return model.Book{}, err
		}
		if err := checkRating(rv.Rating); err != nil {
			return model.Book{}, errors.Wrapf(err, "line %d", lr.n)
		}
		if rv.Comment, err = lr.field(); err != nil {
			return model.Book{}, err
		}
		b.Reviews = append(b.Reviews, rv)
	}

	term, err := lr.field()
	if err != nil {
		return model.Book{}, err
	}
	if term != recordTerminator {
		return model.Book{}, lr.corrupt("expected %q, got %q", recordTerminator, term)
	}
	return b, nil
}

type lineReader struct {
	sc *bufio.Scanner
	n  int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	return &lineReader{sc: sc}
}

func (lr *lineReader) next() (string, error) {
	if !lr.sc.Scan() {
		if err := lr.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	lr.n++
	return strings.TrimSuffix(lr.sc.Text(), "\r"), nil
}

// field is next inside a record, where running out of lines is corruption.
func (lr *lineReader) field() (string, error) {
	s, err := lr.next()
	if errors.Is(err, io.EOF) {
		return "", errors.Wrapf(errs.ErrCorruptStore, "unexpected end of file after line %d", lr.n)
	}
	return s, err
}

func (lr *lineReader) intField(name string) (int, error) {
	s, err := lr.field()
	if err != nil {
		return 0, err
	}
	return lr.atoi(s, name)
}

func (lr *lineReader) int64Field(name string) (int64, error) {
	s, err := lr.field()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, lr.corrupt("%s %q", name, s)
	}
	return v, nil
}

func (lr *lineReader) atoi(s, name string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, lr.corrupt("%s %q", name, s)
	}
	return v, nil
}

func (lr *lineReader) corrupt(format string, args ...interface{}) error {
	return errors.Wrapf(errs.ErrCorruptStore, "line %d: "+format, append([]interface{}{lr.n}, args...)...)
}
