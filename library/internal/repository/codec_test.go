package repository_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/model"
	"github.com/Astemirdum/library-desk/library/internal/repository"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() []model.Book {
	return []model.Book{
		{
			ID:     1,
			Title:  "The Great Gatsby",
			Author: "F. Scott Fitzgerald",
			Genre:  "Classic",
			Loan:   &model.Loan{Holder: "alice", IssuedAt: time.Unix(1700000000, 0)},
			Reviews: []model.Review{
				{Reviewer: "bob", Rating: 3, Comment: "slow start"},
				{Reviewer: "carol", Rating: 5, Comment: ""},
			},
		},
		{
			ID:      2,
			Title:   "Great Expectations",
			Author:  "Charles Dickens",
			Genre:   "Classic",
			Reviews: []model.Review{},
		},
	}
}

const sampleText = `1
The Great Gatsby
F. Scott Fitzgerald
Classic
1
alice
1700000000
2
bob
3
slow start
carol
5

---
2
Great Expectations
Charles Dickens
Classic
0

0
0
---
`

func TestEncode(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, repository.Encode(&buf, sampleCatalog()))
	require.Equal(t, sampleText, buf.String())
}

func TestDecode(t *testing.T) {
	t.Parallel()
	books, err := repository.Decode(strings.NewReader(sampleText))
	require.NoError(t, err)
	require.Equal(t, sampleCatalog(), books)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, repository.Encode(&buf, sampleCatalog()))
	books, err := repository.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, sampleCatalog(), books)
}

func TestDecode_Empty(t *testing.T) {
	t.Parallel()
	books, err := repository.Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, books)

	books, err = repository.Decode(strings.NewReader("\n\n"))
	require.NoError(t, err)
	require.Empty(t, books)
}

func TestDecode_CRLF(t *testing.T) {
	t.Parallel()
	books, err := repository.Decode(strings.NewReader(strings.ReplaceAll(sampleText, "\n", "\r\n")))
	require.NoError(t, err)
	require.Equal(t, sampleCatalog(), books)
}

func TestDecode_Corrupt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
	}{
		{name: "bad id", text: "x\nT\nA\nG\n0\n\n0\n0\n---\n"},
		{name: "bad flag", text: "1\nT\nA\nG\nyes\n\n0\n0\n---\n"},
		{name: "issued without holder", text: "1\nT\nA\nG\n1\n\n1700000000\n0\n---\n"},
		{name: "holder while available", text: "1\nT\nA\nG\n0\nalice\n0\n0\n---\n"},
		{name: "issued without time", text: "1\nT\nA\nG\n1\nalice\n0\n0\n---\n"},
		{name: "bad time", text: "1\nT\nA\nG\n1\nalice\nnoon\n0\n---\n"},
		{name: "bad review count", text: "1\nT\nA\nG\n0\n\n0\nmany\n---\n"},
		{name: "negative review count", text: "1\nT\nA\nG\n0\n\n0\n-1\n---\n"},
		{name: "rating out of range", text: "1\nT\nA\nG\n0\n\n0\n1\nbob\n6\nwow\n---\n"},
		{name: "truncated", text: "1\nT\nA\nG\n0\n"},
		{name: "truncated review", text: "1\nT\nA\nG\n0\n\n0\n1\nbob\n"},
		{name: "missing terminator", text: "1\nT\nA\nG\n0\n\n0\n0\n2\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := repository.Decode(strings.NewReader(tt.text))
			require.Error(t, err)
			require.True(t, errors.Is(err, errs.ErrCorruptStore), err.Error())
		})
	}
}
