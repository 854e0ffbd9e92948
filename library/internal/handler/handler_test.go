package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-desk/library/internal/errs"
	"github.com/Astemirdum/library-desk/library/internal/handler"
	"github.com/Astemirdum/library-desk/library/internal/model"

	service_mocks "github.com/Astemirdum/library-desk/library/internal/handler/mocks"
)

func gatsby() model.Book {
	return model.Book{ID: 1, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Genre: "Novel", Reviews: []model.Review{}}
}

func expectations() model.Book {
	return model.Book{ID: 3, Title: "Great Expectations", Author: "Charles Dickens", Genre: "Novel", Reviews: []model.Review{
		{Reviewer: "ann", Rating: 3, Comment: "slow start"},
		{Reviewer: "bob", Rating: 5},
	}}
}

func TestHandler_GetBook(t *testing.T) {
	t.Parallel()
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLibraryService, id int)

	issued := gatsby()
	issued.Loan = &model.Loan{Holder: "alice", IssuedAt: time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)}

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		id           string
		response     response
	}{
		{
			name: "ok. reviewed",
			mockBehavior: func(r *service_mocks.MockLibraryService, id int) {
				r.EXPECT().GetBook(gomock.Any(), id).Return(expectations(), nil)
			},
			id: "3",
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":3,"title":"Great Expectations","author":"Charles Dickens","genre":"Novel","reviews":[{"reviewer":"ann","rating":3,"comment":"slow start"},{"reviewer":"bob","rating":5,"comment":""}],"status":"AVAILABLE","averageRating":4}`,
			},
		},
		{
			name: "ok. issued",
			mockBehavior: func(r *service_mocks.MockLibraryService, id int) {
				r.EXPECT().GetBook(gomock.Any(), id).Return(issued, nil)
			},
			id: "1",
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":1,"title":"The Great Gatsby","author":"F. Scott Fitzgerald","genre":"Novel","loan":{"holder":"alice","issuedAt":"2024-03-01T09:30:00Z"},"reviews":[],"status":"ISSUED"}`,
			},
		},
		{
			name:         "err. invalid id",
			mockBehavior: func(r *service_mocks.MockLibraryService, id int) {},
			id:           "abc",
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"id is invalid"}`,
			},
		},
		{
			name: "err. not found",
			mockBehavior: func(r *service_mocks.MockLibraryService, id int) {
				r.EXPECT().GetBook(gomock.Any(), id).Return(model.Book{}, errors.Wrapf(errs.ErrNotFound, "book %d", id))
			},
			id: "9",
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"book 9: not found"}`,
			},
		},
		{
			name: "err. internal",
			mockBehavior: func(r *service_mocks.MockLibraryService, id int) {
				r.EXPECT().GetBook(gomock.Any(), id).Return(model.Book{}, errors.New("db internal"))
			},
			id: "2",
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))
			e := h.NewRouter()

			r := httptest.NewRequest(http.MethodGet, "/api/v1/books/"+tt.id, nil)
			w := httptest.NewRecorder()

			if id, err := strconv.Atoi(tt.id); err == nil {
				tt.mockBehavior(svc, id)
			}
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	svc := service_mocks.NewMockLibraryService(c)
	e := handler.New(svc, zap.NewExample()).NewRouter()

	svc.EXPECT().ListBooks(gomock.Any()).Return([]model.Book{gatsby()})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/books", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t,
		`{"totalElements":1,"items":[{"id":1,"title":"The Great Gatsby","author":"F. Scott Fitzgerald","genre":"Novel","reviews":[],"status":"AVAILABLE"}]}`,
		strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_SearchBooks(t *testing.T) {
	t.Parallel()
	var tests = []struct {
		name         string
		query        string
		mockBehavior func(r *service_mocks.MockLibraryService)
		chunked      bool
		expectedCode int
		expectedBody string
	}{
		{
			name:  "ok",
			query: "gret",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().Search(gomock.Any(), "gret").Return([]model.Book{gatsby()})
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"totalElements":1,"items":[{"id":1,"title":"The Great Gatsby","author":"F. Scott Fitzgerald","genre":"Novel","reviews":[],"status":"AVAILABLE"}]}`,
		},
		{
			name:  "ok. no match",
			query: "zzzz",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().Search(gomock.Any(), "zzzz").Return([]model.Book{})
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"totalElements":0,"items":[]}`,
		},
		{
			name:    "ok. body-less get without content type",
			query:   "war",
			chunked: true,
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().Search(gomock.Any(), "war").Return([]model.Book{})
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"totalElements":0,"items":[]}`,
		},
		{
			name:         "err. q required",
			query:        "",
			mockBehavior: func(r *service_mocks.MockLibraryService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"q is required"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			svc := service_mocks.NewMockLibraryService(c)
			e := handler.New(svc, zap.NewExample()).NewRouter()
			tt.mockBehavior(svc)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/books/search?q="+url.QueryEscape(tt.query), nil)
			if tt.chunked {
				r.Body = http.NoBody
				r.ContentLength = -1
				r.TransferEncoding = []string{"chunked"}
			}
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_GetWaitlist(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	svc := service_mocks.NewMockLibraryService(c)
	e := handler.New(svc, zap.NewExample()).NewRouter()

	svc.EXPECT().Waitlist(gomock.Any(), 1).Return([]string{"bob", "carol"}, nil)
	svc.EXPECT().Waitlist(gomock.Any(), 8).Return(nil, errors.Wrap(errs.ErrNotFound, "book 8"))

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/books/1/waitlist", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"bookId":1,"queue":["bob","carol"]}`, strings.Trim(w.Body.String(), "\n"))

	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/books/8/waitlist", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	e := handler.New(service_mocks.NewMockLibraryService(c), zap.NewExample()).NewRouter()

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manage/health", nil).WithContext(context.Background()))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}
