package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped cancel", fmt.Errorf("query: %w", context.Canceled), KindTimeout},
		{"gorm not found", gorm.ErrRecordNotFound, KindNotFound},
		{"gorm fk", gorm.ErrForeignKeyViolated, KindNotFound},
		{"gorm check", gorm.ErrCheckConstraintViolated, KindValidation},
		{"pg fk", &pgconn.PgError{Code: "23503"}, KindNotFound},
		{"pg check", &pgconn.PgError{Code: "23514"}, KindValidation},
		{"pg undefined table", &pgconn.PgError{Code: "42P01"}, KindSchema},
		{"pg statement timeout", &pgconn.PgError{Code: "57014"}, KindTimeout},
		{"pg other", &pgconn.PgError{Code: "53300"}, KindStorage},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), KindNotFound},
		{"sqlite check", errors.New("CHECK constraint failed: chapter_messages_content_length"), KindValidation},
		{"sqlite missing table", errors.New("no such table: chapter_messages"), KindSchema},
		{"unknown", errors.New("disk I/O error"), KindStorage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify(tc.err, "read messages")
			assert.Equal(t, tc.want, KindOf(err))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestClassifyKeepsClassifiedErrors(t *testing.T) {
	original := Forbidden("you are not a member of this group")
	assert.Same(t, original, Classify(original, "ignored"))
	assert.Nil(t, Classify(nil, "ignored"))
}

func TestKindSentinels(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("message not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, KindStorage, KindOf(errors.New("plain")))
}

func TestHTTPMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		public string
	}{
		{Validation("content must not be empty"), http.StatusBadRequest, "content must not be empty"},
		{Forbidden("nope"), http.StatusForbidden, "nope"},
		{NotFound("message not found"), http.StatusNotFound, "message not found"},
		{Classify(context.DeadlineExceeded, "read messages"), http.StatusGatewayTimeout, "request timed out, please retry"},
		{Schema("provision chapter_messages", errors.New("permission denied for schema public")), http.StatusInternalServerError, "internal server error"},
		{Classify(errors.New("connection refused 10.0.0.5:5432"), "append message"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
		assert.Equal(t, tc.public, PublicMessage(tc.err))
	}
}

func TestIsDuplicateObject(t *testing.T) {
	assert.True(t, IsDuplicateObject(&pgconn.PgError{Code: "42P07"}))
	assert.True(t, IsDuplicateObject(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateObject(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateObject(errors.New("index idx_x already exists")))
	assert.False(t, IsDuplicateObject(&pgconn.PgError{Code: "23503"}))
}
