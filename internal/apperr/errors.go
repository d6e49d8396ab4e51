// Package apperr classifies failures into the kinds the HTTP boundary cares
// about: bad input, authorization, missing entities and infrastructure.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	KindTimeout    Kind = "timeout"
	KindSchema     Kind = "schema"
	KindStorage    Kind = "storage"
)

// Postgres SQLSTATE codes we react to.
const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgUniqueViolation     = "23505"
	pgUndefinedTable      = "42P01"
	pgDuplicateTable      = "42P07"
	pgDuplicateObject     = "42710"
	pgQueryCanceled       = "57014"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, apperr.ErrForbidden) match any error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrTimeout    = &Error{Kind: KindTimeout}
	ErrSchema     = &Error{Kind: KindSchema}
	ErrStorage    = &Error{Kind: KindStorage}
)

func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }
func Forbidden(msg string) error  { return &Error{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Msg: msg} }

func Schema(msg string, err error) error {
	return &Error{Kind: KindSchema, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindStorage for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsClientError reports whether err is caused by the caller (4xx).
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindForbidden, KindNotFound:
		return true
	}
	return false
}

// HTTPStatus maps an error kind onto a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show to clients. Infrastructure failures
// never leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && IsClientError(err) {
		return e.Msg
	}
	if KindOf(err) == KindTimeout {
		return "request timed out, please retry"
	}
	return "internal server error"
}

// Classify wraps a raw storage error into one of the kinds. Errors that are
// already classified pass through unchanged. what names the operation and is
// used as the message for infrastructure errors.
func Classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return &Error{Kind: KindTimeout, Msg: what, Err: err}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Msg: what + ": not found", Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Kind: KindNotFound, Msg: "referenced room or user does not exist", Err: err}
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return &Error{Kind: KindValidation, Msg: "content violates length constraint", Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return &Error{Kind: KindNotFound, Msg: "referenced room or user does not exist", Err: err}
		case pgCheckViolation:
			return &Error{Kind: KindValidation, Msg: "content violates length constraint", Err: err}
		case pgUndefinedTable:
			return &Error{Kind: KindSchema, Msg: what, Err: err}
		case pgQueryCanceled:
			return &Error{Kind: KindTimeout, Msg: what, Err: err}
		}
	}

	// SQLite reports constraint failures as plain messages.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &Error{Kind: KindNotFound, Msg: "referenced room or user does not exist", Err: err}
	case strings.Contains(msg, "CHECK constraint failed"):
		return &Error{Kind: KindValidation, Msg: "content violates length constraint", Err: err}
	case strings.Contains(msg, "no such table"):
		return &Error{Kind: KindSchema, Msg: what, Err: err}
	}

	return &Error{Kind: KindStorage, Msg: what, Err: err}
}

// IsDuplicateObject reports whether err is a concurrent "already exists"
// failure from DDL, which callers creating objects idempotently can ignore.
func IsDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDuplicateTable, pgDuplicateObject, pgUniqueViolation:
			return true
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}
