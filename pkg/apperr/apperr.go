// Package apperr defines the typed error variants returned by repositories and
// services. Handlers never build HTTP responses from raw errors; they pass an
// *Error to pkg/response which maps the kind to a status code and envelope.
package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies an error for HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindGone
	KindRateLimited
	KindBusiness
	KindTimeout
)

// Error codes surfaced in the error envelope.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeUserNotAllowEntry  = "USER_NOT_ALLOW_ENTRY"
	CodeResourceNotFound   = "RESOURCE_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUserExists         = "USER_ALREADY_EXISTS"
	CodeAlreadyVoted       = "ALREADY_VOTED"
	CodeAlreadyDelegated   = "ALREADY_DELEGATED"
	CodeAutoLoginSuperseded = "AUTOLOGIN_SUPERSEDED"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeVoteDelegated      = "VOTE_DELEGATED"
	CodeDelegateDelegated  = "DELEGATE_ALREADY_DELEGATED"
	CodeActivePollsExist   = "ACTIVE_POLLS_EXIST"
	CodeMeetingNotActive   = "MEETING_NOT_ACTIVE"
	CodeInvalidPollStatus  = "INVALID_POLL_STATUS"
	CodeNoVotingRight      = "NO_VOTING_RIGHT"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeDatabase           = "DATABASE_ERROR"
	CodeTimeout            = "REQUEST_TIMEOUT"
)

// Error is the typed error carried from the core to the HTTP edge.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	Details    map[string]interface{}
	RetryAfter int // seconds, only for KindRateLimited
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports errors.Is / errors.As on the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// New creates an error with an explicit kind and code.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to an internal error.
func Wrap(err error, message string) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func Unauthenticated(code, message string) *Error {
	return New(KindUnauthenticated, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Gone(code, message string) *Error {
	return New(KindGone, code, message)
}

func Business(code, message string) *Error {
	return New(KindBusiness, code, message)
}

func RateLimited(retryAfter int) *Error {
	e := New(KindRateLimited, CodeRateLimitExceeded, "rate limit exceeded")
	e.RetryAfter = retryAfter
	return e
}

func Timeout(message string) *Error {
	return New(KindTimeout, CodeTimeout, message)
}

// As extracts an *Error from any error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// FromDB maps database errors to the taxonomy: no rows becomes NotFound,
// unique violations become Conflict, everything else is a database error.
func FromDB(err error, notFoundMsg string) *Error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(CodeResourceNotFound, notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &Error{Kind: KindConflict, Code: CodeDatabase, Message: "duplicate record", Err: err}
	}
	return &Error{Kind: KindInternal, Code: CodeDatabase, Message: "database error", Err: err}
}
