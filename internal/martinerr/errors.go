// Package martinerr centralizes the error taxonomy shared across the tile and
// glyph serving packages so the HTTP layer can classify any error it receives
// without each package needing to know about HTTP status codes.
package martinerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the purposes of HTTP status mapping.
type Kind int

const (
	// KindInternal is a server-side failure (DB, codec, protobuf).
	KindInternal Kind = iota
	// KindNotFound is a missing source, font, or zoom-filtered-to-empty request.
	KindNotFound
	// KindBadRequest is a malformed or unsatisfiable client request.
	KindBadRequest
)

// Error is a typed error carrying a Kind so callers can map it to an HTTP
// status without string matching.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a 404-classified error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// BadRequest builds a 400-classified error.
func BadRequest(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps err as a 500-classified error.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// HTTPStatus maps err to the status code spec.md §7 assigns it. Unclassified
// errors (plain errors.New, wrapped stdlib errors) default to 500.
func HTTPStatus(err error) int {
	var me *Error
	if errors.As(err, &me) {
		switch me.Kind {
		case KindNotFound:
			return http.StatusNotFound
		case KindBadRequest:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// Font range validation errors (spec.md §4.1), classified KindBadRequest so
// HTTPStatus maps a malformed /font/{ids}/{start}-{end} request to 400
// rather than the KindInternal default.
var (
	ErrInvalidFontRangeStartEnd = &Error{Kind: KindBadRequest, Msg: "font range start must be <= end"}
	ErrInvalidFontRangeStart    = &Error{Kind: KindBadRequest, Msg: "font range start must be a multiple of 256"}
	ErrInvalidFontRangeEnd      = &Error{Kind: KindBadRequest, Msg: "font range end must be a multiple of 256 minus 1"}
	ErrInvalidFontRange         = &Error{Kind: KindBadRequest, Msg: "font range must be exactly 256 characters long"}
)

// IsNotFound reports whether err is classified as a not-found error.
func IsNotFound(err error) bool {
	var me *Error
	return errors.As(err, &me) && me.Kind == KindNotFound
}

// FontNotFound reports that a requested font ID is not registered in the catalog.
func FontNotFound(id string) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("font %q not found", id)}
}

// MissingFamilyName reports a font face with no family name at the given path.
type MissingFamilyName struct {
	Path string
}

func (e *MissingFamilyName) Error() string {
	return fmt.Sprintf("font %s is missing a family name", e.Path)
}
