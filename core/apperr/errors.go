// Package apperr defines the user-facing error taxonomy of the trainer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for presentation.
type Kind string

const (
	KindValidation Kind = "validation"
	KindCapture    Kind = "capture"
	KindResolution Kind = "resolution"
	KindPlayback   Kind = "playback"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
)

// Error is a structured application error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code so wrapped copies of a sentinel compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// HTTPStatus maps the kind onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindCapture:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindResolution:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrAlreadyPlaying = &Error{Kind: KindConflict, Code: "ALREADY_PLAYING", Message: "Already playing"}
	ErrNotFound       = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "Not found"}
	ErrNothingToPlay  = &Error{Kind: KindResolution, Code: "NOTHING_TO_PLAY", Message: "Nothing to play"}
	ErrInvalidBundle  = &Error{Kind: KindValidation, Code: "INVALID_BUNDLE", Message: "Invalid data format"}
)

// Validation 创建校验错误
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION", Message: message}
}

// Capture 创建录音错误
func Capture(message string, err error) *Error {
	return &Error{Kind: KindCapture, Code: "CAPTURE", Message: message, Err: err}
}

// NotFound 包装不存在的实体
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Code: ErrNotFound.Code, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NothingToPlay 包装空集合错误
func NothingToPlay(message string) *Error {
	return &Error{Kind: KindResolution, Code: ErrNothingToPlay.Code, Message: message}
}

// InvalidBundle 包装导入数据格式错误
func InvalidBundle(message string, err error) *Error {
	return &Error{Kind: KindValidation, Code: ErrInvalidBundle.Code, Message: message, Err: err}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Message returns the user-facing text of err.
func Message(err error) string {
	if e, ok := As(err); ok {
		return e.Message
	}
	return err.Error()
}
