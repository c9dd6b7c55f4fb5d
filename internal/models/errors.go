package models

import (
	"errors"
	"fmt"
)

var (
	ErrInternal            = errors.New("internal server error")
	ErrMethodNotAllowed    = errors.New("method not allowed")
	ErrForbidden           = errors.New("access denied")
	ErrInvalidParams       = errors.New("invalid params")
	ErrUnsupportedType     = errors.New("file type not supported")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidChunkCount   = errors.New("invalid chunk count")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrObjectExists        = errors.New("object already exists")
	ErrObjectNotFound      = errors.New("object not found")
	ErrUploadFailed        = errors.New("failed to upload file")
	ErrUserNotFound        = errors.New("user not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidToken        = errors.New("invalid token")
	ErrIdentityUnavailable = errors.New("identity provider unavailable")
	ErrSubscriptionClosed  = errors.New("subscription closed")
)

type UniqueConstraintError struct {
	Constraint string
	Err        error
}

func (e *UniqueConstraintError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Constraint)
}

func (e *UniqueConstraintError) Unwrap() error {
	return e.Err
}
