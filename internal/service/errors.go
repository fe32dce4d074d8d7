package service

import "errors"

var (
	ErrUnknownRequestType  = errors.New("unknown request type")
	ErrApplicationNotFound = errors.New("application not found")
)

// PermanentError is a submission failure that retrying cannot fix
type PermanentError struct {
	Message string
	Err     error
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// PublicMessage is shown to the applicant as is
func (e *PermanentError) PublicMessage() string {
	return e.Message
}
