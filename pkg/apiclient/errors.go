package apiclient

import (
	"errors"
	"fmt"
)

// BusinessError is a request the server understood and refused: an envelope
// with success=false or a problem document. Its message is user-visible.
type BusinessError struct {
	Op      string
	Status  int
	Message string
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// RequestError is a transport failure or an unreadable response.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsBusinessError checks if the server refused the request.
func IsBusinessError(err error) bool {
	var be *BusinessError

	return errors.As(err, &be)
}

// MessageFor returns the text to show the user for err: the server's message
// for business rejections and fallback for everything else.
func MessageFor(err error, fallback string) string {
	var be *BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}

	return fallback
}
