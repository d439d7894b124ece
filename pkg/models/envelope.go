package models

// Envelope is the uniform response body of the application API.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

// Failure builds an unsuccessful envelope carrying a user-visible message.
func Failure(message string) Envelope[any] {
	return Envelope[any]{Success: false, Message: message}
}
