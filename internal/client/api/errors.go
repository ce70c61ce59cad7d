package api

import "fmt"

// RequestError is a non-2xx answer from the server that is neither an
// authentication failure nor a transport problem. Message carries the
// server's own explanation when the response body provides one.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request rejected (%d): %s", e.StatusCode, e.Message)
}
