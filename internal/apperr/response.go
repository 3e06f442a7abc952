package apperr

import (
	"errors"
	"net/http"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Response is what a failed request turns into.
type Response struct {
	Status  int
	Message string
	Body    ErrorBody
}

// ToResponse maps any error onto the taxonomy. Errors that are not *Error are
// treated as internal failures.
func ToResponse(err error) Response {
	status := http.StatusInternalServerError
	msg := InternalMessage

	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		if p, ok := policies[ae.Kind]; ok {
			status = p.status
			if p.exposeDetail {
				msg = ae.detail()
			}
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return Response{
		Status:  status,
		Message: msg,
		Body:    ErrorBody{Error: ErrorDetail{Status: status, Message: msg}},
	}
}

// IsServerError reports whether err maps to a 5xx response.
func IsServerError(err error) bool {
	return ToResponse(err).Status >= http.StatusInternalServerError
}
