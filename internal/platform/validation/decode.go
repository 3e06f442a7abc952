package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/eilgug/profile-api/internal/apperr"
)

// MaxBodyBytes caps the size of a decoded request body.
const MaxBodyBytes int64 = 2 << 20

// Payload is a request body that decoded and passed every rule. It can only
// be produced by Decode.
type Payload[T any] struct {
	value T
}

// Value returns the validated body.
func (p Payload[T]) Value() T { return p.value }

// Decode reads one JSON document from r into a T and validates it.
// Structural problems are BadRequest; rule violations are Validation.
func Decode[T any](v *Validator, r *http.Request) (Payload[T], error) {
	if err := requireJSON(r.Header.Get("Content-Type")); err != nil {
		return Payload[T]{}, err
	}
	if r.Body == nil {
		return Payload[T]{}, apperr.BadRequest("request body must not be empty")
	}
	return DecodeReader[T](v, http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
}

// DecodeReader is Decode without the HTTP framing checks.
func DecodeReader[T any](v *Validator, body io.Reader) (Payload[T], error) {
	var raw json.RawMessage
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return Payload[T]{}, apperr.BadRequest(decodeDetail(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Payload[T]{}, apperr.BadRequest("request body must contain a single JSON value")
	}
	// null would otherwise decode to a zero T.
	if bytes.Equal(raw, []byte("null")) {
		return Payload[T]{}, apperr.BadRequest("request body must not be null")
	}
	var dst T
	if err := json.Unmarshal(raw, &dst); err != nil {
		return Payload[T]{}, apperr.BadRequest(decodeDetail(err))
	}
	if err := v.Validate(&dst); err != nil {
		return Payload[T]{}, err
	}
	return Payload[T]{value: dst}, nil
}

func requireJSON(contentType string) error {
	if contentType == "" {
		return apperr.BadRequest("expected request with `Content-Type: application/json`")
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !(mt == "application/json" || strings.HasSuffix(mt, "+json")) {
		return apperr.BadRequest("expected request with `Content-Type: application/json`")
	}
	return nil
}

func decodeDetail(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return "request body must not be empty"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "request body contains badly-formed JSON"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("request body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return fmt.Sprintf("field %q has the wrong type: expected %s", typeErr.Field, typeErr.Type)
		}
		return fmt.Sprintf("request body has the wrong type (at character %d)", typeErr.Offset)
	case errors.As(err, &maxErr):
		return fmt.Sprintf("request body must not be larger than %d bytes", maxErr.Limit)
	default:
		return "failed to parse request body: " + err.Error()
	}
}
