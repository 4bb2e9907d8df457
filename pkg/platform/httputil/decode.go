package httputil

import (
	"encoding/json"
	"net/http"
)

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// DecodeJSON decodes a JSON request body into the target type and runs its
// Validate method when it has one. On failure the caller gets (zero, error)
// and writes the response itself; decoding errors carry no domain code so
// callers wrap them.
func DecodeJSON[T any](r *http.Request) (*T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return &req, nil
}
