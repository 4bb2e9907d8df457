// Package shared centralizes domain error translation to HTTP responses so
// every handler produces the same error envelope.
package shared

import (
	"errors"
	"net/http"

	dErrors "benefitflow/pkg/domain-errors"
	"benefitflow/pkg/platform/httputil"
)

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and a JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": string(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		httputil.WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), response)
		return
	}

	// Fallback for unexpected errors. No message: internals stay internal.
	httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeCycleDetected:
		// The request was well-formed; the catalog data cannot be processed.
		return http.StatusUnprocessableEntity
	case dErrors.CodeTransientFailure:
		return http.StatusServiceUnavailable
	case dErrors.CodeAuthorityUnavailable:
		return http.StatusBadGateway
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
