package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
)

// remoteError mirrors the httputil error envelope returned by the backend.
type remoteError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response body and maps
// the status onto an AppError of the matching class.
func ParseResponseError(resp *http.Response, backend string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.ServiceUnavailable(backend+" returned an unreadable response", err)
	}

	code, message := "", string(body)
	var remote remoteError
	if json.Unmarshal(body, &remote) == nil && remote.Error != nil {
		code, message = remote.Error.Code, remote.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(message)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.Unauthorized(message)
	case resp.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden(message)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(backend, message)
	case resp.StatusCode == http.StatusConflict:
		if code != "" {
			return apperrors.ConflictCode(code, message)
		}
		return apperrors.Conflict(message)
	case resp.StatusCode >= 500:
		return apperrors.ServiceUnavailable(
			fmt.Sprintf("%s unavailable", backend),
			fmt.Errorf("status %d: %s", resp.StatusCode, message),
		)
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: fmt.Sprintf("%s: %s", backend, message),
			Status:  resp.StatusCode,
		}
	}
}

// TransportError classifies an error returned by Do: breaker rejections,
// timeouts and connection failures become transient errors.
func TransportError(err error, backend string) error {
	var srv *serverError
	if errors.As(err, &srv) {
		return apperrors.ServiceUnavailable(backend+" unavailable", err)
	}
	return apperrors.ServiceUnavailable(backend+" unreachable", err)
}
