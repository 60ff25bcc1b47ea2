package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_StatusAndSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		status   int
		code     string
		sentinel error
	}{
		{"not found", NotFound("book", "b1"), http.StatusNotFound, "NOT_FOUND", ErrNotFound},
		{"already exists", AlreadyExists("book", "isbn", "978"), http.StatusConflict, "ALREADY_EXISTS", ErrAlreadyExists},
		{"invalid input", InvalidInput("cart is empty"), http.StatusBadRequest, "INVALID_INPUT", ErrInvalidInput},
		{"unauthorized", Unauthorized("no operator"), http.StatusUnauthorized, "UNAUTHORIZED", ErrUnauthorized},
		{"forbidden", Forbidden("admins only"), http.StatusForbidden, "FORBIDDEN", ErrForbidden},
		{"conflict", Conflict("deactivate instead"), http.StatusConflict, "CONFLICT", ErrConflict},
		{"conflict code", ConflictCode("CHECKOUT_IN_PROGRESS", "busy"), http.StatusConflict, "CHECKOUT_IN_PROGRESS", ErrConflict},
		{"gone", Gone("STALE_RESPONSE", "superseded"), http.StatusGone, "STALE_RESPONSE", ErrGone},
		{"unavailable", ServiceUnavailable("failed to load catalog", errors.New("dial tcp")), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	err := NotFound("supplier", "s-1")
	assert.Equal(t, "supplier with id s-1 not found", err.Message)
	assert.Equal(t, "NOT_FOUND: supplier with id s-1 not found: resource not found", err.Error())
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "an internal error occurred", err.Message)
}

func TestServiceUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ServiceUnavailable("failed to load catalog", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsTransient(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindValidation, KindOf(InvalidInput("x")))
	assert.Equal(t, KindAuthorization, KindOf(Forbidden("x")))
	assert.Equal(t, KindAuthorization, KindOf(Unauthorized("x")))
	assert.Equal(t, KindConflict, KindOf(Conflict("x")))
	assert.Equal(t, KindConflict, KindOf(AlreadyExists("a", "b", "c")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("a", "b")))
	assert.Equal(t, KindTransient, KindOf(ServiceUnavailable("x", nil)))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("process sale: %w", Conflict("insufficient stock"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestHTTPStatus_BareSentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("get: %w", ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrInvalidInput))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(ErrForbidden))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrUnauthorized))
	assert.Equal(t, http.StatusGone, HTTPStatus(ErrGone))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrServiceUnavail))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("x")))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "load book")
	require.Error(t, err)
	assert.Equal(t, "load book: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}
