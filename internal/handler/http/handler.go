package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/SkyToti/SistemaLibreria/pkg/errors"
	"github.com/SkyToti/SistemaLibreria/pkg/middleware"
)

// dateLayout is the calendar date accepted by report filters.
const dateLayout = "2006-01-02"

// terminalID identifies the POS terminal of a request, falling back to the
// operator when the terminal does not send X-Terminal-ID.
func terminalID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(middleware.HeaderTerminalID)); id != "" {
		return id
	}
	return middleware.OperatorIDFromContext(r.Context())
}

// parseDateParam reads an optional date query parameter, as YYYY-MM-DD or
// RFC 3339.
func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateLayout, v, time.Local); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + name + " date: " + v)
	}
	return &t, nil
}

// parseSeq reads the terminal-supplied query sequence number. Missing or
// malformed values mean the server allocates one.
func parseSeq(r *http.Request) uint64 {
	seq, err := strconv.ParseUint(r.URL.Query().Get("seq"), 10, 64)
	if err != nil {
		return 0
	}
	return seq
}
