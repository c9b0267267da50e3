package http

import (
	"net/http"
	"time"

	"github.com/utafrali/backoffice/pkg/httputil"
	"github.com/utafrali/backoffice/pkg/validator"
)

// dateLayout is the wire format for calendar dates (issue, expiry, payment).
const dateLayout = "2006-01-02"

// decodeRequest decodes and validates a JSON body into dst. On failure the
// response has been written and false is returned.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := validator.DecodeAndValidate(w, r, dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}

// parseDate parses an optional YYYY-MM-DD value. Empty input yields the zero
// time. Validation tags normally reject bad input first.
func parseDate(w http.ResponseWriter, field, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		httputil.WriteBadRequest(w, "INVALID_PARAMETER", "invalid "+field+": expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func parseOptionalDate(w http.ResponseWriter, field string, value *string) (*time.Time, bool) {
	if value == nil {
		return nil, true
	}
	t, ok := parseDate(w, field, *value)
	if !ok || t.IsZero() {
		return nil, ok
	}
	return &t, true
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
