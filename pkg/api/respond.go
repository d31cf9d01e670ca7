package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/noona-project/warden/pkg/apierr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps err to its HTTP status via apierr.HTTPStatus and writes
// it as {error: string}.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apierr.HTTPStatus(err), map[string]string{"error": err.Error()})
}

// decodeJSON parses r's body into v, reporting malformed JSON as a
// ValidationError so writeError renders it as 400.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &apierr.ValidationError{Message: "malformed JSON body: " + err.Error()}
	}
	return nil
}

// serviceNotFound wraps a catalog lookup miss as the apierr type
// HTTPStatus recognizes, so an unknown service name renders as 404
// instead of falling through to HTTPStatus's default 500.
func serviceNotFound(name string) error {
	return &apierr.NotFoundError{Kind: "service", Name: name}
}

// limitFromQuery reads the "limit" query parameter, defaulting to 0 (no
// limit — the caller's own default applies) when absent or invalid.
func limitFromQuery(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
