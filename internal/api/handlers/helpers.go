// Handler helper functions: JSON body handling and error classification.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/timelessnp/sitechat/internal/pkg/errs"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// writeError maps the error taxonomy to HTTP statuses: validation is the
// caller's fault, everything upstream is a bad gateway, the rest is a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errs.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errs.IsUpstream(err):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "couldn't reach the assistant, try again"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server error"})
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Validationf("invalid request body: %v", err)
	}
	return nil
}
