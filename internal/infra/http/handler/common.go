// Package handler contains the HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stagepass/api/pkg/apierror"
	"github.com/stagepass/api/pkg/domain/membership"
	"github.com/stagepass/api/pkg/domain/shared"
	"github.com/stagepass/api/pkg/logger"
)

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeJSON decodes the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apierror.BadRequest("Invalid request body")
	}
	return nil
}

// writeError maps a classified error to its HTTP response. Unknown
// kinds render a generic 500 and the cause is logged.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	var fieldErrs membership.FieldErrors
	if errors.As(err, &fieldErrs) {
		apierror.ValidationFailed(fieldErrs).WriteJSON(w)
		return
	}

	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status >= http.StatusInternalServerError {
			log.Error("request failed", "error", err)
		}
		apiErr.WriteJSON(w)
		return
	}

	switch {
	case shared.IsNotFound(err):
		apierror.NotFound().WriteJSON(w)
	case shared.IsForbidden(err):
		apierror.Forbidden("").WriteJSON(w)
	case shared.IsValidation(err):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		log.Error("request failed", "error", err)
		apierror.InternalError(err).WriteJSON(w)
	}
}
