package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/KotFed0t/stock_ledger/utils"
)

type errorResponse struct {
	Error        string `json:"error"`
	Rule         string `json:"rule,omitempty"`
	LastRecordID string `json:"lastRecordId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("can't write response body", slog.String("err", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service errors to http statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *service.ValidationError
		integrityErr  *service.IntegrityError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: validationErr.Message, Rule: string(validationErr.Rule)})
	case errors.As(err, &integrityErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: integrityErr.Error(), LastRecordID: integrityErr.LastRecordID})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyLedger),
		errors.Is(err, service.ErrNothingToExport),
		errors.Is(err, service.ErrLedgerInconsistent):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrCloudStorageDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error(
			"unhandled service error",
			slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
