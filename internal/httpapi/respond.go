package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roach88/acctql/internal/loader"
	"github.com/roach88/acctql/internal/mutation"
	"github.com/roach88/acctql/internal/pager"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

// respondErr maps service errors to status codes.
func respondErr(w http.ResponseWriter, err error) {
	var (
		ve *mutation.ValidationError
		ae *pager.ArgsError
		be *loader.BatchFetchError
	)
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:  ve.Message,
			Code:   mutation.ErrCodeValidationFailed,
			Reason: string(ve.Reason),
		})
	case errors.As(err, &ae):
		respondError(w, http.StatusBadRequest, ae.Error())
	case errors.As(err, &be):
		respondJSON(w, http.StatusBadGateway, errorBody{Error: be.Error(), Code: loader.ErrCodeBatchFetchFailed})
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
