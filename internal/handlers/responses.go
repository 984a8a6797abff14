package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/julienbonastre/scantosold/internal/apperr"
	"github.com/julienbonastre/scantosold/internal/calculator"
	"github.com/julienbonastre/scantosold/internal/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// JSON response helper
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf(`{"level":"error","message":"failed to encode response","error":"%v"}`, err)
	}
}

// errorResponse renders err as {"error": {...}}. Uncoded errors become
// internal errors and never leak their text.
func errorResponse(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.CodeInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	switch typed.Code() {
	case apperr.CodeValidation,
		apperr.CodeUnauthorized,
		apperr.CodeNotFound,
		apperr.CodeConflict,
		apperr.CodeIdempotency,
		apperr.CodeDependency:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := errorEnvelope{Error: errorBody{Code: string(typed.Code()), Message: msg}}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"error_code":  string(typed.Code()),
			"http_status": meta.HTTPStatus,
		})
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "request.rejected")
		}
	}

	jsonResponse(w, meta.HTTPStatus, payload)
}

// invalidInput turns a calculator rejection into a validation error
func invalidInput(err error) error {
	var invalid *calculator.InvalidInputError
	if errors.As(err, &invalid) {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid input").
			WithDetails(map[string]string{invalid.Field: "must be a non-negative number"})
	}
	return apperr.Wrap(apperr.CodeValidation, err, "invalid input")
}

// dependencyError marks uncoded failures of eBay calls as upstream errors
func dependencyError(err error, message string) error {
	if apperr.As(err) != nil {
		return err
	}
	return apperr.Wrap(apperr.CodeDependency, err, message)
}
