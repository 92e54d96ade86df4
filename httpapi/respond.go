package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"drivendev/dialogue"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

const (
	errorTypeValidation    = "validation_error"
	errorTypeState         = "state_error"
	errorTypeConfiguration = "configuration_error"
	errorTypeSpeech        = "speech_error"
	errorTypeInternal      = "internal_error"
)

var errSpeech = errors.New("speech provider failed")

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, errorType string, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message, ErrorType: errorType})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// fail maps err onto the error taxonomy and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	trace.SpanFromContext(ctx).RecordError(err)

	message := err.Error()
	var reqErr *dialogue.RequestError
	if errors.As(err, &reqErr) {
		message = reqErr.Message
	}

	switch {
	case errors.Is(err, dialogue.ErrValidation):
		writeError(w, http.StatusBadRequest, errorTypeValidation, message)
	case dialogue.IsStateError(err):
		writeError(w, http.StatusBadRequest, errorTypeState, message)
	case dialogue.IsConfigError(err):
		s.logger.Logger(ctx).Error("[HTTP] Configuration error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorTypeConfiguration, message)
	case errors.Is(err, errSpeech):
		s.logger.Logger(ctx).Error("[HTTP] Speech provider error", zap.Error(err))
		writeError(w, http.StatusBadGateway, errorTypeSpeech, message)
	default:
		s.logger.Logger(ctx).Error("[HTTP] Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorTypeInternal, message)
	}
}
