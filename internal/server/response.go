package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nhype/gigaam-inference/internal/transcribe"
)

// statusClientClosedRequest is logged when the client went away mid-request.
const statusClientClosedRequest = 499

type errorResponse struct {
	Detail string `json:"detail"`
}

type transcriptionResponse struct {
	Filename      string  `json:"filename"`
	Duration      float64 `json:"duration"`
	Transcription string  `json:"transcription"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Model       string `json:"model"`
	ModelStatus string `json:"model_status"`
}

type rootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, transcribe.ErrUnsupportedMedia), errors.Is(err, transcribe.ErrUnreadableMedia):
		return http.StatusBadRequest
	case errors.Is(err, transcribe.ErrModelNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, transcribe.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}
