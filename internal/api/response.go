package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/material-stock/internal/domain/stock"
)

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondCode(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Status: "error", Code: code, Message: message})
}

// statusFor maps an error code onto the HTTP status of the response.
func statusFor(code string) int {
	switch code {
	case "stock.not_found":
		return http.StatusNotFound
	case "stock.validation", "stock.unknown_status":
		return http.StatusBadRequest
	case "stock.internal":
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := stock.ErrorCode(err)
	status := statusFor(code)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zapRequest(r, err)...)
		message = "internal error"
	}
	respondCode(w, status, code, message)
}
