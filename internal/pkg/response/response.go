package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/futig/design-agent/internal/entity"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// headers are already sent, nothing left to report
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes the status text with a message the client may show to the user
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Attachment writes a downloadable document
func Attachment(w http.ResponseWriter, summary *entity.Summary) {
	w.Header().Set("Content-Type", summary.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", summary.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(summary.Content)
}

// HTML writes a complete HTML document
func HTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}
