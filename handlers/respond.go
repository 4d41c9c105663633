package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	apperrors "github.com/jonathanhudak/knowledge-collector/errors"
)

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
	}
}

func respondError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	message := "An error occurred while processing your request."
	if appErr, ok := err.(*apperrors.AppError); ok {
		message = appErr.Message
	}
	respondJSON(w, code, map[string]string{"error": message})
}
