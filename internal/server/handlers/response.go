package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/pkceauth/pkg/api"
)

// unauthorizedMessage единое сообщение для всех отказов аутентификации
const unauthorizedMessage = "unauthorized"

// SendJSON отправляет JSON ответ
func SendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// SendError отправляет JSON ответ с ошибкой
func SendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	SendJSON(logger, w, resp, statusCode)
}

// SendUnauthorized отправляет непрозрачный 401: причина отказа клиенту не раскрывается
func SendUnauthorized(logger *slog.Logger, w http.ResponseWriter) {
	SendError(logger, w, unauthorizedMessage, http.StatusUnauthorized)
}
