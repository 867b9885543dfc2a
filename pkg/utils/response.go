package utils

import (
	"encoding/json"
	"net/http"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/logger"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorBody is the envelope of every error response
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// Error writes err as {"error": {"code", "message"}} with the status of its kind.
// Unclassified errors are logged and reported as a generic 500.
func Error(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		logger.WithComponent("http").WithError(err).Error("request failed")
	}
	JSON(w, kind.HTTPStatus(), ErrorBody{Error: ErrorDetail{
		Code:    kind.Code(),
		Message: apperrors.Message(err),
	}})
}

// ErrorMessage writes an error of the given kind without an underlying error value
func ErrorMessage(w http.ResponseWriter, kind apperrors.Kind, message string) {
	Error(w, apperrors.New(kind, "%s", message))
}
