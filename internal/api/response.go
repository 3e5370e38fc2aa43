package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response with a taxonomy code
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// ErrorCode extracts the taxonomy code of an error. Wrapped sentinels keep
// their code; anything else is an internal error.
func ErrorCode(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return domain.ErrCodeInternalError
}

// statusByCode maps taxonomy codes to HTTP statuses. Codes without an
// entry, synthesis and internal failures included, answer 500.
var statusByCode = map[string]int{
	domain.ErrCodeValidation:       http.StatusBadRequest,
	domain.ErrCodeInvalidOperation: http.StatusBadRequest,
	domain.ErrCodeUnauthorized:     http.StatusUnauthorized,
	domain.ErrCodeNotFound:         http.StatusNotFound,
	domain.ErrCodeUnknownSymbol:    http.StatusNotFound,
	domain.ErrCodeInsufficientData: http.StatusUnprocessableEntity,
	domain.ErrCodeDataUnavailable:  http.StatusBadGateway,
	domain.ErrCodeEmbedding:        http.StatusBadGateway,
	domain.ErrCodeTimeout:          http.StatusGatewayTimeout,
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByCode[ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	Error(w, DomainErrorToHTTP(err), ErrorCode(err), err.Error())
}
