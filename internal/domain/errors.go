package domain

import "fmt"

// DomainError is an error carrying a stable taxonomy code. Handlers map
// the code to an HTTP status and clients receive it unchanged.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a DomainError without an underlying cause.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause wraps err under a taxonomy code, keeping the
// original reachable through errors.Is and errors.As.
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Taxonomy codes carried on every DomainError
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnknownSymbol    = "UNKNOWN_SYMBOL"
	ErrCodeDataUnavailable  = "DATA_UNAVAILABLE"
	ErrCodeEmbedding        = "EMBEDDING_ERROR"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"
	ErrCodeSynthesis        = "SYNTHESIS_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Query failures
var (
	ErrUnknownSymbol    = NewDomainError(ErrCodeUnknownSymbol, "symbol is not known to the system")
	ErrDataUnavailable  = NewDomainError(ErrCodeDataUnavailable, "external data source unavailable")
	ErrEmbedding        = NewDomainError(ErrCodeEmbedding, "embedding could not be produced")
	ErrTimeout          = NewDomainError(ErrCodeTimeout, "operation exceeded its deadline")
	ErrInsufficientData = NewDomainError(ErrCodeInsufficientData, "not enough observations")
	ErrSynthesis        = NewDomainError(ErrCodeSynthesis, "insight synthesis failed")
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text is empty")
	ErrMismatchedPayload    = NewDomainError(ErrCodeValidation, "document payload does not match its source type")
	ErrDuplicateDay         = NewDomainError(ErrCodeValidation, "price series already contains this date")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrSeriesNotFound   = NewDomainError(ErrCodeNotFound, "price series not found")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
