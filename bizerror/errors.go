package bizerror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict the ledger changed between the read and the write of a read-modify-write cycle.
	ErrConflict = errors.New("ledger changed since it was read")

	ErrMissingArtifact = &ErrValidation{Code: "assignment.missing_artifact", Field: "documentRef",
		Message: "document reference is required"}
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}

// ErrValidation input rejected before the ledger is touched.
type ErrValidation struct {
	Code    string
	Field   string
	Message string
}

func NewValidationError(field, message string) *ErrValidation {
	return &ErrValidation{Field: field, Message: message}
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}
func (e *ErrValidation) Respond() *BizErrorDetail {
	code := e.Code
	if code == "" {
		code = "assignment.validation_failed"
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: code, Message: e.Error(), Data: e.Field}
}

// ErrConfiguration the roster or a cycle is unusable, not retryable until the configuration is fixed.
type ErrConfiguration struct {
	Message string
}

func (e *ErrConfiguration) Error() string {
	return "configuration error: " + e.Message
}
func (e *ErrConfiguration) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusInternalServerError, Code: "roster.misconfigured", Message: e.Error()}
}

// ErrPersistence the backing store failed. When Ambiguous is true the write may or may not
// have landed, and the caller must re-read before deciding to retry.
type ErrPersistence struct {
	Op        string
	Ambiguous bool
	Cause     error
}

func (e *ErrPersistence) Unwrap() error {
	return e.Cause
}
func (e *ErrPersistence) Error() string {
	msg := "ledger " + e.Op + " failed"
	if e.Ambiguous {
		msg += " (outcome unknown)"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}
func (e *ErrPersistence) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusServiceUnavailable, Code: "ledger.persistence_failure",
		Message: e.Error(), Data: map[string]interface{}{"ambiguous": e.Ambiguous}}
}
