package router

import (
	"errors"
	"net/http"

	"github.com/systragroup/SG-DataDashboard/engine/geo"
	"github.com/systragroup/SG-DataDashboard/engine/infra/filestore"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/middleware/size"
	"github.com/systragroup/SG-DataDashboard/engine/study"
)

// Error codes
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrConflictCode           = "CONFLICT"
	ErrPayloadTooLargeCode    = "PAYLOAD_TOO_LARGE"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
)

// Error messages
const (
	ErrMsgAppStateNotInitialized = "application state not initialized"
	ErrMsgUploadTooLarge         = "uploaded file is too large"
)

// RequestError represents errors that can occur during request handling
type RequestError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Reason
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError
func NewRequestError(statusCode int, reason string, err error) *RequestError {
	return &RequestError{
		StatusCode: statusCode,
		Reason:     reason,
		Err:        err,
	}
}

// IsRequestError checks if the given error is a RequestError
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// GetErrorInfo extracts error information for the standardized response
func (e *RequestError) GetErrorInfo() *ErrorInfo {
	var details string
	if e.Err != nil && e.Err.Error() != e.Reason {
		details = e.Err.Error()
	}
	return &ErrorInfo{
		Code:    codeForStatus(e.StatusCode),
		Message: e.Reason,
		Details: details,
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequestCode
	case http.StatusNotFound:
		return ErrNotFoundCode
	case http.StatusConflict:
		return ErrConflictCode
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLargeCode
	case http.StatusServiceUnavailable:
		return ErrServiceUnavailableCode
	default:
		return ErrInternalCode
	}
}

var (
	notFoundErrors = []error{
		study.ErrStudyNotFound,
		study.ErrLayerNotFound,
		filestore.ErrFileNotFound,
		filestore.ErrInvalidID,
	}
	badRequestErrors = []error{
		study.ErrInvalidStudy,
		study.ErrInvalidKind,
		study.ErrZoneFieldsRequired,
		geo.ErrNoShapefile,
		geo.ErrMultipleShapefiles,
		geo.ErrIncompleteShapefile,
		geo.ErrUnsafePath,
		geo.ErrUnsupportedFormat,
		geo.ErrUnknownCRS,
		geo.ErrUnsupportedCRS,
		geo.ErrLayerRequired,
		geo.ErrLayerNotFound,
		geo.ErrFieldNotFound,
		geo.ErrEmptyLayer,
		geo.ErrInvalidGeometry,
	}
)

// ErrorFromDomain maps a use case error to its HTTP status. Internal errors
// keep a generic reason so storage details do not leak to the client.
func ErrorFromDomain(err error) *RequestError {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr
	case size.IsTooLarge(err):
		return NewRequestError(http.StatusRequestEntityTooLarge, ErrMsgUploadTooLarge, err)
	case errors.Is(err, study.ErrStudyExists):
		return NewRequestError(http.StatusConflict, err.Error(), err)
	case isAny(err, notFoundErrors):
		return NewRequestError(http.StatusNotFound, err.Error(), err)
	case isAny(err, badRequestErrors):
		return NewRequestError(http.StatusBadRequest, err.Error(), err)
	default:
		return NewRequestError(http.StatusInternalServerError, "internal server error", err)
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
