package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/systragroup/SG-DataDashboard/engine/infra/server/appstate"
	"github.com/systragroup/SG-DataDashboard/engine/study/uc"
	"github.com/systragroup/SG-DataDashboard/pkg/logger"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RespondOK writes a success payload. The status field is what the pages'
// scripts test before reading the rest.
func RespondOK(c *gin.Context, payload gin.H) {
	body := gin.H{"status": StatusSuccess}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// RespondWithError writes the error envelope and aborts the chain.
func RespondWithError(c *gin.Context, err error) {
	reqErr := ErrorFromDomain(err)
	info := reqErr.GetErrorInfo()
	logError(c, reqErr, info)
	body := gin.H{
		"status":  StatusError,
		"message": info.Message,
		"code":    info.Code,
	}
	if info.Details != "" && reqErr.StatusCode < http.StatusInternalServerError {
		body["details"] = info.Details
	}
	var fieldsErr *uc.FieldsError
	if errors.As(err, &fieldsErr) {
		body["fields"] = fieldsErr.Fields
	}
	c.AbortWithStatusJSON(reqErr.StatusCode, body)
}

func logError(c *gin.Context, reqErr *RequestError, info *ErrorInfo) {
	log := logger.FromContext(c.Request.Context())
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := []any{
		"status", reqErr.StatusCode,
		"code", info.Code,
		"route", route,
		"path", c.Request.URL.Path,
	}
	if reqErr.Err != nil {
		fields = append(fields, "error", reqErr.Err)
	}
	if reqErr.StatusCode >= http.StatusInternalServerError {
		log.Error("Request failed", fields...)
		return
	}
	log.Debug("Request rejected", fields...)
}

// GetAppState returns the application state, answering 500 when missing.
func GetAppState(c *gin.Context) (*appstate.State, bool) {
	state, err := appstate.GetState(c.Request.Context())
	if err != nil {
		RespondWithError(c, NewRequestError(http.StatusInternalServerError, ErrMsgAppStateNotInitialized, err))
		return nil, false
	}
	return state, true
}

// GetStudyID reads the :study path parameter, answering 400 when blank.
func GetStudyID(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("study"))
	if id == "" {
		RespondWithError(c, NewRequestError(http.StatusBadRequest, "study id is required", nil))
	}
	return id
}
