package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/infra/server/appstate"
	"github.com/k2brd/k2brd/pkg/logger"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Status  int        `json:"status"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

func RespondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// RespondWithError writes the error envelope for reqErr and aborts the chain.
func RespondWithError(c *gin.Context, reqErr *RequestError) {
	logRequestError(c, reqErr)
	c.AbortWithStatusJSON(reqErr.StatusCode, Response{
		Status:  reqErr.StatusCode,
		Message: http.StatusText(reqErr.StatusCode),
		Error:   reqErr.GetErrorInfo(),
	})
}

// RespondWithServerError answers 500 with a fixed reason and logs err.
func RespondWithServerError(c *gin.Context, reason string, err error) {
	RespondWithError(c, NewRequestError(http.StatusInternalServerError, reason, err))
}

// GetRequestBody binds the JSON body into T, answering 400 when it fails.
func GetRequestBody[T any](c *gin.Context) *T {
	var body T
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondWithError(c, NewRequestError(http.StatusBadRequest, ErrMsgInvalidRequestBody, err))
		return nil
	}
	return &body
}

// GetAppState returns the request-scoped state or answers 500.
func GetAppState(c *gin.Context) *appstate.State {
	state, err := appstate.GetState(c.Request.Context())
	if err != nil {
		RespondWithServerError(c, ErrMsgAppStateNotInitialized, err)
		return nil
	}
	return state
}

func logRequestError(c *gin.Context, reqErr *RequestError) {
	log := logger.FromContext(c.Request.Context())
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := []any{
		"status", reqErr.StatusCode,
		"reason", reqErr.Reason,
		"route", route,
	}
	if reqErr.Err != nil {
		fields = append(fields, "error", reqErr.Err)
	}
	if requestID := c.Writer.Header().Get(HeaderRequestID); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if reqErr.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
		return
	}
	log.Warn("request failed", fields...)
}

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"
