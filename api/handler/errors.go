package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pagescrape/models"
)

// respondError maps err to an HTTP status and writes the JSON error body.
// id names the record created before the failure, if any.
func respondError(c *gin.Context, err error, id string) {
	code := models.ErrorCode(err)
	status := mapErrorToStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "code", code, "error", err)
	}
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorMessage(err),
		Code:  code,
		ID:    id,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeInvalidState:
		return http.StatusConflict // 409
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeFetchFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}

// pageStatus is the status of a re-rendered form after a failed scrape:
// 422 for a bad URL, 502 for any fetch failure including timeouts.
func pageStatus(err error) int {
	switch {
	case models.ErrorCode(err) == models.ErrCodeInvalidInput:
		return http.StatusUnprocessableEntity
	case models.IsFetchError(err):
		return http.StatusBadGateway
	}
	return mapErrorToStatus(models.ErrorCode(err))
}

// Recover turns a panic into a 500 JSON response; wire with gin.CustomRecovery.
func Recover(c *gin.Context, recovered any) {
	slog.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
		Error: "Internal server error",
		Code:  models.ErrCodeInternal,
	})
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{Error: "Method not allowed"})
}
