package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pasabuyph/backend/internal/logger"
	"github.com/pasabuyph/backend/internal/pkg/apperror"
)

// ErrorHandler centralizes error responses. Errors attached to the context
// are classified through the application error taxonomy; anything unknown is
// masked as an internal error so database details never reach the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			// A handler that already responded still attaches internal
			// errors for logging.
			logContextErrors(c)
			return
		}

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			logContextErrors(c)

			appErr := apperror.AsAppError(err.Err)
			c.JSON(appErr.HTTPStatus, gin.H{
				"error": appErr.Message,
				"code":  appErr.Code,
			})
		}
	}
}

func logContextErrors(c *gin.Context) {
	if logger.Log == nil || len(c.Errors) == 0 {
		return
	}
	for _, err := range c.Errors {
		logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("Request error")
	}
}
