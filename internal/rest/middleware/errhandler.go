package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/traceroot-ai/sim/internal/errors"
)

// ErrorHandler middleware converts errors attached to the gin context into
// the standard error response shape.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			status := ierr.HTTPStatusFromErr(err)
			c.JSON(status, ierr.NewErrorResponse(err))
		}
	}
}
