package bodylimit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/student-portfolio-api/pkg/errors"
	"github.com/noah-isme/student-portfolio-api/pkg/response"
)

// New caps request bodies at limit bytes. Requests that declare a larger
// Content-Length are refused up front; others fail when the reader overruns.
func New(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			response.Error(c, appErrors.ErrPayloadTooLarge)
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
