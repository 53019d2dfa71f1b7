package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/westgate-schools/sms-api/internal/service"
	"github.com/westgate-schools/sms-api/pkg/response"
)

// ContextSchoolKey is the gin context key storing the resolved session/term.
const ContextSchoolKey = "schoolContext"

// AcademicContext resolves the current session and term before any finance
// or result handler runs. A school with neither configured cannot serve
// those routes, so resolution failure aborts with a server error rather
// than falling through to handlers.
func AcademicContext(academic *service.AcademicService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, err := academic.Current(c.Request.Context())
		if err != nil {
			logger.Error("failed to resolve academic context", zap.Error(err))
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSchoolKey, sc)
		c.Next()
	}
}
