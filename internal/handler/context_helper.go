package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/westgate-schools/sms-api/internal/middleware"
	"github.com/westgate-schools/sms-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func schoolContextFrom(c *gin.Context) *models.SchoolContext {
	value, exists := c.Get(middleware.ContextSchoolKey)
	if !exists {
		return nil
	}
	sc, ok := value.(*models.SchoolContext)
	if !ok {
		return nil
	}
	return sc
}
