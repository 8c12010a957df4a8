package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/middleware"
	"github.com/carebridge/community-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) (access.Actor, bool) {
	return middleware.CurrentActor(c)
}
