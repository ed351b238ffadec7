package middlewares

import (
	"net/http"
	"strings"

	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and copies the identity claims
// into the request context so the models layer can scope by organization.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claims, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || claims.UserId == "" || claims.OrganizationId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), auth)
		ctx = utils.SetUserIdInContext(ctx, claims.UserId)
		ctx = utils.SetUserRoleInContext(ctx, claims.Role)
		ctx = utils.SetOrganizationIdInContext(ctx, claims.OrganizationId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
