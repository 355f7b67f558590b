package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"user-auth/internal/domain"
	"user-auth/internal/repository"
	"user-auth/internal/service"
)

const (
	authUserKey        = "auth_user"
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// AuthMiddleware valida el access token de la cookie, resuelve al
// usuario y lo adjunta al contexto sin credenciales. No muta el store.
func AuthMiddleware(tokens *service.TokenService, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil || users == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			c.Abort()
			return
		}

		token, err := c.Cookie(accessTokenCookie)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			// Usuario borrado después de emitido el token.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(authUserKey, user.Sanitized())
		c.Next()
	}
}

// GetAuthUser obtiene el usuario autenticado desde el contexto.
func GetAuthUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}
