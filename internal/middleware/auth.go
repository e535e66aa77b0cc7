package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campusfinder/internal/pkg/jwt"
	"campusfinder/internal/pkg/logger"
	"campusfinder/internal/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// JWTAuth rejects requests without a valid bearer token.
func JWTAuth(svc *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			reject(c, "authorization header missing")
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			reject(c, "authorization header is not a bearer token")
			return
		}

		claims, err := svc.ValidateToken(token)
		if errors.Is(err, jwt.ErrMissingSecret) {
			logger.FromContext(c.Request.Context()).Error().Err(err).Msg("cannot validate session")
			response.Unavailable(c)
			c.Abort()
			return
		}
		if err != nil {
			reject(c, "invalid or expired token")
			return
		}

		setCaller(c, claims)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and lets
// anonymous requests through otherwise. Websocket upgrades may pass the
// token as ?token= since browsers cannot set headers on them.
func OptionalAuth(svc *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && websocket.IsWebSocketUpgrade(c.Request) {
			token = c.Query("token")
			ok = token != ""
		}
		if ok {
			if claims, err := svc.ValidateToken(token); err == nil {
				setCaller(c, claims)
			}
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func setCaller(c *gin.Context, claims *jwt.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
}

// reject answers with the same envelope handlers use for ownership
// failures; the reason only goes to the log.
func reject(c *gin.Context, reason string) {
	logger.FromContext(c.Request.Context()).Debug().Str("path", c.FullPath()).Msg(reason)
	response.Unauthorized(c)
	c.Abort()
}
