package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	emailKey        = "token_email"
)

// requestID reuses an inbound X-Request-ID or assigns a new one.
func (s *HTTPServer) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *HTTPServer) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// bearerAuth requires a valid token whose subject is the :email path param.
func (s *HTTPServer) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		email, err := auth.GetEmailFromToken(strings.TrimSpace(token), s.jwtSecret)
		if err != nil {
			detail := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				detail = "token expired"
			}
			abort(c, http.StatusUnauthorized, "unauthorized", detail)
			return
		}

		if email != c.Param("email") {
			abort(c, http.StatusForbidden, "forbidden", common.ErrForbidden.Error())
			return
		}

		c.Set(emailKey, email)
		c.Next()
	}
}

func abort(c *gin.Context, status int, reason, detail string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: reason, Detail: detail})
}
