package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/lottery-service/internal/errs"
	"github.com/psds-microservice/lottery-service/internal/service"
)

const adminKey = "admin"

// RequireAdmin resolves the session cookie and stores the admin in the gin context.
func RequireAdmin(auth service.AuthServicer, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(cookieName)
		admin, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			fail(c, err, "system error")
			return
		}
		c.Set(adminKey, admin)
		c.Next()
	}
}

// CurrentAdmin returns the admin stored by RequireAdmin.
func CurrentAdmin(c *gin.Context) (*service.AdminIdentity, error) {
	v, exists := c.Get(adminKey)
	if !exists {
		return nil, errs.ErrUnauthenticated
	}
	admin, isAdmin := v.(*service.AdminIdentity)
	if !isAdmin {
		return nil, errs.ErrUnauthenticated
	}
	return admin, nil
}

// RequestLogger logs method, path, status and latency of every request.
func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Printf("request method=%s path=%s status=%d duration=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// CORS allows credentialed requests from the configured origins. "*" reflects any origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			allowAll = true
		default:
			allowed[origin] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		_, isAllowed := allowed[origin]
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		if !allowAll && !isAllowed {
			if preflight {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "origin not allowed"})
				return
			}
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		if preflight {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
