package handler

import "github.com/gin-gonic/gin"

// publicBaseURL prefers the configured origin and otherwise rebuilds it from the request.
func publicBaseURL(c *gin.Context, configured string) string {
	if configured != "" {
		return configured
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
