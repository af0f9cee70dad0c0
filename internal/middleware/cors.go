package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured origins; "*" or an empty list allows any origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	allowAll := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AddAllowHeaders("Authorization", RequestIDHeader)
	cfg.ExposeHeaders = []string{RequestIDHeader, "Content-Disposition", "Retry-After"}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
