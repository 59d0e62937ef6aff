package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/cors"
)

// CORS wraps rs/cors for echo.  An origin list of just "*" allows any
// origin without credentials.
func CORS(origins []string) echo.MiddlewareFunc {
	allowAll := len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", echo.HeaderXRequestID},
		ExposedHeaders:   []string{echo.HeaderXRequestID, "X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: !allowAll,
	}
	if allowAll {
		opts.AllowedOrigins = []string{"*"}
	}
	return echo.WrapMiddleware(cors.New(opts).Handler)
}
