package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/memgate/memgate/errors"
	"github.com/memgate/memgate/internal/logger"
	"go.uber.org/zap"
)

// Interceptor wraps a handler with cross-cutting behavior. The entry
// router composes an explicit ordered list of these instead of relying on
// framework middleware chaining.
type Interceptor func(http.Handler) http.Handler

// Chain composes interceptors so the first listed runs outermost.
func Chain(interceptors ...Interceptor) Interceptor {
	return func(next http.Handler) http.Handler {
		for i := len(interceptors) - 1; i >= 0; i-- {
			next = interceptors[i](next)
		}
		return next
	}
}

// Recovery converts panics during request handling into a generic 500
// response instead of crashing the process.
func Recovery(errs *errors.ErrorHandler) Interceptor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					errs.Handle(errors.Internal(fmt.Errorf("panic: %v", rec)))
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogging logs each request with its duration.
func RequestLogging() Interceptor {
	log := logger.Module("gateway")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("Request handled",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// CORS sets cross-origin headers and answers preflight requests.
func CORS(allowOrigin string) Interceptor {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
