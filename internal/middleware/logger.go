package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func RequestLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			defer func() {
				status := ww.Status()
				event := log.Info()
				if status >= http.StatusInternalServerError {
					event = log.Error()
				}
				event.
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("ip", r.RemoteAddr).
					Str("user_id", CallerID(r.Context())).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// StructuredLogger puts a request-scoped logger into the context; zerolog.Ctx picks it up downstream.
func StructuredLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if middleware.GetReqID(ctx) == "" {
				ctx = context.WithValue(ctx, middleware.RequestIDKey, strconv.FormatUint(middleware.NextRequestID(), 10))
			}

			reqLog := log.With().
				Str("request_id", middleware.GetReqID(ctx)).
				Str("user_id", CallerID(ctx)).
				Logger()

			next.ServeHTTP(w, r.WithContext(reqLog.WithContext(ctx)))
		})
	}
}
