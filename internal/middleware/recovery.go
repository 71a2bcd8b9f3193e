package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/pkg/utils"
)

func Recovery(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil && rvr != http.ErrAbortHandler {
					log.Error().
						Interface("recover", rvr).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Str("user_id", CallerID(r.Context())).
						Msg("Panic recovered")

					utils.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

func Timeout(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, utils.NewErrorBody(http.StatusServiceUnavailable, "", "Request timeout").String())
	}
}
