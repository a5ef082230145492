package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware using zerolog. Empty polls
// (204 responses) are logged at debug level so idle peers do not flood the
// log.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				level := zerolog.InfoLevel
				switch {
				case status == http.StatusNoContent:
					level = zerolog.DebugLevel
				case status >= http.StatusInternalServerError:
					level = zerolog.ErrorLevel
				}

				event := logger.WithLevel(level).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr)

				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if room := rctx.URLParam("room"); room != "" {
						event = event.Str("room_id", room)
					}
					if peer := rctx.URLParam("peer"); peer != "" {
						event = event.Str("peer_id", peer)
					}
				}
				event.Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
