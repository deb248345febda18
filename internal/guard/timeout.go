package guard

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"tillgate/internal/platform/middleware"
	"tillgate/internal/transport/httputil"
	dErrors "tillgate/pkg/domain-errors"
)

// Timeout races each handler against a hard deadline. The handler runs in its
// own goroutine against a buffered response; only the winner of the race
// touches the real ResponseWriter. A handler that finishes after the deadline
// has its buffered output discarded.
//
// The request context carries the same deadline so downstream calls cancel
// instead of running on against a client that already got a 408.
func Timeout(d time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			buf := newBufferedResponse()
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						logger.Error("handler_panic",
							"panic", rec,
							"path", r.URL.Path,
							"request_id", middleware.GetRequestID(ctx),
							"stack", string(debug.Stack()),
						)
						panicked <- rec
						return
					}
					close(done)
				}()
				next.ServeHTTP(buf, r.WithContext(ctx))
			}()

			select {
			case <-done:
				buf.flushTo(w)
			case <-panicked:
				httputil.WriteError(w, http.StatusInternalServerError,
					string(dErrors.CodeInternal), "Internal server error.")
			case <-ctx.Done():
				logger.Warn("request_timeout",
					"path", r.URL.Path,
					"timeout_ms", d.Milliseconds(),
					"request_id", middleware.GetRequestID(ctx),
				)
				httputil.WriteError(w, http.StatusRequestTimeout,
					string(dErrors.CodeTimeout), "Request processing exceeded the time limit.")
			}
		})
	}
}

// bufferedResponse captures a handler's full response so it can be replayed
// atomically, or dropped if the deadline won.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) { b.status = status }

func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }

func (b *bufferedResponse) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, vv := range b.header {
		dst[k] = vv
	}
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}
