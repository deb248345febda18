// Package guard protects handler execution: it bounds request body size
// (declared and actual), races every handler against a hard deadline, and
// stamps defensive headers on the way out. It runs after the rate limiter
// and before any identity work.
package guard

import (
	"io"
	"net/http"
	"strconv"

	"tillgate/internal/transport/httputil"
	dErrors "tillgate/pkg/domain-errors"
	"tillgate/pkg/validation"
)

// readMethods expect no request body and skip size validation.
var readMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// SizeLimit validates request body size against the ceiling for the path.
//
// A declared Content-Length is checked up front: invalid, negative, or
// over-ceiling values are rejected with 413 before any body byte is read.
// With no declared length (chunked or lying clients), the body is wrapped so
// the cumulative bytes read are validated incrementally, and any single read
// is capped to bound peak memory.
func SizeLimit(ceilingFor func(path string) int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if readMethods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			ceiling := ceilingFor(r.URL.Path)

			if declared := r.Header.Get("Content-Length"); declared != "" {
				n, err := strconv.ParseInt(declared, 10, 64)
				if err != nil || n < 0 || n > ceiling {
					writeTooLarge(w, ceiling)
					return
				}
			}

			r.Body = &limitedBody{inner: r.Body, remaining: ceiling}
			next.ServeHTTP(w, r)
		})
	}
}

// limitedBody enforces the cumulative ceiling while the body streams in.
// Exceeding it surfaces a payload_too_large domain error from Read, which
// decode helpers translate to 413.
type limitedBody struct {
	inner     io.ReadCloser
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, dErrors.New(dErrors.CodePayloadTooLarge, "request body exceeds limit")
	}
	// Cap the single read, independent of the cumulative total.
	if int64(len(p)) > validation.MaxReadChunk {
		p = p[:validation.MaxReadChunk]
	}
	// Allow one byte past the ceiling so overflow is observable.
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}

	n, err := b.inner.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, dErrors.New(dErrors.CodePayloadTooLarge, "request body exceeds limit")
	}
	return n, err
}

func (b *limitedBody) Close() error {
	return b.inner.Close()
}

func writeTooLarge(w http.ResponseWriter, ceiling int64) {
	httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, &httputil.ErrorResponse{
		Error:   string(dErrors.CodePayloadTooLarge),
		Message: "Request body exceeds the limit of " + strconv.FormatInt(ceiling, 10) + " bytes.",
	})
}
