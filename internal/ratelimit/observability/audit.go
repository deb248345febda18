// Package observability provides audit logging helpers for the ratelimit module.
package observability

import (
	"context"
	"log/slog"

	"tillgate/internal/platform/audit"
	platformMW "tillgate/internal/platform/middleware"
	"tillgate/pkg/platform/middleware/requesttime"
)

// LogAudit is a shared helper for logging audit events across admission
// services. It logs to the structured logger and, when a publisher is
// configured, emits a durable audit event. Publisher failures are logged
// and swallowed; audit emission never fails a request.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher audit.Publisher, event, subject, reason string, attrList ...any) {
	requestID := platformMW.GetRequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	args := append(attrList, "event", event, "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, event, args...)
	}

	if publisher == nil {
		return
	}
	err := publisher.Emit(ctx, audit.Event{
		Action:    event,
		Subject:   subject,
		Reason:    reason,
		Decision:  "denied",
		RequestID: requestID,
		At:        requesttime.Now(ctx),
	})
	if err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}
