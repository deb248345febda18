package service

import (
	"context"

	"tillgate/internal/platform/audit"
	platformMW "tillgate/internal/platform/middleware"
	"tillgate/pkg/platform/middleware/requesttime"
)

// logAudit records a security-relevant identity event to the structured log
// and, when configured, the durable audit sink. Emission never fails the
// request.
func (s *Service) logAudit(ctx context.Context, event, subject, reason, decision string, attrList ...any) {
	requestID := platformMW.GetRequestID(ctx)
	if requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	args := append(attrList, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)

	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		Action:    event,
		Subject:   subject,
		Reason:    reason,
		Decision:  decision,
		RequestID: requestID,
		At:        requesttime.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", event, "error", err)
	}
}
