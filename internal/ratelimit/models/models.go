package models

import (
	"strings"
	"time"
)

// EndpointClass is the static sensitivity category of a request path.
// Each class maps to a fixed (window, max requests, block duration) triple.
type EndpointClass string

const (
	// ClassAuth: credential endpoints get the tightest quota.
	ClassAuth EndpointClass = "auth"
	// ClassUpload: bulk import/upload endpoints, strictest quota and the
	// largest body ceiling.
	ClassUpload EndpointClass = "upload"
	// ClassAPI: general API endpoints.
	ClassAPI EndpointClass = "api"
	// ClassDefault: everything else.
	ClassDefault EndpointClass = "default"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAuth, ClassUpload, ClassAPI, ClassDefault:
		return true
	}
	return false
}

// ClassifyPath maps a request path to its endpoint class. Pure function of
// the path; the mapping is static configuration, not mutable state.
func ClassifyPath(path string) EndpointClass {
	switch {
	case strings.HasPrefix(path, "/auth"):
		return ClassAuth
	case strings.HasPrefix(path, "/upload"), strings.HasPrefix(path, "/import"):
		return ClassUpload
	case strings.HasPrefix(path, "/api"), strings.HasPrefix(path, "/admin"):
		return ClassAPI
	default:
		return ClassDefault
	}
}

// DenyReason distinguishes why admission was refused.
type DenyReason string

const (
	// ReasonLimitExceeded: the sliding window filled; a punitive block was
	// imposed alongside this denial.
	ReasonLimitExceeded DenyReason = "limit_exceeded"
	// ReasonBlocked: a previously imposed block is still in effect.
	ReasonBlocked DenyReason = "blocked"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed    bool       `json:"allowed"`
	Limit      int        `json:"limit"`
	Remaining  int        `json:"remaining"`
	ResetAt    time.Time  `json:"reset_at"`
	RetryAfter int        `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Reason     DenyReason `json:"reason,omitempty"`
}

// BlockedClient describes one currently blocked address, for operator views.
type BlockedClient struct {
	Address      string    `json:"address"`
	BlockedUntil time.Time `json:"blocked_until"`
	RetryAfter   int       `json:"retry_after"` // seconds of cooldown remaining
}
