package validation

import (
	"fmt"

	dErrors "tillgate/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size for ordinary
	// JSON endpoints (1 MB). Uploads get a separate, larger ceiling.
	MaxBodySize = 1 << 20

	// MaxUploadBodySize is the ceiling for upload/import endpoints (50 MB).
	MaxUploadBodySize = 50 << 20

	// MaxReadChunk caps the bytes returned by any single body read,
	// bounding peak memory independently of the cumulative total.
	MaxReadChunk = 64 * 1024

	// MaxSessionCookieBytes bounds the decoded session cookie payload.
	MaxSessionCookieBytes = 10 * 1024

	// MaxJSONNesting is the ceiling on opening braces accepted before a
	// full parse is attempted. A cheap structural heuristic, not a parser.
	MaxJSONNesting = 20
)

// String element length limits
const (
	// MaxIdentifierLength is the maximum length of an account identifier.
	MaxIdentifierLength = 100

	// MaxEmailLength is the maximum length of an email address.
	MaxEmailLength = 255

	// MaxDisplayNameLength is the maximum length of a display name.
	MaxDisplayNameLength = 200

	// MaxTokenLength is the maximum length of a bearer credential.
	MaxTokenLength = 4096

	// MaxGrantLength is the maximum length of a single permission grant.
	MaxGrantLength = 100
)

// Slice element count limits
const (
	// MaxGrants is the maximum number of permission grants per principal.
	MaxGrants = 100
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// Truncate returns s clipped to at most max bytes.
func Truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
