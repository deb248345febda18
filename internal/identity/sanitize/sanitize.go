// Package sanitize turns untrusted structured input into trusted values by
// bounded parsing and fail-closed allow-listing. Every failure path returns
// absent; nothing here ever propagates a parse error to the caller.
package sanitize

import (
	"encoding/json"
	"strings"

	"tillgate/internal/identity/models"
	"tillgate/internal/identity/permissions"
	"tillgate/pkg/validation"
)

// ParseBounded parses raw as JSON after two cheap structural checks: the
// byte length must not exceed maxBytes, and the count of opening braces must
// not exceed the nesting ceiling. The brace count is a heuristic to reject
// pathological input before a full parse, not a precise depth measure.
func ParseBounded(raw string, maxBytes int) (map[string]any, bool) {
	if raw == "" || len(raw) > maxBytes {
		return nil, false
	}
	if strings.Count(raw, "{") > validation.MaxJSONNesting {
		return nil, false
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// SessionPayload is the allow-listed shape reconstructed from a session
// cookie. Absent fields are zero-valued; Role is empty when the raw role was
// missing or outside the closed set.
type SessionPayload struct {
	UserID      string
	Email       string
	Role        models.Role
	Token       string
	Permissions []string
}

// SanitizeSession copies only the recognized session fields out of an
// arbitrary decoded object, each independently validated. Invalid fields are
// dropped, not fatal; the whole payload is absent only if nothing
// recognized survives.
func SanitizeSession(raw map[string]any) (*SessionPayload, bool) {
	if raw == nil {
		return nil, false
	}

	var (
		payload  SessionPayload
		survived bool
	)

	if v, ok := raw["userId"].(string); ok && v != "" {
		payload.UserID = validation.Truncate(v, validation.MaxIdentifierLength)
		survived = true
	}
	if v, ok := raw["email"].(string); ok && ValidEmail(v) {
		payload.Email = v
		survived = true
	}
	if v, ok := raw["role"].(string); ok {
		if role, valid := models.ParseRole(v); valid {
			payload.Role = role
			survived = true
		}
	}
	if v, ok := raw["token"].(string); ok && v != "" && len(v) <= validation.MaxTokenLength {
		payload.Token = v
		survived = true
	}
	if v, ok := raw["permissions"].([]any); ok {
		grants := sanitizeGrants(v)
		if len(grants) > 0 {
			payload.Permissions = grants
			survived = true
		}
	}

	if !survived {
		return nil, false
	}
	return &payload, true
}

// sanitizeGrants keeps only well-formed string grants, capped in count and
// element length.
func sanitizeGrants(raw []any) []string {
	if len(raw) > validation.MaxGrants {
		raw = raw[:validation.MaxGrants]
	}
	grants := make([]string, 0, len(raw))
	for _, entry := range raw {
		g, ok := entry.(string)
		if !ok || len(g) > validation.MaxGrantLength || !permissions.WellFormed(g) {
			continue
		}
		grants = append(grants, g)
	}
	return grants
}

// ValidEmail checks the minimal local@domain shape with a length cap. It is
// not an RFC validator; descriptive fields only need to be safe, not
// deliverable.
func ValidEmail(email string) bool {
	if email == "" || len(email) > validation.MaxEmailLength {
		return false
	}
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != "" && !strings.Contains(domain, "@")
}
