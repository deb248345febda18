// Package permissions evaluates the flat module:operation grant model.
// There is no hierarchy beyond the single wildcard; a principal's effective
// access is auditable by reading its grant set.
package permissions

import "strings"

// Wildcard short-circuits every check.
const Wildcard = "all"

// Module names the protected back-office areas.
type Module string

const (
	ModuleUsers     Module = "users"
	ModuleProducts  Module = "products"
	ModuleSales     Module = "sales"
	ModuleCustomers Module = "customers"
	ModuleInventory Module = "inventory"
	ModuleReports   Module = "reports"
)

// Operation names the CRUD verbs crossed with each module.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Grant renders the canonical module:operation string.
func Grant(module Module, op Operation) string {
	return string(module) + ":" + string(op)
}

// IsAuthorized reports whether grants allow the (module, operation) pair.
// Duplicates are irrelevant and only exact matches count.
func IsAuthorized(grants []string, module Module, op Operation) bool {
	want := Grant(module, op)
	for _, g := range grants {
		if g == Wildcard || g == want {
			return true
		}
	}
	return false
}

// WellFormed reports whether a raw grant string is the wildcard or has the
// module:operation shape with non-empty sides. Used when sanitizing grants
// from untrusted input; it does not check against the closed module set, so
// new modules can ship without an edge change.
func WellFormed(grant string) bool {
	if grant == Wildcard {
		return true
	}
	module, op, ok := strings.Cut(grant, ":")
	return ok && module != "" && op != ""
}
