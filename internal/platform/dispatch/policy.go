package dispatch

import "fmt"

// Operation is a write routed through the Policy.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpCancel Operation = "cancel"
)

// past renders the operation for user-facing notices.
func (op Operation) past() string {
	if op == OpCancel {
		return "cancelled"
	}
	return string(op) + "d"
}

// Policy decides whether writes land in the mock store or the upstream.
type Policy struct {
	MockCRUD bool
}

// DefaultPolicy routes every write to the mock store, since the public
// upstream servers are read-only.
func DefaultPolicy() Policy {
	return Policy{MockCRUD: true}
}

// ShouldUseMockCRUD reports whether op goes to the mock store. The flag is
// global; it does not vary per operation or entity type.
func (p Policy) ShouldUseMockCRUD(op Operation) bool {
	return p.MockCRUD
}

// MockMessage is the user-facing notice attached to a write that landed in
// the mock store.
func MockMessage(op Operation, resource string) string {
	return fmt.Sprintf("Successfully %s %s using demonstration mode. In a production environment, this would be saved to the FHIR server.", op.past(), resource)
}

// UpstreamMessage is the notice attached to a write the upstream accepted.
func UpstreamMessage(op Operation, resource string) string {
	return fmt.Sprintf("Successfully %s %s on the FHIR server.", op.past(), resource)
}
