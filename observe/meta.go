package observe

// OperationMeta identifies one logical ARM operation for telemetry.
type OperationMeta struct {
	Service        string // Client name, e.g. "catalog" or "subscriptions" (required)
	Operation      string // Operation name, e.g. "publishers" (required)
	SubscriptionID string // Subscription scope (optional)
	Location       string // Azure region (optional)
	TenantID       string // Tenant of the signed-in user (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: arm.<service>.<operation>
func (m OperationMeta) SpanName() string {
	return "arm." + m.Service + "." + m.Operation
}

// OperationID returns <service>.<operation>.
func (m OperationMeta) OperationID() string {
	if m.Service == "" {
		return m.Operation
	}
	return m.Service + "." + m.Operation
}

// Validate reports whether the metadata names an operation.
func (m OperationMeta) Validate() error {
	if m.Operation == "" {
		return ErrMissingOperationName
	}
	return nil
}
