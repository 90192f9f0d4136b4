package agent

import "context"

// Request is one outbound review exchange with the external AI reviewer.
type Request struct {
	// AgentRef is the opaque external-agent handle from the registry,
	// forwarded upstream for attribution.
	AgentRef string
	// Message is the fully composed review prompt.
	Message string
	// ImagePNG, when set, attaches the rendered first sheet (vision mode).
	ImagePNG []byte
	// Schema, when set, constrains the response to strict
	// schema-conformant JSON under SchemaName.
	SchemaName string
	Schema     map[string]interface{}
}

// Reply is the raw upstream answer.
type Reply struct {
	Text string
	// Ref is the upstream conversation/response reference, retained in
	// the submission result for audit.
	Ref string
}

// Reviewer is the external AI collaborator capability. Implementations
// are scoped per submission call and must respect ctx cancellation; the
// pipeline imposes the bounded wait.
type Reviewer interface {
	Review(ctx context.Context, req Request) (*Reply, error)
}
