package engine

import "scadd/pkg/types"

// Message types of the NDJSON stdio protocol spoken with the engine
// host. One JSON object per line, both directions. Responses carry the
// request id they answer; progress notifications for the single
// in-flight request may interleave before its terminal message.
const (
	msgInit   = "init"
	msgRender = "render"
	msgCancel = "cancel"

	msgReady    = "ready"
	msgProgress = "progress"
	msgComplete = "complete"
	msgError    = "error"
)

// outMsg is an outbound message (daemon → engine host).
type outMsg struct {
	Type       string       `json:"type"`
	ID         string       `json:"id,omitempty"`
	Source     string       `json:"source,omitempty"`
	Parameters types.Params `json:"parameters,omitempty"`
	TimeoutMs  int          `json:"timeout_ms,omitempty"`
}

// inMsg is an inbound message (engine host → daemon). Bytes is the
// base64-encoded mesh payload on complete.
type inMsg struct {
	Type    string             `json:"type"`
	ID      string             `json:"id,omitempty"`
	Percent float64            `json:"percent,omitempty"` // -1 means indeterminate
	Message string             `json:"message,omitempty"`
	Bytes   []byte             `json:"bytes,omitempty"`
	Stats   *types.RenderStats `json:"stats,omitempty"`
	Code    int                `json:"code,omitempty"`
}
