package types

import "time"

// Design represents a discoverable parametric design source on disk.
type Design struct {
	// Stable identifier for the design.
	// example: gridfinity-box.scad
	ID string `json:"id" example:"gridfinity-box.scad"`
	// Human-friendly name.
	// example: gridfinity-box.scad
	Name string `json:"name" example:"gridfinity-box.scad"`
	// Absolute path to the source file on disk.
	// example: /home/user/designs/gridfinity-box.scad
	Path string `json:"path" example:"/home/user/designs/gridfinity-box.scad"`
}

// Params is a name→value mapping of design parameters. Values are
// strings, numbers, or booleans; anything else is passed through the
// override compiler's generic literal encoder.
type Params map[string]any

// Clone returns a shallow copy so callers' snapshots are never mutated.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// RenderStats describes the computed mesh payload.
type RenderStats struct {
	// Number of triangles in the mesh.
	// example: 12480
	Triangles int `json:"triangles" example:"12480"`
	// Payload size in bytes.
	// example: 624084
	SizeBytes int `json:"size_bytes" example:"624084"`
}

// RenderResult is the output of one engine invocation. The byte payload
// is owned by whichever cache entry or in-flight request produced it;
// callers must treat it as read-only.
type RenderResult struct {
	Bytes      []byte
	Stats      RenderStats
	ProducedAt time.Time
}
