package e2e

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

// The test binary doubles as a fake engine host when re-executed with
// this variable set. It speaks the same NDJSON protocol the real
// engine host does, emitted here as raw maps since the wire types are
// private to the engine package.
const fakeEngineEnv = "SCADD_FAKE_ENGINE_E2E"

func TestMain(m *testing.M) {
	if os.Getenv(fakeEngineEnv) == "1" {
		runFakeEngine()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type wireMsg struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Source     string         `json:"source,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// runFakeEngine answers init with ready and every render with a mesh
// payload echoing the compiled source, so tests can assert that
// parameter overrides reached the engine.
func runFakeEngine() {
	enc := json.NewEncoder(os.Stdout)
	dec := json.NewDecoder(os.Stdin)
	for {
		var m wireMsg
		if err := dec.Decode(&m); err != nil {
			return
		}
		switch m.Type {
		case "init":
			_ = enc.Encode(map[string]any{"type": "ready"})
		case "render":
			if strings.Contains(m.Source, "broken(") {
				_ = enc.Encode(map[string]any{
					"type": "error", "id": m.ID, "code": 2,
					"message": "syntax error in broken()",
				})
				continue
			}
			_ = enc.Encode(map[string]any{
				"type": "progress", "id": m.ID, "percent": 50, "message": "meshing",
			})
			_ = enc.Encode(map[string]any{
				"type": "complete", "id": m.ID,
				"bytes": []byte(m.Source),
				"stats": map[string]any{"triangles": 2, "size_bytes": len(m.Source)},
			})
		}
	}
}
