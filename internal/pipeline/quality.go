package pipeline

import (
	"time"

	"scadd/pkg/types"
)

// Quality is a named render tier bundling a detail ceiling and a timeout.
type Quality struct {
	Name string
	// MaxDetailParam names the facet/resolution parameter clamped for
	// this tier ("$fn" in the source dialect). Empty disables clamping.
	MaxDetailParam string
	MaxDetail      float64
	Timeout        time.Duration
}

// Default tiers. Preview trades fidelity for iteration speed; full is
// what the download path uses.
func DefaultPreview() Quality {
	return Quality{Name: "preview", MaxDetailParam: "$fn", MaxDetail: 32, Timeout: 20 * time.Second}
}

func DefaultFull() Quality {
	return Quality{Name: "full", Timeout: 2 * time.Minute}
}

// clamp returns a copy of params with the tier's detail ceiling
// applied. The caller's snapshot is never mutated.
func (q Quality) clamp(params types.Params) types.Params {
	out := params.Clone()
	if out == nil {
		out = types.Params{}
	}
	if q.MaxDetailParam == "" {
		return out
	}
	v, ok := out[q.MaxDetailParam]
	if !ok {
		return out
	}
	if f, ok := asFloat(v); ok && f > q.MaxDetail {
		out[q.MaxDetailParam] = q.MaxDetail
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
