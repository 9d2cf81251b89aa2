package main

import (
	"testing"
	"time"

	"scadd/internal/config"
)

func TestQualityTiersDefaults(t *testing.T) {
	preview, full := qualityTiers(config.Config{})
	if preview.Name != "preview" || full.Name != "full" {
		t.Fatalf("tiers: %q %q", preview.Name, full.Name)
	}
	if preview.MaxDetail != 32 || preview.Timeout != 20*time.Second {
		t.Fatalf("preview defaults: %+v", preview)
	}
	if full.Timeout != 2*time.Minute {
		t.Fatalf("full defaults: %+v", full)
	}
}

func TestQualityTiersConfigOverrides(t *testing.T) {
	preview, full := qualityTiers(config.Config{
		PreviewTimeoutMs: 5000,
		PreviewMaxDetail: 64,
		FullTimeoutMs:    90000,
	})
	if preview.Timeout != 5*time.Second {
		t.Fatalf("preview timeout: %v", preview.Timeout)
	}
	if preview.MaxDetail != 64 {
		t.Fatalf("preview max detail: %v", preview.MaxDetail)
	}
	if preview.MaxDetailParam != "$fn" {
		t.Fatalf("clamp key changed: %q", preview.MaxDetailParam)
	}
	if full.Timeout != 90*time.Second {
		t.Fatalf("full timeout: %v", full.Timeout)
	}
}

func TestMsOrZero(t *testing.T) {
	if got := msOrZero(0); got != 0 {
		t.Fatalf("got %v", got)
	}
	if got := msOrZero(-5); got != 0 {
		t.Fatalf("got %v", got)
	}
	if got := msOrZero(1500); got != 1500*time.Millisecond {
		t.Fatalf("got %v", got)
	}
}
