package model

import (
	"encoding/json"
	"testing"
)

func TestViewModeText(t *testing.T) {
	for _, m := range []ViewMode{ViewSphere, ViewGallery} {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal %v: %v", m, err)
		}
		var got ViewMode
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got != m {
			t.Fatalf("round trip %v -> %s -> %v", m, data, got)
		}
	}

	var m ViewMode
	if err := json.Unmarshal([]byte(`"tunnel"`), &m); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if _, ok := ParseViewMode("Sphere"); ok {
		t.Fatalf("ParseViewMode should be case sensitive")
	}
}
