package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestMessageBarWrites(t *testing.T) {
	var out bytes.Buffer
	bar := NewMessageBar(&out, "exporting", 3)
	for i := 0; i < 3; i++ {
		if err := bar.Add(1); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := bar.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if !strings.Contains(out.String(), "exporting") {
		t.Errorf("output %q does not mention the description", out.String())
	}
}

func TestMessageBarSilent(t *testing.T) {
	bar := NewMessageBar(nil, "quiet", -1)
	if err := bar.Add(5); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := bar.State().CurrentNum; got != 5 {
		t.Errorf("CurrentNum = %d, want 5", got)
	}
}
