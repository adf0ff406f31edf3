package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestScrapeEventLogsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf, Format: "json"})
	t.Cleanup(func() { Init(DefaultConfig()) })

	ScrapeEvent(10, 7, 2, 250*time.Millisecond)

	var fields map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if fields["fetched"] != float64(10) {
		t.Errorf("fetched = %v, want 10", fields["fetched"])
	}
	if fields["updated"] != float64(7) {
		t.Errorf("updated = %v, want 7", fields["updated"])
	}
	if fields["deactivated"] != float64(2) {
		t.Errorf("deactivated = %v, want 2", fields["deactivated"])
	}
}
