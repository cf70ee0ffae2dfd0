package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "tsera.prom")
	stats := CycleStats{
		Planned:     map[string]int64{"create": 3, "noop": 1},
		Applied:     map[string]int64{"create": 3},
		Errors:      map[string]int64{"APPLY_IO": 1},
		Failed:      1,
		Duration:    250 * time.Millisecond,
		Runs:        2,
		LastSuccess: time.Unix(1767225600, 0),
	}
	if err := WriteTextfile(path, stats); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`tsera_plan_steps{action="create"} 3`,
		`tsera_plan_steps{action="noop"} 1`,
		`tsera_apply_steps{action="create"} 3`,
		`tsera_errors{code="APPLY_IO"} 1`,
		`tsera_apply_failed_steps 1`,
		`tsera_apply_duration_seconds 0.25`,
		`tsera_apply_runs 2`,
		`tsera_last_success_timestamp_seconds 1.7672256e+09`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTextfileEmptyStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tsera.prom")
	if err := WriteTextfile(path, CycleStats{}); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "tsera_apply_runs 0") {
		t.Errorf("expected zero gauges, got:\n%s", data)
	}
}
