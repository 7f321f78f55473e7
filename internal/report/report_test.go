package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTopN_IdentityWhenFitsOrUnbounded(t *testing.T) {
	m := map[string]uint64{"a": 3, "b": 1}

	if got := TopN(m, 0); len(got) != 2 {
		t.Fatalf("n=0 should keep everything, got=%v", got)
	}
	if got := TopN(m, -1); len(got) != 2 {
		t.Fatalf("n<0 should keep everything, got=%v", got)
	}
	if got := TopN(m, 5); len(got) != 2 {
		t.Fatalf("n larger than map should keep everything, got=%v", got)
	}
}

func TestTopN_KeepsHighestCounts(t *testing.T) {
	m := map[string]uint64{"a": 10, "b": 50, "c": 1, "d": 30, "e": 7}

	got := TopN(m, 3)
	if len(got) != 3 {
		t.Fatalf("len=%d want=3 (%v)", len(got), got)
	}
	for _, k := range []string{"b", "d", "a"} {
		if got[k] != m[k] {
			t.Fatalf("key %q: got=%d want=%d", k, got[k], m[k])
		}
	}
}

func TestTopN_SingleSurvivor(t *testing.T) {
	m := map[string]uint64{"cold": 1, "warm": 2, "hot": 9}

	got := TopN(m, 1)
	if len(got) != 1 || got["hot"] != 9 {
		t.Fatalf("got=%v want=map[hot:9]", got)
	}
}

func TestSnapshot_WireFormat(t *testing.T) {
	snap := Snapshot{
		Cluster: "sessions",
		Host:    "agent-1",
		TS:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Counts:  map[string]uint64{"user:42": 7},
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	for _, want := range []string{`"cluster":"sessions"`, `"host":"agent-1"`, `"ts":"2024-05-01T12:00:00Z"`, `"counts":{"user:42":7}`} {
		if !strings.Contains(s, want) {
			t.Fatalf("payload %s missing %s", s, want)
		}
	}

	// Host is optional; agents without one should not emit an empty field.
	raw, err = json.Marshal(Snapshot{Cluster: "c", TS: snap.TS, Counts: snap.Counts})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), `"host"`) {
		t.Fatalf("empty host should be omitted, got %s", raw)
	}
}
