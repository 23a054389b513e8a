package metrics

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EntryEncoded(10)
	m.EntryEncoded(5)
	m.FileDecoded(7)
	m.DirDecoded()
	m.CollisionSkipped()
	m.TempDirAcquired()
	m.TempDirReleased(nil)
	m.TempDirReleased(errors.New("busy"))

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"entries encoded", m.entriesEncoded, 2},
		{"bytes encoded", m.bytesEncoded, 15},
		{"files decoded", m.entriesDecoded.WithLabelValues("file"), 1},
		{"dirs decoded", m.entriesDecoded.WithLabelValues("dir"), 1},
		{"bytes decoded", m.bytesDecoded, 7},
		{"collisions", m.collisionsSkipped, 1},
		{"acquired", m.tempDirsAcquired, 1},
		{"released", m.tempDirsReleased, 1},
		{"release failures", m.releaseFailures, 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.EntryEncoded(1)
	m.FileDecoded(1)
	m.DirDecoded()
	m.CollisionSkipped()
	m.TempDirAcquired()
	m.TempDirReleased(nil)
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.EntryEncoded(3)

	var buf bytes.Buffer
	if err := WriteText(reg, &buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if !strings.Contains(buf.String(), "zipdir_entries_encoded_total 1") {
		t.Errorf("text output missing counter:\n%s", buf.String())
	}
}
