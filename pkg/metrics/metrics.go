// Package metrics provides Prometheus counters for archive and temp
// directory activity.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics groups the zipdir counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	entriesEncoded    prometheus.Counter
	entriesDecoded    *prometheus.CounterVec
	bytesEncoded      prometheus.Counter
	bytesDecoded      prometheus.Counter
	collisionsSkipped prometheus.Counter
	tempDirsAcquired  prometheus.Counter
	tempDirsReleased  prometheus.Counter
	releaseFailures   prometheus.Counter
}

// New registers the counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		entriesEncoded: f.NewCounter(prometheus.CounterOpts{
			Name: "zipdir_entries_encoded_total",
			Help: "Total number of file entries written to archives",
		}),
		entriesDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zipdir_entries_decoded_total",
			Help: "Total number of archive entries extracted",
		}, []string{"kind"}),
		bytesEncoded: f.NewCounter(prometheus.CounterOpts{
			Name: "zipdir_bytes_encoded_total",
			Help: "Total uncompressed bytes written to archives",
		}),
		bytesDecoded: f.NewCounter(prometheus.CounterOpts{
			Name: "zipdir_bytes_decoded_total",
			Help: "Total uncompressed bytes extracted from archives",
		}),
		collisionsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "zipdir_collisions_skipped_total",
			Help: "Total number of extracted files skipped by the overwrite policy",
		}),
		tempDirsAcquired: f.NewCounter(prometheus.CounterOpts{
			Name: "zipdir_tempdirs_acquired_total",
			Help: "Total number of temp directories created",
		}),
		tempDirsReleased: f.NewCounter(prometheus.CounterOpts{
			Name: "zipdir_tempdirs_released_total",
			Help: "Total number of temp directories fully removed",
		}),
		releaseFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "zipdir_tempdir_release_failures_total",
			Help: "Total number of temp directory removals that stopped early",
		}),
	}
}

// EntryEncoded records one file entry of n bytes written.
func (m *Metrics) EntryEncoded(n int64) {
	if m == nil {
		return
	}
	m.entriesEncoded.Inc()
	m.bytesEncoded.Add(float64(n))
}

// FileDecoded records one file entry of n bytes extracted.
func (m *Metrics) FileDecoded(n int64) {
	if m == nil {
		return
	}
	m.entriesDecoded.WithLabelValues("file").Inc()
	m.bytesDecoded.Add(float64(n))
}

// DirDecoded records one directory entry extracted.
func (m *Metrics) DirDecoded() {
	if m == nil {
		return
	}
	m.entriesDecoded.WithLabelValues("dir").Inc()
}

// CollisionSkipped records a file left untouched by the overwrite policy.
func (m *Metrics) CollisionSkipped() {
	if m == nil {
		return
	}
	m.collisionsSkipped.Inc()
}

// TempDirAcquired records a created temp directory.
func (m *Metrics) TempDirAcquired() {
	if m == nil {
		return
	}
	m.tempDirsAcquired.Inc()
}

// TempDirReleased records the outcome of a temp directory removal.
func (m *Metrics) TempDirReleased(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.releaseFailures.Inc()
		return
	}
	m.tempDirsReleased.Inc()
}

// WriteText renders every metric family gathered from g in the Prometheus
// text format.
func WriteText(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
