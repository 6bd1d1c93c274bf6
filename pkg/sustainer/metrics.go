package sustainer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors shared by every sustainer built
// with it. Series are labeled by sustainer name.
type Metrics struct {
	sustained  *prometheus.GaugeVec
	admissions *prometheus.CounterVec
	releases   *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. Collectors
// already registered on reg by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sustained: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "omnisustain_sustained_units",
				Help: "Number of units currently sustained",
			},
			[]string{"sustainer"},
		),
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omnisustain_admissions_total",
				Help: "Total units admitted and started",
			},
			[]string{"sustainer"},
		),
		releases: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omnisustain_releases_total",
				Help: "Total units stopped by release, release-all or teardown",
			},
			[]string{"sustainer"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omnisustain_conversion_failures_total",
				Help: "Total admissions that failed to convert or start",
			},
			[]string{"sustainer"},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.sustained, err = register(reg, m.sustained)
	if err != nil {
		return nil, err
	}
	if m.admissions, err = register(reg, m.admissions); err != nil {
		return nil, err
	}
	if m.releases, err = register(reg, m.releases); err != nil {
		return nil, err
	}
	if m.failures, err = register(reg, m.failures); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// scoped is the per-sustainer view of Metrics. The zero value discards.
type scoped struct {
	sustained  prometheus.Gauge
	admissions prometheus.Counter
	releases   prometheus.Counter
	failures   prometheus.Counter
}

func (m *Metrics) scope(name string) scoped {
	if m == nil {
		return scoped{}
	}
	return scoped{
		sustained:  m.sustained.WithLabelValues(name),
		admissions: m.admissions.WithLabelValues(name),
		releases:   m.releases.WithLabelValues(name),
		failures:   m.failures.WithLabelValues(name),
	}
}

func (s scoped) admitted(n int) {
	if s.admissions == nil {
		return
	}
	s.admissions.Inc()
	s.sustained.Set(float64(n))
}

func (s scoped) released(count, n int) {
	if s.releases == nil {
		return
	}
	s.releases.Add(float64(count))
	s.sustained.Set(float64(n))
}

func (s scoped) failed() {
	if s.failures == nil {
		return
	}
	s.failures.Inc()
}
