package units

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Events counts activity of running units: ticks, file events and timer
// expiries.
type Events struct {
	total *prometheus.CounterVec
}

// NewEvents creates the counter and registers it on reg. A counter already
// registered on reg is reused.
func NewEvents(reg prometheus.Registerer) (*Events, error) {
	c := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omnisustain_unit_events_total",
			Help: "Total events observed by sustained units",
		},
		[]string{"unit", "kind"},
	)
	if reg != nil {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, err
			}
			c = existing
		}
	}
	return &Events{total: c}, nil
}

func (e *Events) inc(unit, kind string) {
	if e == nil {
		return
	}
	e.total.WithLabelValues(unit, kind).Inc()
}

// Count returns the counter for unit and kind.
func (e *Events) Count(unit, kind string) prometheus.Counter {
	return e.total.WithLabelValues(unit, kind)
}
