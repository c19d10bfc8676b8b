package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/overall-progress/internal/progress"
)

// PrometheusSink exports poll outcomes and the last applied indicator state.
type PrometheusSink struct {
	pollsStarted  prometheus.Counter
	pollsTotal    *prometheus.CounterVec
	pollDuration  *prometheus.HistogramVec
	progressValue prometheus.Gauge
	active        prometheus.Gauge
	lastSeq       prometheus.Gauge
	missingView   prometheus.Counter
}

// NewPrometheusSink registers the collectors against reg, or the default
// registerer when reg is nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		pollsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progress_polls_started_total",
			Help: "Poll ticks that issued a request.",
		}),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_polls_total",
			Help: "Completed poll ticks partitioned by result.",
		}, []string{"result"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "progress_poll_duration_seconds",
			Help:    "Request latency per poll partitioned by result.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"result"}),
		progressValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_percent",
			Help: "Last applied overall progress percentage.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_indicator_active",
			Help: "1 while the indicator is shown, 0 when hidden.",
		}),
		lastSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_last_applied_seq",
			Help: "Sequence number of the last applied poll.",
		}),
		missingView: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progress_render_missing_container_total",
			Help: "Applied polls that found no indicator container on the page.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.pollsStarted,
		s.pollsTotal,
		s.pollDuration,
		s.progressValue,
		s.active,
		s.lastSeq,
		s.missingView,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	if evt.Stage == progress.StagePollStart {
		s.pollsStarted.Inc()
		return
	}
	result := evt.Result()
	if result == "" {
		return
	}
	s.pollsTotal.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.pollDuration.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if evt.Stage != progress.StagePollDone {
		return
	}
	s.lastSeq.Set(float64(evt.Seq))
	if !evt.Rendered {
		s.missingView.Inc()
	}
	if evt.Active {
		s.active.Set(1)
		s.progressValue.Set(evt.Progress)
		return
	}
	s.active.Set(0)
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
