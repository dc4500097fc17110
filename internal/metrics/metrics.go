// Package metrics exports the progress of a simulation run as prometheus
// metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shreekarashastry/miningsim/simulation"
)

const (
	namespace        = "miningsim"
	participantLabel = "participant"
	c_feedBuffer     = 256
)

// Collector aggregates RoundRecords. It implements prometheus.Collector and
// is safe for concurrent use.
type Collector struct {
	rounds    prometheus.Counter
	mined     *prometheus.CounterVec
	published *prometheus.CounterVec
	invalid   *prometheus.CounterVec
	depth     prometheus.Gauge
	batch     prometheus.Histogram
}

func New() *Collector {
	return &Collector{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Rounds simulated.",
		}),
		mined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_mined_total",
			Help:      "Blocks discovered, by participant.",
		}, []string{participantLabel}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_published_total",
			Help:      "Blocks made public, by the participant whose action published them.",
		}, []string{participantLabel}),
		invalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_actions_total",
			Help:      "Actions rejected by the engine, by participant.",
		}, []string{participantLabel}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "canonical_depth",
			Help:      "Depth of the canonical head after the last round.",
		}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_batch_size",
			Help:      "Blocks published by a single action.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.rounds.Describe(ch)
	c.mined.Describe(ch)
	c.published.Describe(ch)
	c.invalid.Describe(ch)
	c.depth.Describe(ch)
	c.batch.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.rounds.Collect(ch)
	c.mined.Collect(ch)
	c.published.Collect(ch)
	c.invalid.Collect(ch)
	c.depth.Collect(ch)
	c.batch.Collect(ch)
}

// Observe accounts one round.
func (c *Collector) Observe(rec simulation.RoundRecord) {
	c.rounds.Inc()
	c.mined.WithLabelValues(label(rec.Discoverer)).Add(float64(len(rec.Mined)))
	for _, a := range rec.Actions {
		if a.Err != nil {
			c.invalid.WithLabelValues(label(a.Participant)).Inc()
			continue
		}
		if n := len(a.Published); n > 0 {
			c.published.WithLabelValues(label(a.Participant)).Add(float64(n))
			c.batch.Observe(float64(n))
		}
	}
	c.depth.Set(float64(rec.HeadDepth))
}

// Attach observes every round e completes from now on. The returned stop
// function detaches the collector once every delivered round is accounted
// for; call it after the run returns.
func (c *Collector) Attach(e *simulation.Engine) (stop func()) {
	ch := make(chan simulation.RoundRecord, c_feedBuffer)
	sub := e.SubscribeRounds(ch)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case rec := <-ch:
				c.Observe(rec)
			case <-sub.Err():
				for {
					select {
					case rec := <-ch:
						c.Observe(rec)
					default:
						return
					}
				}
			}
		}
	}()

	return func() {
		sub.Unsubscribe()
		<-done
	}
}

func label(id simulation.ParticipantID) string {
	return strconv.Itoa(int(id))
}
