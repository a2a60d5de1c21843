// Package metrics exposes the pipeline's operational counters over a
// private prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the frame-level counters the scheduler reports.
type Collector struct {
	registry *prometheus.Registry

	FramesReceived  prometheus.Counter
	FramesSkipped   prometheus.Counter
	FramesProcessed prometheus.Counter
	FrameErrors     prometheus.Counter
	InferenceTime   prometheus.Histogram
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frames_received_total",
			Help: "Frames delivered to the scheduler, admitted or not",
		}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frames_skipped_total",
			Help: "Frames rejected by throttling or the busy rule",
		}),
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frames_processed_total",
			Help: "Frames that completed the full pipeline",
		}),
		FrameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame_errors_total",
			Help: "Per-frame errors degraded to empty results",
		}),
		InferenceTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inference_duration_ms",
			Help:    "Model inference latency in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600},
		}),
	}
	c.registry.MustRegister(
		c.FramesReceived,
		c.FramesSkipped,
		c.FramesProcessed,
		c.FrameErrors,
		c.InferenceTime,
	)
	return c
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
