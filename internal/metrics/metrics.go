// Package metrics exposes settlement and HTTP telemetry to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sudo-init-do/skillflow/internal/apperr"
	"github.com/sudo-init-do/skillflow/internal/events"
)

// Collector owns a private registry so tests can build as many as they need.
type Collector struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	settled     *prometheus.CounterVec
	requests    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	tick        prometheus.Gauge
}

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "skillflow"
	}
	c := &Collector{registry: prometheus.NewRegistry()}

	c.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "events_total",
		Help:      "Committed engine operations by event kind",
	}, []string{"kind"})

	c.rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "rejections_total",
		Help:      "Rejected engine operations by operation and error kind",
	}, []string{"op", "kind"})

	c.settled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "escrow",
		Name:      "settled_amount_total",
		Help:      "Micro-STX paid out of escrow by leg (provider, client, fee)",
	}, []string{"leg"})

	c.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	c.reqDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	c.tick = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "clock",
		Name:      "tick",
		Help:      "Current logical tick",
	})

	c.registry.MustRegister(c.events, c.rejections, c.settled, c.requests, c.reqDuration, c.tick)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Publish counts the event and any escrow legs it settled.
func (c *Collector) Publish(_ context.Context, e events.Event) error {
	c.events.WithLabelValues(string(e.Kind)).Inc()
	for key, leg := range map[string]string{
		"provider_amount": "provider",
		"client_amount":   "client",
		"fee_amount":      "fee",
	} {
		if v, ok := e.Payload[key].(uint64); ok {
			c.settled.WithLabelValues(leg).Add(float64(v))
		}
	}
	if v, ok := e.Payload["refunded"].(uint64); ok {
		c.settled.WithLabelValues("client").Add(float64(v))
	}
	return nil
}

func (c *Collector) ObserveRejection(op string, kind apperr.Kind) {
	c.rejections.WithLabelValues(op, kind.String()).Inc()
}

func (c *Collector) SetTick(tick uint64) { c.tick.Set(float64(tick)) }

// Middleware records request counts and latency per route.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			c.requests.WithLabelValues(method, route, strconv.Itoa(ctx.Response().Status)).Inc()
			c.reqDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
