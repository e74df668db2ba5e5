package metrics

import (
	"context"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

const namespace = "docking"

var durationBuckets = []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900, 1800, 3600}

// PrometheusCollector records pipeline metrics on a private registry.
type PrometheusCollector struct {
	registry         *prometheus.Registry
	toolResolutions  *prometheus.CounterVec
	stepExecutions   *prometheus.CounterVec
	stepDuration     *prometheus.HistogramVec
	externalCommands *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
}

func NewPrometheusCollector() *PrometheusCollector {
	c := &PrometheusCollector{
		registry: prometheus.NewRegistry(),
		toolResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_resolutions_total",
			Help:      "Tool path resolutions by tool, winning strategy and outcome.",
		}, []string{"tool", "strategy", "found"}),
		stepExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_executions_total",
			Help:      "Pipeline step executions by step and result.",
		}, []string{"step", "result"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Pipeline step execution duration.",
			Buckets:   durationBuckets,
		}, []string{"step"}),
		externalCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_commands_total",
			Help:      "External tool invocations by executable and result.",
		}, []string{"command", "result"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_command_duration_seconds",
			Help:      "External tool invocation duration.",
			Buckets:   durationBuckets,
		}, []string{"command"}),
	}

	c.registry.MustRegister(
		c.toolResolutions,
		c.stepExecutions,
		c.stepDuration,
		c.externalCommands,
		c.commandDuration,
		prometheus.NewGoCollector(),
	)
	return c
}

func (c *PrometheusCollector) RecordToolResolution(ctx context.Context, toolKey, strategy string, found bool) {
	c.toolResolutions.WithLabelValues(toolKey, strategy, strconv.FormatBool(found)).Inc()
}

func (c *PrometheusCollector) RecordStepExecution(ctx context.Context, step string, duration time.Duration, success bool) {
	c.stepExecutions.WithLabelValues(step, resultLabel(success)).Inc()
	c.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordExternalCommand(ctx context.Context, command string, duration time.Duration, success bool) {
	// Label by executable name only; full paths would explode cardinality.
	name := filepath.Base(command)
	c.externalCommands.WithLabelValues(name, resultLabel(success)).Inc()
	c.commandDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

var Module = fx.Module("metrics",
	fx.Provide(
		fx.Annotate(
			NewPrometheusCollector,
			fx.As(new(Collector)),
		),
	),
)
