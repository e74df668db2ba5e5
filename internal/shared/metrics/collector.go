package metrics

import (
	"context"
	"net/http"
	"time"
)

type Collector interface {
	RecordToolResolution(ctx context.Context, toolKey, strategy string, found bool)
	RecordStepExecution(ctx context.Context, step string, duration time.Duration, success bool)
	RecordExternalCommand(ctx context.Context, command string, duration time.Duration, success bool)
	// Handler serves the collected metrics; nil when the collector exports nothing.
	Handler() http.Handler
}

type NoOpCollector struct{}

func NewNoOpCollector() *NoOpCollector {
	return &NoOpCollector{}
}

func (c *NoOpCollector) RecordToolResolution(ctx context.Context, toolKey, strategy string, found bool) {
}

func (c *NoOpCollector) RecordStepExecution(ctx context.Context, step string, duration time.Duration, success bool) {
}

func (c *NoOpCollector) RecordExternalCommand(ctx context.Context, command string, duration time.Duration, success bool) {
}

func (c *NoOpCollector) Handler() http.Handler {
	return nil
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
