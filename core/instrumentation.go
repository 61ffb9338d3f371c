package pipeline

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/aidenreynolds-dev/assistive-navigation-device/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	runsStarted    metric.Int64Counter
	runsCompleted  metric.Int64Counter
	runsFailed     metric.Int64Counter
	runsSuperseded metric.Int64Counter
	runsDropped    metric.Int64Counter
)

func init() {
	runsStarted, _ = meter.Int64Counter("pipeline.runs.started")
	runsCompleted, _ = meter.Int64Counter("pipeline.runs.completed")
	runsFailed, _ = meter.Int64Counter("pipeline.runs.failed")
	runsSuperseded, _ = meter.Int64Counter("pipeline.runs.superseded")
	runsDropped, _ = meter.Int64Counter("pipeline.runs.dropped")
}
