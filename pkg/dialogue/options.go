package dialogue

import (
	"log/slog"

	"github.com/funkusgames/dialogue/pkg/dialogue/notify"
	"github.com/funkusgames/dialogue/pkg/dialogue/observability"
)

// DefaultMaxSteps bounds non-interactive auto-processing per call.
// The validator catches static zero-progress loops; this limit is the
// backstop for guard-dependent loops it cannot see.
const DefaultMaxSteps = 256

// sessionConfig holds configuration for one session.
type sessionConfig struct {
	id       string
	maxSteps int
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	tracing  bool
	bus      *notify.Bus
}

// defaultSessionConfig returns the default session configuration.
func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
}

// SessionOption configures a session at creation.
type SessionOption func(*sessionConfig)

// WithSessionID sets the session identifier.
// Auto-generated (UUID) if not set.
func WithSessionID(id string) SessionOption {
	return func(c *sessionConfig) {
		if id != "" {
			c.id = id
		}
	}
}

// WithMaxSteps sets the maximum number of non-interactive node visits
// (condition, action, jump) per Start/Advance/Select call.
// Default: DefaultMaxSteps.
func WithMaxSteps(n int) SessionOption {
	return func(c *sessionConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithLogger sets the structured logger. The session enriches it with
// session_id and node_id fields. Default: slog.Default().
func WithLogger(logger *slog.Logger) SessionOption {
	return func(c *sessionConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
// Default: no-op.
func WithMetrics(m observability.MetricsRecorder) SessionOption {
	return func(c *sessionConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry span creation around session calls
// and node visits, using the given span manager.
func WithTracing(sm observability.SpanManager) SessionOption {
	return func(c *sessionConfig) {
		if sm != nil {
			c.spans = sm
			c.tracing = true
		}
	}
}

// WithBus attaches a notification bus. The session publishes Started,
// NodeActivated, ChoiceMade and Ended notifications to it.
func WithBus(bus *notify.Bus) SessionOption {
	return func(c *sessionConfig) {
		c.bus = bus
	}
}
