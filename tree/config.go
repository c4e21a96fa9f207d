package tree

import "log/slog"

const (
	rootName          = "[root]"
	defaultTracerName = "canopy"
)

// Config holds configuration for a Node.
type Config struct {
	// Name labels a root node in logs and dumps. Children are named by their key.
	// Default: "[root]"
	Name string

	// AnyForm disables form checking; the node's form follows whatever value it holds.
	AnyForm bool

	// PinType rejects scalars whose dynamic type differs from the current value's.
	PinType bool

	// Validators run, in order, against every change that reaches the node.
	Validators []Validator

	// Logger receives structured logs. Only the root's logger is used for
	// tree-wide events (commits, rollbacks).
	// Default: slog.Default()
	Logger *slog.Logger

	// TracerName is the OpenTelemetry tracer used for transaction spans.
	// Default: "canopy"
	TracerName string

	// DisableMetrics stops this tree from updating the Prometheus collectors.
	DisableMetrics bool
}

// DefaultConfig returns the configuration used by New when none is given.
func DefaultConfig() Config {
	return Config{
		Name:       rootName,
		Logger:     slog.Default(),
		TracerName: defaultTracerName,
	}
}

// validate fills defaults for unset fields.
func (c *Config) validate() {
	if c.Name == "" {
		c.Name = rootName
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.TracerName == "" {
		c.TracerName = defaultTracerName
	}
	kept := c.Validators[:0:0]
	for _, v := range c.Validators {
		if v.Fn != nil {
			kept = append(kept, v)
		}
	}
	c.Validators = kept
}
