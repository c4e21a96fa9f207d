// Package stream forwards committed tree values to Go channels.
package stream

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jacentio/canopy/tree"
)

const (
	defaultBuffer = 64
	maxBuffer     = 4096
)

var droppedUpdates = promauto.NewCounter(prometheus.CounterOpts{
	Name: "canopy_stream_dropped_updates_total",
	Help: "Total updates dropped because a subscriber channel was full",
})

// Update is one committed value of one node.
type Update struct {
	// Path is the node's dotted path from its root ("" for the root).
	Path string

	// Version is the version the value was committed at.
	Version int64

	// Value is shared by every subscriber and must not be modified.
	Value any
}

// Config holds configuration for a Broadcaster.
type Config struct {
	// Buffer is the capacity of each subscriber channel. Updates that do not
	// fit are dropped.
	// Default: 64, clamped to 1..4096
	Buffer int
}

// DefaultConfig returns the default Broadcaster configuration.
func DefaultConfig() Config {
	return Config{Buffer: defaultBuffer}
}

func (c *Config) validate() {
	if c.Buffer <= 0 {
		c.Buffer = defaultBuffer
	}
	if c.Buffer > maxBuffer {
		c.Buffer = maxBuffer
	}
}

// Broadcaster publishes committed node values to subscriber channels.
//
// Attach, Detach and Close touch the tree and must be called from the
// goroutine that owns it. Subscribe and Unsubscribe may be called from any
// goroutine.
type Broadcaster struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	subs     map[string]chan Update
	detaches []func()
	closed   bool
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(cfg Config, logger *slog.Logger) *Broadcaster {
	cfg.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[string]chan Update),
	}
}

// Attach publishes every value n commits from now on. Attaching to a
// completed node does nothing.
func (b *Broadcaster) Attach(n *tree.Node) (detach func()) {
	off := n.On(tree.EventUpdated, func(payload any) error {
		b.publish(Update{
			Path:    n.Path(),
			Version: n.Version(),
			Value:   payload,
		})
		return nil
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		off()
		return func() {}
	}
	b.detaches = append(b.detaches, off)
	return off
}

// Subscribe registers a new channel. The id identifies it for Unsubscribe.
// Subscribing to a closed Broadcaster returns a closed channel.
func (b *Broadcaster) Subscribe() (id string, updates <-chan Update) {
	ch := make(chan Update, b.cfg.Buffer)
	id = uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	b.logger.Debug("stream subscriber added", "subscriber", id)
	return id, ch
}

// Unsubscribe closes and removes the channel registered under id.
func (b *Broadcaster) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[id]
	if !ok {
		return false
	}
	delete(b.subs, id)
	close(ch)
	return true
}

// Close detaches from every node and closes every subscriber channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	detaches := b.detaches
	b.detaches = nil
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	for _, off := range detaches {
		off()
	}
}

func (b *Broadcaster) publish(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- u:
		default:
			droppedUpdates.Inc()
			b.logger.Warn("dropping update for slow subscriber",
				"subscriber", id,
				"path", u.Path,
				"version", u.Version,
			)
		}
	}
}
