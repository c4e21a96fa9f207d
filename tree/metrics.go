package tree

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	outcomeCommit   = "commit"
	outcomeRollback = "rollback"
	outcomeNoop     = "noop"
)

var (
	// transactionsTotal counts settled outermost transactions by outcome
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canopy_transactions_total",
		Help: "Total outermost transactions by outcome",
	}, []string{"outcome"})

	// rollbacksTotal counts tree rollbacks, including explicit RollbackTo calls
	rollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canopy_rollbacks_total",
		Help: "Total tree rollbacks",
	})

	// nodesVersioned tracks how many nodes a single commit stamps
	nodesVersioned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "canopy_commit_nodes",
		Help:    "Number of nodes versioned per commit",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
)

func (s *treeState) observeTransaction(outcome string, dirty int) {
	if !s.metrics {
		return
	}
	transactionsTotal.WithLabelValues(outcome).Inc()
	if dirty > 0 {
		nodesVersioned.Observe(float64(dirty))
	}
}

// rollback restores the whole tree to version v and returns the nodes whose
// value changed, children before parents. Children that did not exist at v
// are detached and completed.
func (s *treeState) rollback(v int64) []*Node {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := s.tracer.Start(ctx, "canopy.Rollback",
		trace.WithAttributes(attribute.Int64("target_version", v)),
	)
	defer span.End()

	changed, removed := s.root.rollbackTo(v)
	span.SetAttributes(
		attribute.Int("restored_nodes", len(changed)),
		attribute.Int("removed_nodes", len(removed)),
	)
	if s.metrics {
		rollbacksTotal.Inc()
	}
	for _, r := range removed {
		r.completeDetached()
	}
	return changed
}
