package tree

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// txToken marks one open transaction. Tokens are compared by identity; the
// uuid only labels logs and spans.
type txToken struct {
	id uuid.UUID
}

// treeState is the state shared by every node of one tree. The root creates it
// and hands the same pointer to each node it builds or adopts.
type treeState struct {
	root    *Node
	tokens  []*txToken
	highest int64

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics bool

	// ctx carries the span of the open outermost transaction.
	ctx context.Context

	// journal holds the structural changes made by open transactions.
	journal []journalEntry
}

// journalEntry is one structural change made inside a transaction. undo runs
// if any transaction of the batch rolls back; commit runs once the outermost
// transaction settles.
type journalEntry struct {
	undo   func()
	commit func()
}

func newTreeState(root *Node, cfg Config) *treeState {
	return &treeState{
		root:    root,
		logger:  cfg.Logger.With(slog.String("component", "canopy")),
		tracer:  otel.Tracer(cfg.TracerName),
		metrics: !cfg.DisableMetrics,
		ctx:     context.Background(),
	}
}

// fork returns a fresh state for a subtree that leaves this tree.
func (s *treeState) fork(root *Node) *treeState {
	return &treeState{
		root:    root,
		highest: s.highest,
		logger:  s.logger,
		tracer:  s.tracer,
		metrics: s.metrics,
		ctx:     context.Background(),
	}
}

// begin pushes a new token. outermost is true when no transaction was open.
func (s *treeState) begin() (tok *txToken, outermost bool) {
	outermost = len(s.tokens) == 0
	tok = &txToken{id: uuid.New()}
	s.tokens = append(s.tokens, tok)
	return tok, outermost
}

// end removes exactly tok, wherever it sits in the list.
func (s *treeState) end(tok *txToken) {
	for i := len(s.tokens) - 1; i >= 0; i-- {
		if s.tokens[i] == tok {
			s.tokens = append(s.tokens[:i], s.tokens[i+1:]...)
			return
		}
	}
}

func (s *treeState) isOpen() bool {
	return len(s.tokens) > 0
}

func (s *treeState) record(undo, commit func()) {
	s.journal = append(s.journal, journalEntry{undo: undo, commit: commit})
}

// remember journals n's current child links so a rollback restores them.
func (s *treeState) remember(n *Node) {
	children := make(map[any]*Node, len(n.children))
	for k, c := range n.children {
		children[k] = c
	}
	order := append([]any(nil), n.order...)
	s.record(func() {
		n.children = children
		n.order = order
	}, nil)
}

// undo reverts every journal entry, newest first. A failed run rolls values
// back to the start of the batch, so structure goes back with them.
func (s *treeState) undo() {
	for i := len(s.journal) - 1; i >= 0; i-- {
		if u := s.journal[i].undo; u != nil {
			u()
		}
	}
	s.journal = nil
}

// settle empties the journal and returns its commit hooks in order.
func (s *treeState) settle() []func() {
	var hooks []func()
	for _, e := range s.journal {
		if e.commit != nil {
			hooks = append(hooks, e.commit)
		}
	}
	s.journal = nil
	return hooks
}

// run executes fn as a transaction on behalf of n.
//
// On error or panic the token is removed, structural changes made by fn are
// undone and the whole tree is rolled back to the highest version recorded before
// fn ran. The error is returned annotated with the node that raised it; a panic is
// re-raised after the rollback. On success, if this was the outermost transaction,
// dirty nodes are versioned, detached children completed and subscribers notified
// once.
func (n *Node) run(op string, fn func() error) error {
	s := n.state
	tok, outermost := s.begin()
	startVersion := s.highest

	var span trace.Span
	if outermost {
		var ctx context.Context
		ctx, span = s.tracer.Start(context.Background(), "canopy.Transaction",
			trace.WithAttributes(
				attribute.String("node", n.displayPath()),
				attribute.String("op", op),
				attribute.String("token", tok.id.String()),
				attribute.Int64("start_version", startVersion),
				attribute.Int64("tree_max_version", s.root.maxVersion()),
			),
		)
		s.ctx = ctx
	}
	finish := func() {
		if span != nil {
			span.End()
			s.ctx = context.Background()
		}
	}

	done := false
	defer func() {
		if done {
			return
		}
		r := recover()
		s.end(tok)
		s.undo()
		s.rollback(startVersion)
		if outermost {
			s.observeTransaction(outcomeRollback, 0)
		}
		if span != nil {
			span.SetStatus(codes.Error, "panic")
		}
		finish()
		if r != nil {
			panic(r)
		}
	}()

	err := fn()
	done = true
	s.end(tok)

	if err != nil {
		s.undo()
		s.rollback(startVersion)
		err = annotate(n, op, err)
		if outermost {
			s.observeTransaction(outcomeRollback, 0)
			s.logger.Debug("transaction rolled back",
				"node", n.displayPath(),
				"op", op,
				"version", startVersion,
				"error", err,
			)
		}
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rolled back")
		}
		finish()
		return err
	}

	if s.isOpen() {
		return nil
	}

	target := s.highest + 1
	dirty := s.root.advance(target)
	hooks := s.settle()
	if len(dirty) > 0 {
		s.highest = target
		s.observeTransaction(outcomeCommit, len(dirty))
		s.logger.Debug("transaction committed",
			"node", n.displayPath(),
			"op", op,
			"version", target,
			"dirtyNodes", len(dirty),
		)
	} else {
		s.observeTransaction(outcomeNoop, 0)
	}
	if span != nil {
		span.SetAttributes(
			attribute.Int64("version", s.highest),
			attribute.Int("dirty_nodes", len(dirty)),
		)
	}
	finish()

	for _, h := range hooks {
		h()
	}
	for _, d := range dirty {
		d.broadcast()
	}
	return nil
}

// Transact runs fn as one batch. Every Next issued inside fn, directly or
// through validators and subscribers, shares the batch: the tree is versioned
// and subscribers notified once when the outermost Transact returns, and any
// error rolls the entire tree back to where it was before the batch began.
func (n *Node) Transact(fn func() error) error {
	if n.stopped {
		return annotate(n, "transact", ErrStopped)
	}
	return n.run("transact", fn)
}

// InTransaction reports whether a batch is open anywhere in n's tree.
func (n *Node) InTransaction() bool {
	return n.state.isOpen()
}
