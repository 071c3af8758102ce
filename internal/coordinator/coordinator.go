// Package coordinator runs units of work that span the relational and graph
// stores. There is no two-phase commit: the relational transaction commits
// first, then the graph transaction.
package coordinator

import (
	"context"
	"errors"

	"geosm/internal/graph"
	"geosm/internal/models"
	"geosm/internal/observability"
	"geosm/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Needs selects which stores a unit opens.
type Needs uint8

const (
	Relational Needs = 1 << iota
	Graph
	Both = Relational | Graph
)

func (n Needs) String() string {
	switch n {
	case Relational:
		return "relational"
	case Graph:
		return "graph"
	case Both:
		return "both"
	}
	return "none"
}

// Unit carries the live transactions of one run. A field is nil when the
// unit did not ask for that store.
type Unit struct {
	Rel   repository.Tx
	Graph graph.Tx
}

// Work is the body of a unit.
type Work func(ctx context.Context, u *Unit) error

// Runner is what the engines depend on.
type Runner interface {
	Run(ctx context.Context, op string, needs Needs, work Work) error
}

// Coordinator opens, commits and releases both stores for one operation.
type Coordinator struct {
	rel   repository.Store
	graph graph.Store
	log   *zap.Logger
}

// New returns a Coordinator over the two stores.
func New(rel repository.Store, g graph.Store, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{rel: rel, graph: g, log: log}
}

// Run executes work inside the requested transactions. Units do not nest;
// each public operation calls Run once.
//
// Outcomes:
//   - work fails: both are rolled back, the AppError is returned as is
//   - relational commit fails: graph is rolled back, StoreError
//   - graph commit fails after relational commit: PartialCommit, logged
func (c *Coordinator) Run(ctx context.Context, op string, needs Needs, work Work) (err error) {
	span, ctx := observability.NewSpan(ctx, "coordinator."+op)
	span.AddAttributes(attribute.String("coordinator.needs", needs.String()))
	defer span.End()
	defer observability.TrackUnit(needs.String())()

	outcome := "committed"
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		observability.CoordinatorRuns.WithLabelValues(outcome).Inc()
	}()

	unit := &Unit{}
	if needs&Relational != 0 {
		unit.Rel, err = c.rel.Begin(ctx)
		if err != nil {
			outcome = "begin_failed"
			return asStoreError(err)
		}
	}
	if needs&Graph != 0 {
		unit.Graph, err = c.graph.Begin(ctx)
		if err != nil {
			outcome = "begin_failed"
			c.rollbackRel(op, unit)
			return asStoreError(err)
		}
		defer func() {
			if cerr := unit.Graph.Close(context.WithoutCancel(ctx)); cerr != nil {
				c.log.Warn("graph session close failed", zap.String("op", op), zap.Error(cerr))
			}
		}()
	}

	if werr := work(ctx, unit); werr != nil {
		outcome = "rolled_back"
		c.rollbackGraph(ctx, op, unit)
		c.rollbackRel(op, unit)
		return asStoreError(werr)
	}

	if unit.Rel != nil {
		if cerr := unit.Rel.Commit(); cerr != nil {
			outcome = "commit_failed"
			c.rollbackGraph(ctx, op, unit)
			return asStoreError(cerr)
		}
	}
	if unit.Graph != nil {
		if cerr := unit.Graph.Commit(ctx); cerr != nil {
			if unit.Rel == nil {
				outcome = "commit_failed"
				return asStoreError(cerr)
			}
			outcome = "partial_commit"
			observability.PartialCommits.Inc()
			c.log.Error("partial commit: relational committed, graph did not",
				zap.String("op", op),
				zap.String("relational", "committed"),
				zap.String("graph", "failed"),
				zap.String("trace_id", span.TraceID()),
				zap.String("request_id", observability.RequestID(ctx)),
				zap.Error(cerr),
			)
			return models.NewPartialCommitError(cerr)
		}
	}
	return nil
}

func (c *Coordinator) rollbackRel(op string, unit *Unit) {
	if unit.Rel == nil {
		return
	}
	if err := unit.Rel.Rollback(); err != nil {
		c.log.Warn("relational rollback failed", zap.String("op", op), zap.Error(err))
	}
}

func (c *Coordinator) rollbackGraph(ctx context.Context, op string, unit *Unit) {
	if unit.Graph == nil {
		return
	}
	if err := unit.Graph.Rollback(context.WithoutCancel(ctx)); err != nil {
		c.log.Warn("graph rollback failed", zap.String("op", op), zap.Error(err))
	}
}

// asStoreError keeps AppErrors and wraps anything else as a store error.
func asStoreError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStoreError(err)
}
