package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Pruner removes committed lines from the owner's cart.
type Pruner interface {
	PruneLines(ctx context.Context, userID string, keys []catalog.VersionKey) error
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInsufficientStock
	OutcomeNotFound
	OutcomeStorageFailure
)

func (o Outcome) Reason() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInsufficientStock:
		return ReasonInsufficientStock
	case OutcomeNotFound:
		return ReasonNotFound
	default:
		return ReasonStorageFailure
	}
}

// LineResult is the tagged outcome of one stock decrement.
type LineResult struct {
	Key      catalog.VersionKey
	Quantity int
	Outcome  Outcome
	Err      error
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, apperr.ErrInsufficientStock):
		return OutcomeInsufficientStock
	case errors.Is(err, apperr.ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeStorageFailure
	}
}

type CommitResult struct {
	OrderID    string    `json:"order_id"`
	Status     Status    `json:"status"`
	Failures   []Failure `json:"failures,omitempty"`
	Idempotent bool      `json:"idempotent"`
	CartPruned bool      `json:"cart_pruned"`
}

type Engine struct {
	Orders    Store
	Catalog   catalog.Store
	Pruner    Pruner           // optional
	Publisher Publisher        // optional
	Status    *StatusCache     // optional
	Metrics   *metrics.Metrics // optional
	Log       *slog.Logger

	// Concurrency bounds parallel stock decrements per commit; <=0 means 1.
	Concurrency int

	// SettleTimeout bounds the work after the order row exists. That work
	// ignores the caller's cancellation so an order never stays PENDING
	// because a client went away. Defaults to defaultSettleTimeout.
	SettleTimeout time.Duration
}

const defaultSettleTimeout = 30 * time.Second

// Commit persists the draft as an order, then takes stock line by line.
// Stock failures do not undo other lines: they are recorded on the order,
// which then ends in STOCK_UPDATE_FAILED instead of PROCESSING. An error is
// returned only when the order could not be written, or when its final
// status could not be saved (the result then carries the order id).
func (e *Engine) Commit(ctx context.Context, d Draft) (CommitResult, error) {
	log := e.logger().With("draft_id", d.ID, "user_id", d.UserID)
	if err := d.Validate(); err != nil {
		return CommitResult{}, err
	}

	orderID, existed, err := e.Orders.CreateOrder(ctx, d)
	if err != nil {
		log.Error("persist order failed", "error", err)
		return CommitResult{}, err
	}
	log = log.With("order_id", orderID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.settleTimeout())
	defer cancel()

	if existed {
		o, err := e.Orders.GetOrder(ctx, orderID)
		if err != nil {
			return CommitResult{}, err
		}
		log.Info("draft already committed", "status", o.Status)
		return CommitResult{OrderID: orderID, Status: o.Status, Failures: o.Failures, Idempotent: true}, nil
	}

	results := e.decrementAll(ctx, d.Lines)

	var failures []Failure
	for _, r := range results {
		if r.Outcome == OutcomeSuccess {
			continue
		}
		failures = append(failures, Failure{
			ProductID: r.Key.ProductID,
			Version:   r.Key.Label,
			Reason:    r.Outcome.Reason(),
			Detail:    r.Err.Error(),
		})
		log.Warn("stock decrement failed", "product_id", r.Key.ProductID, "version", r.Key.Label,
			"quantity", r.Quantity, "reason", r.Outcome.Reason(), "error", r.Err)
		if e.Metrics != nil {
			e.Metrics.LineFailures.WithLabelValues(r.Outcome.Reason()).Inc()
		}
	}

	status := StatusProcessing
	if len(failures) > 0 {
		status = StatusStockUpdateFailed
	}
	res := CommitResult{OrderID: orderID, Status: StatusPending, Failures: failures}

	if err := e.Orders.UpdateOrderStatus(ctx, orderID, StatusPending, status, failures); err != nil {
		log.Error("order status update failed", "target", status, "error", err)
		return res, fmt.Errorf("order %s left %s: %w", orderID, StatusPending, err)
	}
	res.Status = status
	log.Info("order committed", "status", status, "failed_lines", len(failures), "total", d.TotalAmount.StringFixed(2))
	if e.Metrics != nil {
		e.Metrics.Commits.WithLabelValues(string(status)).Inc()
	}

	e.announce(ctx, log, orderID, d, status, failures)

	if e.Pruner != nil {
		if err := e.Pruner.PruneLines(ctx, d.UserID, d.Keys()); err != nil {
			log.Warn("cart prune failed", "error", err)
		} else {
			res.CartPruned = true
		}
	}
	return res, nil
}

// decrementAll runs every line independently; one line's failure never
// cancels the others.
func (e *Engine) decrementAll(ctx context.Context, lines []Line) []LineResult {
	results := make([]LineResult, len(lines))
	var g errgroup.Group
	g.SetLimit(max(e.Concurrency, 1))
	for i, l := range lines {
		g.Go(func() error {
			err := e.Catalog.DecrementVersionStock(ctx, l.Key(), l.Quantity)
			results[i] = LineResult{Key: l.Key(), Quantity: l.Quantity, Outcome: classify(err), Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) announce(ctx context.Context, log *slog.Logger, orderID string, d Draft, status Status, failures []Failure) {
	if err := e.Status.Set(ctx, orderID, d.UserID, status); err != nil {
		log.Warn("status cache set failed", "error", err)
	}
	if e.Publisher == nil {
		return
	}
	o := Order{
		ID:          orderID,
		ExternalID:  d.ID,
		UserID:      d.UserID,
		Status:      status,
		Lines:       d.Lines,
		TotalAmount: d.TotalAmount,
		Failures:    failures,
	}
	if err := e.Publisher.PublishCommitted(ctx, o); err != nil {
		log.Warn("publish order committed failed", "error", err)
	}
}

func (e *Engine) settleTimeout() time.Duration {
	if e.SettleTimeout <= 0 {
		return defaultSettleTimeout
	}
	return e.SettleTimeout
}

func (e *Engine) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}
