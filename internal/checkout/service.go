package checkout

import (
	"context"
	"log/slog"

	"github.com/ariefcatur/go-storefront-orders/internal/apperr"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

type Committer interface {
	Commit(ctx context.Context, d orders.Draft) (orders.CommitResult, error)
}

// Service plans drafts, parks them in the draft store and commits them by
// id, so clients never send prices back.
type Service struct {
	Planner *Planner
	Drafts  DraftStore
	Engine  Committer
	Log     *slog.Logger
}

func (s *Service) Plan(ctx context.Context, userID, addressID, delivery, payment string) (orders.Draft, error) {
	d, err := s.Planner.PlanCheckout(ctx, userID, addressID, delivery, payment)
	if err != nil {
		return orders.Draft{}, err
	}
	if err := s.Drafts.SaveDraft(ctx, d); err != nil {
		return orders.Draft{}, err
	}
	s.logger().Info("checkout planned", "user_id", userID, "draft_id", d.ID,
		"lines", len(d.Lines), "total", d.TotalAmount.StringFixed(2))
	return d, nil
}

// Commit loads the draft and hands it to the engine. The draft stays in the
// store until it expires, so a retried commit resolves to the same order.
func (s *Service) Commit(ctx context.Context, userID, draftID string) (orders.CommitResult, error) {
	d, err := s.Drafts.LoadDraft(ctx, draftID)
	if err != nil {
		return orders.CommitResult{}, err
	}
	if d.UserID != userID {
		return orders.CommitResult{}, apperr.NotFound("draft %s", draftID)
	}
	return s.Engine.Commit(ctx, d)
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
