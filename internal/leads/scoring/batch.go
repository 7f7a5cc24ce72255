package scoring

import (
	"context"
	"runtime"
	"time"

	"omnichat_backend/internal/leads/domain"

	"golang.org/x/sync/errgroup"
)

// RecomputeAll returns deep copies of leads with Score replaced, in input order.
// The input slice and its elements are left untouched.
func RecomputeAll(leads []domain.Lead, now time.Time, w Weights) []domain.Lead {
	return compile(w).recomputeAll(leads, now)
}

func (t table) recomputeAll(leads []domain.Lead, now time.Time) []domain.Lead {
	out := make([]domain.Lead, len(leads))
	for i := range leads {
		out[i] = t.rescore(leads[i], now)
	}
	return out
}

func (t table) rescore(lead domain.Lead, now time.Time) domain.Lead {
	c := lead.Clone()
	c.Score = t.compute(lead, now).Score()
	return c
}

// RecomputeAllConcurrent is RecomputeAll spread over at most limit goroutines.
// The result is identical to RecomputeAll. A limit <= 0 uses GOMAXPROCS.
// It fails only when ctx is canceled before every lead is scored.
func RecomputeAllConcurrent(ctx context.Context, leads []domain.Lead, now time.Time, w Weights, limit int) ([]domain.Lead, error) {
	return compile(w).recomputeAllConcurrent(ctx, leads, now, limit)
}

func (t table) recomputeAllConcurrent(ctx context.Context, leads []domain.Lead, now time.Time, limit int) ([]domain.Lead, error) {
	breakdowns, err := t.computeAllConcurrent(ctx, leads, now, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Lead, len(leads))
	for i := range leads {
		out[i] = leads[i].Clone()
		out[i].Score = breakdowns[i].Score()
	}
	return out, nil
}

// computeAllConcurrent returns the breakdown of every lead, index aligned with leads.
func (t table) computeAllConcurrent(ctx context.Context, leads []domain.Lead, now time.Time, limit int) ([]Breakdown, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	out := make([]Breakdown, len(leads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range leads {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Each goroutine owns exactly one index of out.
			out[i] = t.compute(leads[i], now)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
