package workers

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/smart845/spre/internal/logging"
)

// ForEach runs fn for every item with at most limit calls in flight and
// returns once all of them have finished. A panic inside fn is recovered and
// logged so one bad item cannot take down the batch.
func ForEach[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T)) {
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, item := range items {
		item := item
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logging.Errorf("[workers] recovered panic: %v", r)
				}
			}()
			fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
}

// Collect is ForEach for functions that produce results. Results are returned
// in item order; items whose fn returned an error are reported to onErr and
// contribute nothing.
func Collect[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) ([]R, error), onErr func(T, error)) [][]R {
	out := make([][]R, len(items))
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	ForEach(ctx, limit, idx, func(ctx context.Context, i int) {
		res, err := safeCall(ctx, items[i], fn)
		if err != nil {
			if onErr != nil {
				onErr(items[i], err)
			}
			return
		}
		out[i] = res
	})
	return out
}

func safeCall[T, R any](ctx context.Context, item T, fn func(context.Context, T) ([]R, error)) (res []R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, item)
}
