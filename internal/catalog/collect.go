package catalog

import (
	"context"
	"fmt"

	"github.com/cesargomez89/mediasync/internal/constants"
)

// PageFunc fetches one page, numbered from 1, and reports whether more
// pages follow.
type PageFunc[T any] func(ctx context.Context, page int) (items []T, hasNext bool, err error)

// CollectAll drives fetch through every page in order. It stops when a page
// reports no successor or comes back empty. Any error discards the items
// collected so far: a partial list must never be merged as if complete.
func CollectAll[T any](ctx context.Context, fetch PageFunc[T]) ([]T, error) {
	return collect(ctx, fetch, constants.MaxSyncPages)
}

func collect[T any](ctx context.Context, fetch PageFunc[T], maxPages int) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("pagination did not terminate after %d pages", maxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, hasNext, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if len(items) == 0 {
			return all, nil
		}
		all = append(all, items...)
		if !hasNext {
			return all, nil
		}
	}
}
