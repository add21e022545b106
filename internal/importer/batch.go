package importer

import (
	"context"

	"github.com/jonathan/profile-importer/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds batch imports when no limit is given.
const DefaultConcurrency = 3

// BatchItem is the outcome for one URL of a batch.
type BatchItem struct {
	URL    string
	Result *types.ImportResult
	Err    error
}

// ImportBatch imports urls with at most concurrency in flight. Items are
// returned in input order; one failing URL does not stop the others.
func (i *Importer) ImportBatch(ctx context.Context, urls []string, concurrency int) []BatchItem {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	items := make([]BatchItem, len(urls))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for idx, url := range urls {
		items[idx].URL = url
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[idx].Err = err
				return nil
			}
			items[idx].Result, items[idx].Err = i.ImportURL(ctx, url)
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// Summary counts batch outcomes by status.
func Summary(items []BatchItem) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		switch {
		case it.Result != nil:
			counts[string(it.Result.Status)]++
		case it.Err != nil:
			counts[string(types.ImportStatusFailed)]++
		}
	}
	return counts
}
