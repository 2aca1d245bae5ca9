// Package hydrate reveals search results in batches as their thumbnails load.
package hydrate

import (
	"context"

	"github.com/glabrego/imgsearch-cli/internal/search"
)

// DefaultBatchSize is how many items are revealed per publish.
const DefaultBatchSize = 20

// Prober waits for an image to settle, loaded or not.
type Prober interface {
	Probe(ctx context.Context, url string)
}

// PublishFunc receives the revealed prefix after each batch. Returning false
// means the run has been superseded and should stop.
type PublishFunc func(revealed []search.Item) bool

// Run probes the thumbnails of items batch by batch and publishes the
// growing prefix after every batch. Probes within a batch run one at a time.
// Run returns ctx.Err() if the context ends before all batches are published.
func Run(ctx context.Context, items []search.Item, batchSize int, prober Prober, publish PublishFunc) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	remaining := items
	revealed := make([]search.Item, 0, len(items))
	for len(remaining) > 0 {
		n := min(batchSize, len(remaining))
		batch := remaining[:n]
		remaining = remaining[n:]

		for _, item := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			prober.Probe(ctx, item.ThumbURL)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		revealed = append(revealed, batch...)
		// Publish a copy so later appends never alias a slice the subscriber holds.
		if !publish(append([]search.Item(nil), revealed...)) {
			return nil
		}
	}
	return nil
}

// Batches reports how many publishes Run makes for n items.
func Batches(n, batchSize int) int {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return (n + batchSize - 1) / batchSize
}
