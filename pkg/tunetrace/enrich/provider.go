// Package enrich holds the post-identification lookup providers. All three
// providers conform to one Lookup capability and are dispatched through a
// fixed-size fan-out that joins on every lookup before aggregation.
package enrich

import (
	"context"
	"sync"
	"time"
)

// Result is a provider lookup value: *CatalogInfo, *TabInfo or *LessonLink.
type Result any

// Provider is the uniform enrichment capability. Lookup is invoked with the
// matched song/artist strings, not the raw caller query. Implementations
// fail independently; an error from one provider never invalidates the
// others.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, song, artist string) (Result, error)
}

// Outcome is one provider's completed lookup, value or error.
type Outcome struct {
	Provider string
	Value    Result
	Err      error
}

// FanOut invokes all providers concurrently and waits for every one of
// them to finish (a join-all barrier, not a race). Outcomes are returned
// in provider argument order regardless of completion order. Each lookup
// carries its own bounded timeout; exceeding it surfaces as that
// provider's error.
func FanOut(ctx context.Context, song, artist string, timeout time.Duration, providers ...Provider) []Outcome {
	outcomes := make([]Outcome, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()

			lctx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				lctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			value, err := p.Lookup(lctx, song, artist)
			outcomes[i] = Outcome{Provider: p.Name(), Value: value, Err: err}
		}(i, p)
	}
	wg.Wait()

	return outcomes
}
