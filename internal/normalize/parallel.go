package normalize

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// WorkItem is one parsed record queued for normalization.
type WorkItem struct {
	Seq    int
	Record *vcf.Record
}

// WorkResult is the normalized form of one WorkItem.
type WorkResult struct {
	Seq    int
	Record *vcf.Record
	Cores  []vcf.RecordCore
	Err    error
}

// ParallelNormalize normalizes items on a pool of workers and sends the
// results in completion order; use OrderedCollect to restore input order.
// Workers stop early when ctx is cancelled. If workers is 0,
// runtime.NumCPU() is used.
func (n *Normalizer) ParallelNormalize(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				if ctx.Err() != nil {
					return
				}
				cores, err := n.Normalize(item.Record)
				res := WorkResult{Seq: item.Seq, Record: item.Record, Cores: cores, Err: err}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order, holding
// back results that arrive early. It returns when results is closed or fn
// fails; in the latter case the channel is drained so workers can exit.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	next := 0

	for r := range results {
		pending[r.Seq] = r
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if err := fn(ready); err != nil {
				for range results {
				}
				return err
			}
		}
	}
	return nil
}
