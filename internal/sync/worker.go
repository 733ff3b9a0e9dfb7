package sync

import (
	"context"

	"github.com/vaultmesh/vaultmesh/internal/workers"
	"github.com/vaultmesh/vaultmesh/models"
)

// Enqueue hands a batch of incoming items to the apply worker without
// blocking the transport goroutine. When the queue is full the transport
// gets [ErrQueueFull] and retries later; redelivery is safe because
// acceptance is idempotent.
func (e *Engine) Enqueue(batch []models.Item) error {
	select {
	case e.queue <- batch:
		return nil
	default:
		return ErrQueueFull
	}
}

// Worker returns the background worker that drains the apply queue. Running
// exactly one per engine preserves the single-writer-per-vault discipline
// for enqueued batches.
func (e *Engine) Worker() workers.Worker {
	return &applyWorker{engine: e}
}

// applyWorker serializes enqueued batches into ApplyBatch.
type applyWorker struct {
	engine *Engine
}

// Run implements [workers.Worker].
func (w *applyWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-w.engine.queue:
			results := w.engine.ApplyBatch(ctx, batch)
			for _, res := range results {
				if res.Err != nil {
					w.engine.log.Debug().
						Str("item", res.ItemID).
						Str("status", res.Status.String()).
						Err(res.Err).
						Msg("batch item not applied")
				}
			}
		}
	}
}
