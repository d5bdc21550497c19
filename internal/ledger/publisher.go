package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-promo/internal/cart"
	"github.com/noah-isme/backend-promo/internal/obs"
	"github.com/noah-isme/backend-promo/internal/promotion"
)

// TaskRecord is the asynq task type carrying one application batch.
const TaskRecord = "ledger:record"

// Enqueuer is the part of *asynq.Client the publisher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher hands application batches to the worker through asynq.
type Publisher struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Publish enqueues the records and adjustments of one commit evaluation.
func (p *Publisher) Publish(ctx context.Context, cartID, currency string, records []promotion.ApplicationRecord, adjustments []cart.Adjustment) error {
	if p == nil || p.Client == nil {
		return errors.New("ledger: publisher not configured")
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	batch := NewBatch(cartID, currency, records, adjustments, now())
	if len(batch.Entries) == 0 {
		return nil
	}
	task, err := NewRecordTask(batch)
	if err != nil {
		countBatch("enqueue", "error")
		return err
	}
	opts := []asynq.Option{asynq.TaskID(batch.ID.String())}
	if p.Queue != "" {
		opts = append(opts, asynq.Queue(p.Queue))
	}
	if p.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(p.MaxRetry))
	}
	info, err := p.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		countBatch("enqueue", "error")
		return fmt.Errorf("enqueue %s: %w", TaskRecord, err)
	}
	countBatch("enqueue", "ok")
	ev := p.Logger.Debug().Str("batch_id", batch.ID.String()).Str("cart_id", cartID).Int("entries", len(batch.Entries))
	if info != nil {
		ev = ev.Str("queue", info.Queue)
	}
	ev.Msg("application batch enqueued")
	return nil
}

// NewRecordTask encodes the batch as a ledger task.
func NewRecordTask(b Batch) (*asynq.Task, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode application batch: %w", err)
	}
	return asynq.NewTask(TaskRecord, payload), nil
}

func countBatch(stage, result string) {
	if obs.LedgerBatchesTotal == nil {
		return
	}
	obs.LedgerBatchesTotal.WithLabelValues(stage, result).Inc()
}
