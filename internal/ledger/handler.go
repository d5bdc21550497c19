package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// BatchSaver persists application batches.
type BatchSaver interface {
	Save(ctx context.Context, b Batch) error
}

// Handler is the asynq handler for TaskRecord.
type Handler struct {
	Store  BatchSaver
	Logger zerolog.Logger
}

// ProcessTask decodes and stores one batch. Malformed payloads are not
// retried.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var b Batch
	if err := json.Unmarshal(t.Payload(), &b); err != nil {
		countBatch("persist", "invalid")
		h.Logger.Error().Err(err).Msg("decode application batch")
		return fmt.Errorf("decode application batch: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Store.Save(ctx, b); err != nil {
		countBatch("persist", "error")
		h.Logger.Warn().Err(err).Str("batch_id", b.ID.String()).Msg("persist application batch")
		return err
	}
	countBatch("persist", "ok")
	h.Logger.Debug().Str("batch_id", b.ID.String()).Int("entries", len(b.Entries)).Str("total", b.Total().String()).Msg("application batch stored")
	return nil
}

// Register mounts the handler on an asynq mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.Handle(TaskRecord, h)
}
