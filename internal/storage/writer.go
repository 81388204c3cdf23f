package storage

import (
	"context"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/constants"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

// Writer assigns a dialog id and saves the record to every sink in parallel.
type Writer struct {
	seq    Sequence
	sinks  []Sink
	logger *zap.Logger
}

func NewWriter(seq Sequence, sinks []Sink, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{seq: seq, sinks: sinks, logger: logger}
}

// Sinks returns the configured sink names.
func (w *Writer) Sinks() []string {
	names := make([]string, len(w.sinks))
	for i, s := range w.sinks {
		names[i] = s.Name()
	}
	return names
}

// Write allocates the id, then fans out. Every sink is attempted; the joined
// error of all failed sinks is returned.
func (w *Writer) Write(ctx context.Context, rec *domain.DialogueRecord) (int64, error) {
	id, err := w.seq.NextID(ctx)
	if err != nil {
		return 0, err
	}
	rec.DialogID = id

	ctx, cancel := context.WithTimeout(ctx, constants.StorageConfig.WriteTimeout)
	defer cancel()

	p := pool.New().WithErrors().WithContext(ctx)
	for _, sink := range w.sinks {
		p.Go(func(ctx context.Context) error {
			if err := sink.Save(ctx, rec); err != nil {
				w.logger.Warn("Sink save failed",
					zap.String("sink", sink.Name()),
					zap.Int64("dialog_id", id),
					zap.Error(err),
				)
				return err
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return id, errors.NewStorageError("failed to persist dialogue record", "writer", "write", err)
	}

	w.logger.Debug("Dialogue record persisted",
		zap.Int64("dialog_id", id),
		zap.Strings("sinks", w.Sinks()),
	)
	return id, nil
}
