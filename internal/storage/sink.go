package storage

import (
	"context"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
)

// Sink persists finished dialogue records. Save must be safe to call from
// several goroutines for different records.
type Sink interface {
	Name() string
	Save(ctx context.Context, rec *domain.DialogueRecord) error
}

// Sequence hands out dialog ids. Ids are positive and strictly increasing.
type Sequence interface {
	NextID(ctx context.Context) (int64, error)
}
