package driven

import (
	"context"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

// RunStore defines the driven port for run history persistence.
// Get returns nil, nil when the run does not exist.
type RunStore interface {
	Save(ctx context.Context, run model.Run) error
	Get(ctx context.Context, id string) (*model.Run, error)
	ListRecent(ctx context.Context, limit int) ([]model.Run, error)
}
