package driven

import (
	"context"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

// PartnerStore defines the driven port for the destination partner table.
type PartnerStore interface {
	// InsertBatch inserts all rows in one transaction and returns their codes
	// in input order. On any failure nothing is committed and no codes are
	// returned.
	InsertBatch(ctx context.Context, rows []model.PartnerRow) ([]int64, error)
	Close() error
}

// PartnerStoreOpener connects to the destination database. The sync service
// calls it once per run, after login.
type PartnerStoreOpener func(ctx context.Context) (PartnerStore, error)
