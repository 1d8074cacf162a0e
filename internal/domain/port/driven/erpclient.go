package driven

import (
	"context"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

// ERPClient defines the driven port for the Sankhya ERP API. Every call after
// Login takes the bearer token it returned.
type ERPClient interface {
	// Login opens a session and returns its bearer token.
	Login(ctx context.Context) (string, error)
	// FetchPartners reads the partner view (a single page of at most 500 rows).
	FetchPartners(ctx context.Context, token string) ([]model.PartnerRecord, error)
	// MarkImported sets the imported flag on one partner.
	MarkImported(ctx context.Context, token string, code int64) error
	// Logout ends the session.
	Logout(ctx context.Context, token string) error
}
