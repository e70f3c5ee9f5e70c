// Package records defines the port to the remote record store. The store is
// the source of truth; it may be eventually consistent, so every listing is
// treated as a snapshot that can lag the most recent create.
package records

import (
	"context"

	"expensify/internal/core"
)

type (
	// Creator persists a new record and returns the store-assigned id.
	Creator interface {
		Create(ctx context.Context, r core.Record) (id string, err error)
	}

	// Lister reads records back. Implementations are not required to
	// filter server-side; ListMonth may over-fetch and let the caller
	// select, but must never under-fetch the requested month.
	Lister interface {
		ListMonth(ctx context.Context, month core.Month) ([]core.Record, error)
		ListAll(ctx context.Context) ([]core.Record, error)
	}

	// StatusUpdater mutates the status of an existing record.
	StatusUpdater interface {
		UpdateStatus(ctx context.Context, id string, status core.Status) error
	}

	// Store is the full record-store surface the service layer needs.
	Store interface {
		Creator
		Lister
		StatusUpdater
	}
)
