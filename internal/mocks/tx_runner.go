package mocks

import (
	"context"

	"github.com/taskdeck/taskdeck-api/internal/store"
)

// PassthroughTxRunner returns a store.TxRunner that invokes the function with
// a nil transaction. The mock stores ignore WithTx, so service logic runs the
// same code paths it would inside a real transaction.
func PassthroughTxRunner() store.TxRunner {
	return func(ctx context.Context, fn store.TxFn) error {
		return fn(ctx, nil)
	}
}
