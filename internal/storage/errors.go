package storage

import (
	"fmt"

	"webappbot/internal/shared"
)

func notFound(id int64) error {
	return fmt.Errorf("visitor %d: %w", id, shared.ErrNotFound)
}

// storeErr marks failures of the underlying database as dependency failures.
func storeErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return shared.MarkKind(shared.Wrap(err, op), shared.KindDependencyFailure)
}
