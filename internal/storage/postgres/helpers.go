package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all rows from the records table.
// It is intended for use in tests only.
func (s *Store) TruncateForTest(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "TRUNCATE TABLE records"); err != nil {
		return fmt.Errorf("postgres: failed to truncate records: %w", err)
	}
	return nil
}
