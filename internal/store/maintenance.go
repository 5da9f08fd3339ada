package store

import (
	"context"
	"fmt"
)

// Reset drops all pipeline tables and recreates the schema. This is the only
// sanctioned deletion path; everything else is append or update only.
func (s *Store) Reset(ctx context.Context) error {
	ctx = ensureContext(ctx)
	tables := []string{"stage_log", "articles", "source_documents", "schema_version"}
	for _, table := range tables {
		if _, err := s.execWithRetry(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return s.createSchema(ctx)
}
