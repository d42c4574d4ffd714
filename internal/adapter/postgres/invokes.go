package postgres

import (
	"context"
	"fmt"
)

// RecordInvoke appends a row to the invokes audit table recording one
// pipeline run and whether it found new data.
func (d *DB) RecordInvoke(ctx context.Context, functionName string, newData bool) error {
	const query = `INSERT INTO invokes (function_name, new_data) VALUES ($1, $2)`
	if _, err := d.conn.ExecContext(ctx, query, functionName, newData); err != nil {
		return fmt.Errorf("record invoke for %s: %w", functionName, err)
	}
	return nil
}
