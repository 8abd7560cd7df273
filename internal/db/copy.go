// Package db provides shared database helpers for bulk insert and row
// chunking used by the extracted-item writer.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using the PostgreSQL COPY
// protocol, the fastest path for large item volumes.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// ChunkRows splits rows into consecutive chunks of at most size rows, so
// one oversized payload never travels in a single request.
func ChunkRows(rows [][]any, size int) [][][]any {
	if size <= 0 || len(rows) == 0 {
		if len(rows) == 0 {
			return nil
		}
		return [][][]any{rows}
	}

	var chunks [][][]any
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
