package export

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/moneymanager"
	"github.com/jackc/pgx/v5"
)

// Postgres copies txs into table, creating it if needed. Rows are appended:
// exporting twice duplicates them.
func Postgres(ctx context.Context, databaseURL, table string, txs []moneymanager.Transaction, now time.Time) (int64, error) {
	rs, err := rows(txs, now)
	if err != nil {
		return 0, err
	}
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to parse database URL: %w", err)
	}
	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	name := pgx.Identifier{table}.Sanitize()
	schema := `CREATE TABLE IF NOT EXISTS ` + name + ` (
		title TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		type VARCHAR(10) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := conn.Exec(ctx, schema); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", name, err)
	}

	src := pgx.CopyFromSlice(len(rs), func(i int) ([]any, error) {
		r := rs[i]
		return []any{r.Title, r.Amount.InexactFloat64(), r.Type.String(), r.When}, nil
	})
	n, err := conn.CopyFrom(ctx, pgx.Identifier{table}, []string{"title", "amount", "type", "created_at"}, src)
	if err != nil {
		return n, fmt.Errorf("failed to copy into %s: %w", name, err)
	}
	return n, nil
}
