package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devonwhite/dbmaint/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pg error code for "object does not exist"
const undefinedObject = "42704"

type Index struct {
	Name       string
	Definition string
}

// DB is the slice of the pgx pool the index admin needs; tests supply a
// fake to drive the error-classification paths.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Admin struct {
	db      DB
	metrics *observability.Metrics
}

func NewAdmin(db DB, metrics *observability.Metrics) *Admin {
	return &Admin{db: db, metrics: metrics}
}

// List returns the secondary indexes currently defined on a table.
func (a *Admin) List(ctx context.Context, table string) ([]Index, error) {
	var indexes []Index

	err := a.metrics.ObserveDB("indexes.list", func() error {
		rows, err := a.db.Query(
			ctx,
			`SELECT indexname, indexdef
             FROM pg_indexes
             WHERE schemaname = 'public' AND tablename = $1
             ORDER BY indexname`,
			table,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var idx Index

			if err := rows.Scan(&idx.Name, &idx.Definition); err != nil {
				return err
			}

			indexes = append(indexes, idx)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return indexes, nil
}

// Drop removes a named index. A missing index is a benign outcome: Drop
// returns (false, nil) so a rerun of the migration stays a no-op.
func (a *Admin) Drop(ctx context.Context, name string) (bool, error) {
	err := a.metrics.ObserveDB("indexes.drop", func() error {
		_, err := a.db.Exec(ctx, fmt.Sprintf(`DROP INDEX %s`, pgIdent(name)))
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedObject {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// pgIdent quotes an identifier; index names cannot be bound as statement
// parameters.
func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
