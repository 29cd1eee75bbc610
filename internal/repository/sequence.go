package repository

import (
	"context"
	"fmt"

	"github.com/nimasrn/xpensemate/pkg/db"
)

// insertBatchSize keeps bulk inserts under SQLite's bind variable limit.
const insertBatchSize = 500

// resyncSequence moves the postgres id sequence of table past rows inserted
// with explicit ids. sqlite AUTOINCREMENT tracks them on its own.
func resyncSequence(ctx context.Context, d *db.DB, table string) error {
	if d.Driver() != db.DriverPostgres {
		return nil
	}
	return d.Write(ctx).Exec(fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)", table,
	)).Error
}
