package ingest

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/coreledger/sqlindexer/internal/ingesterr"
	"github.com/coreledger/sqlindexer/pkg/logging"
)

// tablesInDDLOrder is the drop order for index/FK cycling: foreign keys
// then indexes/constraints. Recreate runs in the inverse order.
var tablesInDDLOrder = []string{
	"hive_permlink_data", "hive_operations", "hive_accounts", "hive_account_operations",
	"hive_blocks", "hive_transactions", "hive_transactions_multisig",
}

// ShouldCycle implements the §4.9 policy: drop before bulk load and
// recreate after if the database is fresh (psqlBlockNumber == 0) or far
// enough behind (psqlBlockNumber + threshold <= headBlockNumber).
func ShouldCycle(psqlBlockNumber, threshold, headBlockNumber uint32) bool {
	if psqlBlockNumber == 0 {
		return true
	}
	return psqlBlockNumber+threshold <= headBlockNumber
}

// DDLCycler drops and recreates indexes/foreign-keys around a bulk
// load, via the four server-side helper functions named in §6.
type DDLCycler struct {
	conn *pgx.Conn
	log  *logging.Logger
}

// NewDDLCycler builds a cycler bound to conn.
func NewDDLCycler(conn *pgx.Conn) *DDLCycler {
	return &DDLCycler{conn: conn, log: logging.GetDefault().Component(logging.ComponentDDL)}
}

// DropAll drops foreign keys then indexes/constraints for every table,
// in tablesInDDLOrder.
func (d *DDLCycler) DropAll(ctx context.Context) error {
	for _, table := range tablesInDDLOrder {
		if _, err := d.conn.Exec(ctx, "SELECT save_and_drop_indexes_foreign_keys($1)", table); err != nil {
			return ingesterr.NewSqlExecError("save_and_drop_indexes_foreign_keys", err)
		}
	}
	for _, table := range tablesInDDLOrder {
		if _, err := d.conn.Exec(ctx, "SELECT save_and_drop_indexes_constraints($1)", table); err != nil {
			return ingesterr.NewSqlExecError("save_and_drop_indexes_constraints", err)
		}
	}
	d.log.Info("dropped indexes and foreign keys for bulk load", "tables", len(tablesInDDLOrder))
	return nil
}

// RecreateAll recreates indexes/constraints then foreign keys, the
// inverse of DropAll's order, walking tables in reverse.
func (d *DDLCycler) RecreateAll(ctx context.Context) error {
	for i := len(tablesInDDLOrder) - 1; i >= 0; i-- {
		table := tablesInDDLOrder[i]
		if _, err := d.conn.Exec(ctx, "SELECT restore_indexes_constraints($1)", table); err != nil {
			return ingesterr.NewSqlExecError("restore_indexes_constraints", err)
		}
	}
	for i := len(tablesInDDLOrder) - 1; i >= 0; i-- {
		table := tablesInDDLOrder[i]
		if _, err := d.conn.Exec(ctx, "SELECT restore_foreign_keys($1)", table); err != nil {
			return ingesterr.NewSqlExecError("restore_foreign_keys", err)
		}
	}
	d.log.Info("recreated indexes and foreign keys after bulk load", "tables", len(tablesInDDLOrder))
	return nil
}

// LoadSchema executes each line of the schema bootstrap file as one
// statement, for a fresh database started from block 0 (psql-path-to-schema).
func LoadSchema(ctx context.Context, conn *pgx.Conn, lines []string) error {
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, err := conn.Exec(ctx, line); err != nil {
			return ingesterr.NewConfigError("psql-path-to-schema", "failed to execute schema statement: "+err.Error())
		}
	}
	return nil
}
