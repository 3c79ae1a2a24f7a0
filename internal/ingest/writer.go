package ingest

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/coreledger/sqlindexer/internal/escape"
	"github.com/coreledger/sqlindexer/internal/model"
)

// tableWriter is the per-table specialization described in §4.3: it
// owns a table name, an ordered column list, and a per-row formatter,
// and hands the resulting multi-row INSERT to a data processor.
type tableWriter[T any] struct {
	table      string
	columns    []string
	formatRow  func(T) string
	proc       *Processor

	stats Stats
}

// Stats reports per-table flush counters, surfaced for operational
// visibility the way the source chain's stats_group exposes them.
type Stats struct {
	RowsFlushed   int64
	FlushCount    int64
	LastFlushSize int
}

func newTableWriter[T any](table string, columns []string, proc *Processor, formatRow func(T) string) *tableWriter[T] {
	return &tableWriter[T]{table: table, columns: columns, formatRow: formatRow, proc: proc}
}

// Flush formats rows into a single multi-row INSERT and enqueues it on
// the writer's data processor. Flushing an empty batch is a no-op.
func (w *tableWriter[T]) Flush(ctx context.Context, rows []T) {
	if len(rows) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(w.table)
	b.WriteByte('(')
	b.WriteString(strings.Join(w.columns, ", "))
	b.WriteString(") VALUES ")

	for i, row := range rows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		b.WriteString(w.formatRow(row))
		b.WriteByte(')')
	}

	w.stats.RowsFlushed += int64(len(rows))
	w.stats.FlushCount++
	w.stats.LastFlushSize = len(rows)

	w.proc.Enqueue(Chunk{
		Label: w.table,
		SQL:   b.String(),
	})
}

// Stats returns a snapshot of this writer's flush counters.
func (w *tableWriter[T]) Stats() Stats {
	return w.stats
}

func digestLiteral(d model.Digest) string {
	return escape.HexLiteral(d[:])
}

func sigLiteral(s *model.Signature) string {
	if s == nil {
		return "NULL"
	}
	return escape.HexLiteral(s[:])
}

func tsLiteral(unixSeconds int64) string {
	return escape.String(time.Unix(unixSeconds, 0).UTC().Format("2006-01-02T15:04:05"))
}

func i32(v int32) string  { return strconv.FormatInt(int64(v), 10) }
func i64(v int64) string  { return strconv.FormatInt(v, 10) }
func u32(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
func u16(v uint16) string { return strconv.FormatUint(uint64(v), 10) }
func i16(v int16) string  { return strconv.FormatInt(int64(v), 10) }

// Writers bundles one tableWriter per persisted table, wired to the
// given processor.
type Writers struct {
	Accounts          *tableWriter[AssignedAccount]
	Permlinks         *tableWriter[AssignedPermlink]
	Blocks            *tableWriter[BlockRow]
	Transactions      *tableWriter[TransactionRow]
	MultiSigs         *tableWriter[MultiSigRow]
	Operations        *tableWriter[OperationRow]
	AccountOperations *tableWriter[AccountOperationRow]
}

// NewWriters builds the seven table writers described in §6's
// persisted-table list, all dispatching through proc.
func NewWriters(proc *Processor) *Writers {
	return &Writers{
		Accounts: newTableWriter("hive_accounts", []string{"id", "name"}, proc,
			func(r AssignedAccount) string {
				return i32(r.ID) + "," + escape.String(r.Name)
			}),

		Permlinks: newTableWriter("hive_permlink_data", []string{"id", "permlink"}, proc,
			func(r AssignedPermlink) string {
				return i32(r.ID) + "," + escape.String(r.Text)
			}),

		Blocks: newTableWriter("hive_blocks", []string{"num", "hash", "prev", "created_at"}, proc,
			func(r BlockRow) string {
				return u32(r.Number) + "," + digestLiteral(r.Hash) + "," + digestLiteral(r.PrevHash) + "," + tsLiteral(r.CreatedAt)
			}),

		Transactions: newTableWriter("hive_transactions",
			[]string{"block_num", "trx_hash", "trx_in_block", "ref_block_num", "ref_block_prefix", "expiration", "signature"}, proc,
			func(r TransactionRow) string {
				return u32(r.BlockNumber) + "," + digestLiteral(r.Hash) + "," + u16(r.TrxInBlock) + "," +
					u16(r.RefBlockNum) + "," + u32(r.RefBlockPrefix) + "," + tsLiteral(r.Expiration) + "," + sigLiteral(r.PrimarySig)
			}),

		MultiSigs: newTableWriter("hive_transactions_multisig", []string{"trx_hash", "signature"}, proc,
			func(r MultiSigRow) string {
				return digestLiteral(r.TransactionHash) + "," + escape.HexLiteral(r.Signature[:])
			}),

		Operations: newTableWriter("hive_operations",
			[]string{"id", "block_num", "trx_in_block", "op_pos", "op_type_id", "body", "permlink_ids"}, proc,
			func(r OperationRow) string {
				body, ok := UnpackOperationBody(r.Body)
				if !ok {
					proc.log.Error("operation body failed to unpack, writing an empty object", "operation_id", r.OperationID)
					body = []byte("{}")
				}
				return i64(r.OperationID) + "," + u32(r.BlockNumber) + "," + i16(r.TrxInBlock) + "," +
					i16(r.OpInTrx) + "," + i32(r.OpTypeID) + "," + escape.String(string(body)) + ",NULL::int[]"
			}),

		AccountOperations: newTableWriter("hive_account_operations",
			[]string{"operation_id", "account_id", "account_op_seq_no"}, proc,
			func(r AccountOperationRow) string {
				return i64(r.OperationID) + "," + i32(r.AccountID) + "," + i32(r.AccountOpSeqNo)
			}),
	}
}

// InsertOperationTypes populates hive_operation_types once at fresh-db
// init from the build-time operation catalog (§9, "Operation-type
// enumeration").
func InsertOperationTypes(ctx context.Context, proc *Processor) {
	var b strings.Builder
	b.WriteString("INSERT INTO hive_operation_types(id, name, is_virtual) VALUES ")
	for i, op := range model.OperationCatalog {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		b.WriteString(i32(op.ID))
		b.WriteByte(',')
		b.WriteString(escape.String(op.Name))
		b.WriteByte(',')
		b.WriteString(escape.Bool(op.IsVirtual))
		b.WriteByte(')')
	}
	b.WriteString(" ON CONFLICT (id) DO NOTHING")

	proc.Enqueue(Chunk{Label: "hive_operation_types", SQL: b.String()})
}
