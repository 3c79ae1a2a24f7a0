package query

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/coreledger/sqlindexer/internal/ingesterr"
	"github.com/coreledger/sqlindexer/pkg/logging"
)

// accountHistoryFilterToTypeIDs translates the two 64-bit filter
// bitmaps into the integer array ah_get_account_history expects: bit i
// of the low word selects type i, bit i of the high word selects type
// i+64. An empty result (both words zero) means "no filter" — the SQL
// function interprets an empty array as "all types."
func accountHistoryFilterToTypeIDs(low, high uint64) []int32 {
	var ids []int32
	for i := 0; i < 64; i++ {
		if low&(1<<uint(i)) != 0 {
			ids = append(ids, int32(i))
		}
	}
	for i := 0; i < 64; i++ {
		if high&(1<<uint(i)) != 0 {
			ids = append(ids, int32(i+64))
		}
	}
	return ids
}

// virtualOpFilterToTypeIDs translates the 32-bit virtual-op filter:
// bit i selects type id i+48 (the first virtual operation kind, per the
// build-time operation catalog).
func virtualOpFilterToTypeIDs(filter uint32) []int32 {
	var ids []int32
	for i := 0; i < 32; i++ {
		if filter&(1<<uint(i)) != 0 {
			ids = append(ids, int32(i+48))
		}
	}
	return ids
}

const opsInBlockCols = 7

// queryOpsInBlock calls ah_get_ops_in_block(block, only_virtual) and
// streams its rows.
func queryOpsInBlock(ctx context.Context, conn *pgx.Conn, block uint32, onlyVirtual bool, emit OpEmitter, log *logging.Logger) error {
	rows, err := conn.Query(ctx, "SELECT * FROM ah_get_ops_in_block($1, $2) ORDER BY trx_in_block, virtual_op", block, onlyVirtual)
	if err != nil {
		log.Error("ah_get_ops_in_block failed", "block", block, "error", err)
		return nil
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	if len(fields) != opsInBlockCols {
		err := ingesterr.NewSchemaMismatch("ah_get_ops_in_block", opsInBlockCols, len(fields))
		log.Error(err.Error())
		return err
	}

	for rows.Next() {
		var trxID string
		var trxInBlock, opInTrx int
		var virtual bool
		var timestamp, body string
		var operationID int64

		if err := rows.Scan(&trxID, &trxInBlock, &opInTrx, &virtual, &timestamp, &body, &operationID); err != nil {
			log.Error("ah_get_ops_in_block scan failed", "error", err)
			return nil
		}

		if err := emit(Op{
			OperationID: operationID,
			TrxID:       trxID,
			TrxInBlock:  int16(trxInBlock),
			OpInTrx:     int16(opInTrx),
			IsVirtual:   virtual,
			Timestamp:   timestamp,
			Body:        body,
			Block:       block,
		}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryTransaction calls ah_get_trx, then ah_get_multi_sig_in_trx if
// multisig_num > 0, then ah_get_ops_in_trx for operation bodies.
func queryTransaction(ctx context.Context, conn *pgx.Conn, hash [20]byte, log *logging.Logger) (*Transaction, error) {
	trxIDHex := hexString(hash[:])

	row := conn.QueryRow(ctx, "SELECT * FROM ah_get_trx($1)", trxIDHex)

	var t Transaction
	var signature string
	var multisigNum int

	if err := row.Scan(&t.RefBlockNum, &t.RefBlockPrefix, &t.Expiration, &t.BlockNum, &t.TransactionNum, &signature, &multisigNum); err != nil {
		log.Error("ah_get_trx failed", "trx", trxIDHex, "error", err)
		return nil, nil
	}
	t.Signature = signature

	if multisigNum > 0 {
		sigs, err := conn.Query(ctx, "SELECT * FROM ah_get_multi_sig_in_trx($1)", trxIDHex)
		if err != nil {
			log.Error("ah_get_multi_sig_in_trx failed", "trx", trxIDHex, "error", err)
			return nil, nil
		}
		for sigs.Next() {
			var sig string
			if err := sigs.Scan(&sig); err != nil {
				sigs.Close()
				log.Error("ah_get_multi_sig_in_trx scan failed", "error", err)
				return nil, nil
			}
			t.MultiSig = append(t.MultiSig, sig)
		}
		sigs.Close()
		if err := sigs.Err(); err != nil {
			log.Error("ah_get_multi_sig_in_trx iteration failed", "error", err)
			return nil, nil
		}
	}

	ops, err := conn.Query(ctx, "SELECT * FROM ah_get_ops_in_trx($1, $2)", t.BlockNum, t.TransactionNum)
	if err != nil {
		log.Error("ah_get_ops_in_trx failed", "trx", trxIDHex, "error", err)
		return nil, nil
	}
	defer ops.Close()
	for ops.Next() {
		var body string
		if err := ops.Scan(&body); err != nil {
			log.Error("ah_get_ops_in_trx scan failed", "error", err)
			return nil, nil
		}
		t.Operations = append(t.Operations, body)
	}
	if err := ops.Err(); err != nil {
		log.Error("ah_get_ops_in_trx iteration failed", "error", err)
		return nil, nil
	}

	return &t, nil
}

// queryAccountHistory calls ah_get_account_history(filter, account,
// start, limit), ordered _block, _trx_in_block, _op_in_trx, _virtual_op
// DESC.
func queryAccountHistory(ctx context.Context, conn *pgx.Conn, filter []int32, account string, start int64, limit int, emit func(int64, Op) error, log *logging.Logger) error {
	rows, err := conn.Query(ctx,
		"SELECT * FROM ah_get_account_history($1, $2, $3, $4) ORDER BY _block, _trx_in_block, _op_in_trx, _virtual_op DESC",
		filter, account, start, limit)
	if err != nil {
		log.Error("ah_get_account_history failed", "account", account, "error", err)
		return nil
	}
	defer rows.Close()

	for rows.Next() {
		var seqNo int64
		var trxID string
		var trxInBlock, opInTrx int
		var virtual bool
		var timestamp, body string
		var operationID int64
		var block uint32

		if err := rows.Scan(&seqNo, &trxID, &trxInBlock, &opInTrx, &virtual, &timestamp, &body, &operationID, &block); err != nil {
			log.Error("ah_get_account_history scan failed", "error", err)
			return nil
		}

		if err := emit(seqNo, Op{
			OperationID: operationID,
			TrxID:       trxID,
			TrxInBlock:  int16(trxInBlock),
			OpInTrx:     int16(opInTrx),
			IsVirtual:   virtual,
			Timestamp:   timestamp,
			Body:        body,
			Block:       block,
		}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryEnumVirtualOps calls ah_get_enum_virtual_ops(filter, begin, end,
// op_begin, limit), streaming up to limit rows. The (limit+1)-th row,
// if present, is not emitted — it only seeds the paging cursor.
func queryEnumVirtualOps(ctx context.Context, conn *pgx.Conn, filter []int32, begin, end uint32, opBegin int64, limit int, emit OpEmitter, log *logging.Logger) (int, EnumVirtualOpsResult, error) {
	rows, err := conn.Query(ctx, "SELECT * FROM ah_get_enum_virtual_ops($1, $2, $3, $4, $5)", filter, begin, end, opBegin, limit+1)
	if err != nil {
		log.Error("ah_get_enum_virtual_ops failed", "error", err)
		return 0, EnumVirtualOpsResult{}, nil
	}
	defer rows.Close()

	var cursor EnumVirtualOpsResult
	emitted := 0

	for rows.Next() {
		var trxID string
		var trxInBlock, opInTrx int
		var virtual bool
		var timestamp, body string
		var operationID int64
		var block uint32

		if err := rows.Scan(&trxID, &trxInBlock, &opInTrx, &virtual, &timestamp, &body, &operationID, &block); err != nil {
			log.Error("ah_get_enum_virtual_ops scan failed", "error", err)
			return emitted, cursor, nil
		}

		if emitted == limit {
			cursor = EnumVirtualOpsResult{NextBlock: block, NextOperationID: operationID}
			break
		}

		if err := emit(Op{
			OperationID: operationID,
			TrxID:       trxID,
			TrxInBlock:  int16(trxInBlock),
			OpInTrx:     int16(opInTrx),
			IsVirtual:   virtual,
			Timestamp:   timestamp,
			Body:        body,
			Block:       block,
		}); err != nil {
			return emitted, cursor, err
		}
		emitted++
	}

	return emitted, cursor, rows.Err()
}

// queryEnumVirtualOpsNextElements calls
// ah_get_enum_virtual_ops_next_elements(filter, start_block, op_begin)
// when the primary call did not produce enough rows to establish a
// paging cursor on its own.
func queryEnumVirtualOpsNextElements(ctx context.Context, conn *pgx.Conn, filter []int32, startBlock uint32, opBegin int64, log *logging.Logger) (EnumVirtualOpsResult, error) {
	row := conn.QueryRow(ctx, "SELECT * FROM ah_get_enum_virtual_ops_next_elements($1, $2, $3)", filter, startBlock, opBegin)

	var cursor EnumVirtualOpsResult
	if err := row.Scan(&cursor.NextBlock, &cursor.NextOperationID); err != nil {
		log.Error("ah_get_enum_virtual_ops_next_elements failed", "error", err)
		return EnumVirtualOpsResult{}, nil
	}
	return cursor, nil
}

func hexString(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2*len(b))
	for i, c := range b {
		out[2*i] = hexdigits[c>>4]
		out[2*i+1] = hexdigits[c&0xF]
	}
	return string(out)
}
