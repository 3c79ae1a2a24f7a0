// Package query implements the history query engine: it merges rows
// returned by the server-side ah_get_* SQL functions with reversible
// rows still held in the ingestion pipeline's volatile store.
package query

import (
	"context"

	"github.com/coreledger/sqlindexer/internal/dbpool"
	"github.com/coreledger/sqlindexer/internal/ingest"
	"github.com/coreledger/sqlindexer/internal/model"
	"github.com/coreledger/sqlindexer/pkg/logging"
)

// Op is one operation row as returned to a caller, whether sourced from
// SQL or the volatile store.
type Op struct {
	OperationID int64
	TrxInBlock  int16
	OpInTrx     int16
	IsVirtual   bool
	Timestamp   string
	Body        string
	Block       uint32
	TrxID       string
}

// OpEmitter is the streaming callback every query operation reports
// rows through; returning an error stops the stream.
type OpEmitter func(Op) error

// Engine executes the four public query operations of §4.10. It never
// mutates the volatile store; it only reads from it after
// synchronizing with any in-flight promotion.
type Engine struct {
	pool     *dbpool.Pool
	store    *ingest.Store
	promoter *ingest.Promoter
	log      *logging.Logger
}

// New builds a query engine reading from pool, optionally merging
// volatile rows from store via promoter's synchronization gate.
func New(pool *dbpool.Pool, store *ingest.Store, promoter *ingest.Promoter) *Engine {
	return &Engine{
		pool:     pool,
		store:    store,
		promoter: promoter,
		log:      logging.GetDefault().Component(logging.ComponentQuery),
	}
}

// GetOpsInBlock streams the operations of block, optionally merging
// reversible (volatile) data. SQL failures log and terminate the
// stream rather than propagating (§4.10 error handling); a column-count
// mismatch from ah_get_ops_in_block is returned as a SchemaMismatch.
func (e *Engine) GetOpsInBlock(ctx context.Context, block uint32, onlyVirtual, includeReversible bool, emit OpEmitter) error {
	if includeReversible {
		e.promoter.Synchronize(block, block+1)
		if e.store.Blocks.HasBlock(block) {
			return e.emitVolatileOpsInBlock(block, onlyVirtual, emit)
		}
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		e.log.Error("failed to acquire connection", "error", err)
		return nil
	}
	defer e.pool.Release(conn)

	return queryOpsInBlock(ctx, conn, block, onlyVirtual, emit, e.log)
}

func (e *Engine) emitVolatileOpsInBlock(block uint32, onlyVirtual bool, emit OpEmitter) error {
	rows := e.store.Operations.ScanBlock(block)
	for _, r := range rows {
		if onlyVirtual && !r.IsVirtual {
			continue
		}
		body, ok := ingest.UnpackOperationBody(r.Body)
		if !ok {
			e.log.Error("operation body failed to unpack, emitting an empty object", "operation_id", r.OperationID)
			body = []byte("{}")
		}
		if err := emit(Op{
			OperationID: r.OperationID,
			TrxInBlock:  r.TrxInBlock,
			OpInTrx:     r.OpInTrx,
			IsVirtual:   r.IsVirtual,
			Body:        string(body),
			Block:       r.BlockNumber,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Transaction is the result of GetTransaction.
type Transaction struct {
	RefBlockNum    uint16
	RefBlockPrefix uint32
	Expiration     string
	BlockNum       uint32
	TransactionNum int
	Signature      string
	MultiSig       []string
	Operations     []string
}

// GetTransaction looks up a transaction by hash. Always reads
// irreversible data only — include_reversible is accepted for API
// compatibility and otherwise unused (documented open question, §9).
func (e *Engine) GetTransaction(ctx context.Context, hash model.Digest, includeReversible bool) (*Transaction, error) {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		e.log.Error("failed to acquire connection", "error", err)
		return nil, nil
	}
	defer e.pool.Release(conn)

	return queryTransaction(ctx, conn, hash, e.log)
}

// GetAccountHistory streams operations impacting account. Always reads
// irreversible data only (documented open question, §9).
func (e *Engine) GetAccountHistory(ctx context.Context, account string, start int64, limit int, includeReversible bool, filterLow, filterHigh uint64, emit func(seqNo int64, op Op) error) error {
	filter := accountHistoryFilterToTypeIDs(filterLow, filterHigh)

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		e.log.Error("failed to acquire connection", "error", err)
		return nil
	}
	defer e.pool.Release(conn)

	return queryAccountHistory(ctx, conn, filter, account, start, limit, emit, e.log)
}

// EnumVirtualOpsResult carries the paging cursor returned by
// enum_virtual_ops.
type EnumVirtualOpsResult struct {
	NextBlock       uint32
	NextOperationID int64
}

// EnumVirtualOps streams virtual operations in [blockBegin, blockEnd),
// merging reversible rows when requested and the SQL-side limit was not
// exhausted.
func (e *Engine) EnumVirtualOps(ctx context.Context, blockBegin, blockEnd uint32, includeReversible bool, opBegin int64, limit int, filter uint32, emit OpEmitter) (EnumVirtualOpsResult, error) {
	e.promoter.Synchronize(blockBegin, blockEnd)

	typeIDs := virtualOpFilterToTypeIDs(filter)

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		e.log.Error("failed to acquire connection", "error", err)
		return EnumVirtualOpsResult{}, nil
	}
	defer e.pool.Release(conn)

	emitted, cursor, err := queryEnumVirtualOps(ctx, conn, typeIDs, blockBegin, blockEnd, opBegin, limit, emit, e.log)
	if err != nil {
		return EnumVirtualOpsResult{}, err
	}

	if emitted < limit && cursor.NextBlock == 0 && cursor.NextOperationID == 0 {
		cursor, err = queryEnumVirtualOpsNextElements(ctx, conn, typeIDs, blockEnd, opBegin, e.log)
		if err != nil {
			return EnumVirtualOpsResult{}, err
		}
	}

	if includeReversible && emitted < limit {
		remaining := limit - emitted
		_, volCursor, err := e.emitVolatileVirtualOps(blockBegin, blockEnd, typeIDs, remaining, emit)
		if err != nil {
			return cursor, err
		}
		// The volatile store truncating its own scan is a stronger
		// continuation point than whatever the SQL side established: it
		// means there is more reversible data the caller hasn't seen yet.
		if volCursor.NextBlock != 0 || volCursor.NextOperationID != 0 {
			cursor = volCursor
		}
	}

	return cursor, nil
}

// emitVolatileVirtualOps streams up to limit matching virtual operations
// from the volatile store's [lo, hi) range. If it stops early because
// limit was reached, the first row it would have emitted next seeds the
// returned cursor, mirroring queryEnumVirtualOps's own (limit+1)-th-row
// convention; otherwise the cursor is the zero value (nothing more to
// enumerate in this range).
func (e *Engine) emitVolatileVirtualOps(lo, hi uint32, typeIDs []int32, limit int, emit OpEmitter) (int, EnumVirtualOpsResult, error) {
	allowed := make(map[int32]bool, len(typeIDs))
	for _, id := range typeIDs {
		allowed[id] = true
	}

	rows := e.store.Operations.ScanRange(lo, hi)
	count := 0
	var cursor EnumVirtualOpsResult
	for _, r := range rows {
		if !r.IsVirtual {
			continue
		}
		if len(typeIDs) > 0 && !allowed[r.OpTypeID] {
			continue
		}
		if count >= limit {
			cursor = EnumVirtualOpsResult{NextBlock: r.BlockNumber, NextOperationID: r.OperationID}
			break
		}
		body, ok := ingest.UnpackOperationBody(r.Body)
		if !ok {
			e.log.Error("operation body failed to unpack, emitting an empty object", "operation_id", r.OperationID)
			body = []byte("{}")
		}
		if err := emit(Op{
			OperationID: r.OperationID,
			TrxInBlock:  r.TrxInBlock,
			OpInTrx:     r.OpInTrx,
			IsVirtual:   r.IsVirtual,
			Body:        string(body),
			Block:       r.BlockNumber,
		}); err != nil {
			return count, cursor, err
		}
		count++
	}
	return count, cursor, nil
}
