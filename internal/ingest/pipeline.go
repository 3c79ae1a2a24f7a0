package ingest

import (
	"context"

	"github.com/coreledger/sqlindexer/internal/ingesterr"
	"github.com/coreledger/sqlindexer/internal/model"
	"github.com/coreledger/sqlindexer/pkg/logging"
)

// Mode selects between near-tip live ingestion (volatile store,
// blocksPerCommit=1) and bulk historical replay (direct batch
// population, larger blocksPerCommit). See GLOSSARY.
type Mode int

const (
	// ModeLive is near-tip ingestion: rows land in the volatile store
	// and are promoted on irreversibility.
	ModeLive Mode = iota
	// ModeReplay is bulk historical ingestion: rows go directly into
	// batch buffers, flushed every blocksPerCommit blocks.
	ModeReplay
)

// replayBatches accumulates rows directly, bypassing the volatile
// store, for replay mode.
type replayBatches struct {
	accounts          []AssignedAccount
	permlinks         []AssignedPermlink
	blocks            []BlockRow
	transactions      []TransactionRow
	multisigs         []MultiSigRow
	operations        []OperationRow
	accountOperations []AccountOperationRow
}

// Pipeline is the ingestion pipeline of §4.6: it subscribes to node
// notifications (via the caller invoking PreOperation/PostBlock),
// assigns sequence ids, materializes rows into either the volatile
// store (live) or direct batches (replay), and dispatches to writers on
// a configurable cadence.
type Pipeline struct {
	mode            Mode
	blocksPerCommit uint32

	caches  *Caches
	store   *Store
	writers *Writers
	promoter *Promoter

	batch replayBatches

	blockVops int16 // reset every block; used for virtual ops with trx_in_block < 0

	lastBlockHash model.Digest // zero until the first PostBlock of this run

	log *logging.Logger
}

// NewPipeline builds a pipeline in the given mode. blocksPerCommit
// should be 1 for ModeLive and 1000 for ModeReplay, per §4.6.
func NewPipeline(mode Mode, blocksPerCommit uint32, caches *Caches, store *Store, writers *Writers, promoter *Promoter) *Pipeline {
	return &Pipeline{
		mode:            mode,
		blocksPerCommit: blocksPerCommit,
		caches:          caches,
		store:           store,
		writers:         writers,
		promoter:        promoter,
		log:             logging.GetDefault().Component(logging.ComponentPipeline),
	}
}

// SeedLastBlockHash primes the prev_hash continuity check PostBlock
// performs, for a process that restarted mid-chain and was told the
// last block hash it saw before restarting. Unseeded, the check simply
// stays quiet until the second PostBlock of this run.
func (p *Pipeline) SeedLastBlockHash(hash model.Digest) {
	p.lastBlockHash = hash
}

// OperationInput is everything the pre-operation hook needs about one
// operation, as the node-source contract would supply it.
type OperationInput struct {
	BlockNumber    uint32
	TrxInBlock     int16 // negative for virtual
	SuppliedOpInTrx int16
	IsVirtual      bool
	IsBlockProduction bool
	Discovery      NewIDDiscovery
	Body           []byte // raw JSON as the node source reports it; PreOperation packs it
}

// PreOperation runs step 1-6 of §4.6. It returns the assigned
// operation_id, or 0 and no error if the operation was skipped because
// the node is producing a block.
func (p *Pipeline) PreOperation(ctx context.Context, in OperationInput) (int64, error) {
	if in.IsBlockProduction {
		return 0, nil
	}

	opID := p.caches.NextOperationID()

	if !in.IsVirtual {
		newAccounts, newPermlinks := discoverNewIDs(p.caches, in.Discovery)
		p.materializeNewIDs(in.BlockNumber, opID, newAccounts, newPermlinks)
	}

	opInTrx := in.SuppliedOpInTrx
	if in.IsVirtual && in.TrxInBlock < 0 {
		opInTrx = p.blockVops
		p.blockVops++
	}

	row := OperationRow{
		OperationID: opID,
		BlockNumber: in.BlockNumber,
		TrxInBlock:  in.TrxInBlock,
		OpInTrx:     opInTrx,
		OpTypeID:    in.Discovery.OpTypeID,
		IsVirtual:   in.IsVirtual,
		Body:        PackOperationBody(in.Body),
	}

	if p.mode == ModeLive {
		p.store.Operations.Insert(volatileKey{blockNumber: in.BlockNumber, secondary: opID}, row)
	} else {
		p.batch.operations = append(p.batch.operations, row)
	}

	for _, name := range in.Discovery.ImpactedAccounts {
		seq, err := p.caches.NextAccountOpSeqNo(name)
		if err != nil {
			return opID, err
		}
		accountID, ok := p.caches.AccountID(name)
		if !ok {
			return opID, ingesterr.NewConsistencyError("account " + name + " disappeared from cache mid-operation")
		}

		aoRow := AccountOperationRow{OperationID: opID, AccountID: accountID, AccountOpSeqNo: seq}
		if p.mode == ModeLive {
			p.store.AccountOperations.Insert(volatileKey{blockNumber: in.BlockNumber, secondary: opID}, aoRow)
		} else {
			p.batch.accountOperations = append(p.batch.accountOperations, aoRow)
		}
	}

	return opID, nil
}

func (p *Pipeline) materializeNewIDs(blockNumber uint32, opID int64, newAccounts []AssignedAccount, newPermlinks []AssignedPermlink) {
	for _, a := range newAccounts {
		if p.mode == ModeLive {
			p.store.Accounts.Insert(volatileKey{blockNumber: blockNumber, secondary: int64(a.ID)}, a)
		} else {
			p.batch.accounts = append(p.batch.accounts, a)
		}
	}
	for _, pl := range newPermlinks {
		if p.mode == ModeLive {
			p.store.Permlinks.Insert(volatileKey{blockNumber: blockNumber, secondary: int64(pl.ID)}, pl)
		} else {
			p.batch.permlinks = append(p.batch.permlinks, pl)
		}
	}
}

// BlockInput is what the post-block hook needs.
type BlockInput struct {
	Block        BlockRow
	Transactions []TransactionRow
	MultiSigs    []MultiSigRow
}

// PostBlock runs the post-block hook of §4.6: materialize block and
// transaction rows, reset block_vops, and flush on the configured
// commit cadence.
func (p *Pipeline) PostBlock(ctx context.Context, in BlockInput) {
	var zero model.Digest
	if p.lastBlockHash != zero && !p.lastBlockHash.Equal(in.Block.PrevHash) {
		p.log.Warn("block prev_hash does not match the previously observed block hash",
			"block", in.Block.Number)
	}
	p.lastBlockHash = in.Block.Hash

	if p.mode == ModeLive {
		p.store.Blocks.Insert(volatileKey{blockNumber: in.Block.Number, secondary: int64(in.Block.Number)}, in.Block)
		for _, tx := range in.Transactions {
			key := volatileKey{blockNumber: in.Block.Number, secondary: transactionSecondary(tx.TrxInBlock, int64(tx.BlockNumber))}
			p.store.Transactions.Insert(key, tx)
		}
		for i, ms := range in.MultiSigs {
			// secondary is the row's position within in.MultiSigs, not the
			// block number: two rows under an identical key would come back
			// out of DrainBlock/ScanBlock in reverse insertion order (Insert
			// is a lower-bound insert), which would scramble multisig order
			// within a transaction.
			p.store.MultiSigs.Insert(volatileKey{blockNumber: in.Block.Number, secondary: int64(i)}, ms)
		}
	} else {
		p.batch.blocks = append(p.batch.blocks, in.Block)
		p.batch.transactions = append(p.batch.transactions, in.Transactions...)
		p.batch.multisigs = append(p.batch.multisigs, in.MultiSigs...)
	}

	p.blockVops = 0

	if in.Block.Number%p.blocksPerCommit == 0 {
		p.flush(ctx)
	}
}

// flush dispatches every accumulated replay batch to the writers and
// empties the source buffers. In live mode there is nothing to flush
// here; rows leave the volatile store only through the promoter.
func (p *Pipeline) flush(ctx context.Context) {
	if p.mode != ModeReplay {
		return
	}

	p.writers.Accounts.Flush(ctx, p.batch.accounts)
	p.writers.Permlinks.Flush(ctx, p.batch.permlinks)
	p.writers.Blocks.Flush(ctx, p.batch.blocks)
	p.writers.Transactions.Flush(ctx, p.batch.transactions)
	p.writers.MultiSigs.Flush(ctx, p.batch.multisigs)
	p.writers.Operations.Flush(ctx, p.batch.operations)
	p.writers.AccountOperations.Flush(ctx, p.batch.accountOperations)

	p.batch = replayBatches{}
}
