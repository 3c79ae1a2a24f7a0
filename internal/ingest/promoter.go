package ingest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/coreledger/sqlindexer/pkg/logging"
)

// Promoter drains the volatile store into writer batches when the host
// node reports a block as irreversible (§4.8). It coordinates with
// readers (the query engine's synchronize) through an atomic marker
// plus a mutex/condvar: readers wait until the block they care about
// leaves the range currently being promoted.
type Promoter struct {
	store   *Store
	writers *Writers

	mu   sync.Mutex
	cond *sync.Cond

	currentlyPersisted atomic.Uint32

	log *logging.Logger
}

// NewPromoter builds a promoter draining store into writers.
func NewPromoter(store *Store, writers *Writers) *Promoter {
	p := &Promoter{
		store:   store,
		writers: writers,
		log:     logging.GetDefault().Component(logging.ComponentPromoter),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// OnIrreversible drains every volatile row for block N into the
// writers' batch buffers and flushes them, in the table order mandated
// by §4.8: accounts, permlinks, blocks, transactions, multisigs,
// operations, account_operations. Only meaningful in live mode; replay
// mode flushes on its own commit cadence and never calls this.
func (p *Promoter) OnIrreversible(ctx context.Context, blockNumber uint32) {
	p.currentlyPersisted.Store(blockNumber)

	p.mu.Lock()

	accounts := p.store.Accounts.DrainBlock(blockNumber)
	permlinks := p.store.Permlinks.DrainBlock(blockNumber)
	blocks := p.store.Blocks.DrainBlock(blockNumber)
	transactions := p.store.Transactions.DrainBlock(blockNumber)
	multisigs := p.store.MultiSigs.DrainBlock(blockNumber)
	operations := p.store.Operations.DrainBlock(blockNumber)
	accountOperations := p.store.AccountOperations.DrainBlock(blockNumber)

	p.mu.Unlock()

	p.writers.Accounts.Flush(ctx, accounts)
	p.writers.Permlinks.Flush(ctx, permlinks)
	p.writers.Blocks.Flush(ctx, blocks)
	p.writers.Transactions.Flush(ctx, transactions)
	p.writers.MultiSigs.Flush(ctx, multisigs)
	p.writers.Operations.Flush(ctx, operations)
	p.writers.AccountOperations.Flush(ctx, accountOperations)

	p.currentlyPersisted.Store(0)

	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// CurrentlyPersisted reports the block number currently being promoted,
// or 0 if no promotion is in flight.
func (p *Promoter) CurrentlyPersisted() uint32 {
	return p.currentlyPersisted.Load()
}

// Synchronize blocks until no promotion in flight intersects
// [lo, hi) — the §5 suspension point the query engine's reads predicate
// on before touching the volatile store.
func (p *Promoter) Synchronize(lo, hi uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		persisted := p.currentlyPersisted.Load()
		if persisted == 0 || persisted < lo || persisted >= hi {
			return
		}
		p.cond.Wait()
	}
}
