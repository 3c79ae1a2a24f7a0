package ingest

import (
	"sort"
	"sync"
)

// volatileKey orders rows first by block number, then by a
// caller-supplied secondary key (an id, or for transactions a
// (trx_in_block, id) pair packed by the caller).
type volatileKey struct {
	blockNumber uint32
	secondary   int64
}

func (k volatileKey) less(other volatileKey) bool {
	if k.blockNumber != other.blockNumber {
		return k.blockNumber < other.blockNumber
	}
	return k.secondary < other.secondary
}

// volatileIndex is an in-memory ordered index of not-yet-irreversible
// rows of one entity kind, keyed by (block_number, secondary). It
// supports range-scan by block number and removal of a whole block's
// rows at once (DrainBlock); single rows are not removed by key. All mutation
// happens on either the ingestion thread or the promoter thread, and
// the host's apply loop guarantees those two never run concurrently.
type volatileIndex[T any] struct {
	mu      sync.Mutex
	keys    []volatileKey // kept sorted; parallel to rows
	rows    []T
}

func newVolatileIndex[T any]() *volatileIndex[T] {
	return &volatileIndex[T]{}
}

// Insert adds row under key, keeping keys/rows sorted by (block_number,
// secondary).
func (v *volatileIndex[T]) Insert(key volatileKey, row T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	i := sort.Search(len(v.keys), func(i int) bool { return !v.keys[i].less(key) })
	v.keys = append(v.keys, volatileKey{})
	copy(v.keys[i+1:], v.keys[i:])
	v.keys[i] = key

	var zero T
	v.rows = append(v.rows, zero)
	copy(v.rows[i+1:], v.rows[i:])
	v.rows[i] = row
}

// DrainBlock removes every row with block_number == blockNumber and
// returns them in key order, sorted ascending.
func (v *volatileIndex[T]) DrainBlock(blockNumber uint32) []T {
	v.mu.Lock()
	defer v.mu.Unlock()

	lo := sort.Search(len(v.keys), func(i int) bool { return v.keys[i].blockNumber >= blockNumber })
	hi := sort.Search(len(v.keys), func(i int) bool { return v.keys[i].blockNumber > blockNumber })

	if lo >= hi {
		return nil
	}

	drained := make([]T, hi-lo)
	copy(drained, v.rows[lo:hi])

	v.keys = append(v.keys[:lo], v.keys[hi:]...)
	v.rows = append(v.rows[:lo], v.rows[hi:]...)

	return drained
}

// ScanBlock returns every row with block_number == blockNumber in key
// order, without removing them. Used by reversible-aware queries.
func (v *volatileIndex[T]) ScanBlock(blockNumber uint32) []T {
	v.mu.Lock()
	defer v.mu.Unlock()

	lo := sort.Search(len(v.keys), func(i int) bool { return v.keys[i].blockNumber >= blockNumber })
	hi := sort.Search(len(v.keys), func(i int) bool { return v.keys[i].blockNumber > blockNumber })

	if lo >= hi {
		return nil
	}
	out := make([]T, hi-lo)
	copy(out, v.rows[lo:hi])
	return out
}

// ScanRange returns every row with lo <= block_number < hi, in key order.
func (v *volatileIndex[T]) ScanRange(lo, hi uint32) []T {
	v.mu.Lock()
	defer v.mu.Unlock()

	loIdx := sort.Search(len(v.keys), func(i int) bool { return v.keys[i].blockNumber >= lo })
	hiIdx := sort.Search(len(v.keys), func(i int) bool { return v.keys[i].blockNumber >= hi })

	if loIdx >= hiIdx {
		return nil
	}
	out := make([]T, hiIdx-loIdx)
	copy(out, v.rows[loIdx:hiIdx])
	return out
}

// HasBlock reports whether the index currently holds any row for
// blockNumber.
func (v *volatileIndex[T]) HasBlock(blockNumber uint32) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := sort.Search(len(v.keys), func(i int) bool { return v.keys[i].blockNumber >= blockNumber })
	return i < len(v.keys) && v.keys[i].blockNumber == blockNumber
}

// Len reports the total number of rows currently held.
func (v *volatileIndex[T]) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.rows)
}

// Store is the full set of per-entity volatile indices, one per table
// named in §4.4.
type Store struct {
	Accounts           *volatileIndex[AssignedAccount]
	Permlinks          *volatileIndex[AssignedPermlink]
	Blocks             *volatileIndex[BlockRow]
	Transactions       *volatileIndex[TransactionRow]
	MultiSigs          *volatileIndex[MultiSigRow]
	Operations         *volatileIndex[OperationRow]
	AccountOperations  *volatileIndex[AccountOperationRow]
}

// NewStore returns an empty volatile store.
func NewStore() *Store {
	return &Store{
		Accounts:          newVolatileIndex[AssignedAccount](),
		Permlinks:         newVolatileIndex[AssignedPermlink](),
		Blocks:            newVolatileIndex[BlockRow](),
		Transactions:      newVolatileIndex[TransactionRow](),
		MultiSigs:         newVolatileIndex[MultiSigRow](),
		Operations:        newVolatileIndex[OperationRow](),
		AccountOperations: newVolatileIndex[AccountOperationRow](),
	}
}

// transactionSecondary packs (trx_in_block, id) into one ordering key,
// the composite secondary ordering the transactions index uses.
func transactionSecondary(trxInBlock uint16, id int64) int64 {
	return int64(trxInBlock)<<40 | id
}
