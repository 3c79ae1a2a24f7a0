// Package ingest implements the indexer's write path: the id-caches, the
// volatile store, the per-table writers, the ingestion pipeline itself,
// the irreversibility promoter, and index/constraint cycling.
package ingest

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/coreledger/sqlindexer/internal/ingesterr"
)

// accountEntry is one cached account: its dense id plus the running
// count of operations that have impacted it so far.
type accountEntry struct {
	ID       int32
	OpSeqNo  int32
}

// Caches holds the process-wide account/permlink/operation-id state.
// Entries are appended only: once assigned, an id is never reused and
// an existing entry is never mutated except for the monotone op-seq-no
// counter, which only the ingestion thread advances. Readers take the
// read lock; the table writers (internal/ingest/writer.go) receive
// flattened rows and do not read the caches.
type Caches struct {
	mu sync.RWMutex

	accounts      map[string]*accountEntry
	permlinks     map[string]int32
	nextAccountID int32
	nextPermlinkID int32
	nextOperationID int64
}

// NewCaches returns an empty cache set; callers should immediately call
// Recover to populate it from the database.
func NewCaches() *Caches {
	return &Caches{
		accounts:  make(map[string]*accountEntry),
		permlinks: make(map[string]int32),
	}
}

// AccountID returns the cached id for name and whether it was found.
func (c *Caches) AccountID(name string) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.accounts[name]
	if !ok {
		return 0, false
	}
	return e.ID, true
}

// PermlinkID returns the cached id for text and whether it was found.
func (c *Caches) PermlinkID(text string) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.permlinks[text]
	return id, ok
}

// AssignAccount assigns a fresh id to name if not already cached, and
// returns (id, created). It is only ever called from the ingestion
// thread.
func (c *Caches) AssignAccount(name string) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.accounts[name]; ok {
		return e.ID, false
	}
	c.nextAccountID++
	id := c.nextAccountID
	c.accounts[name] = &accountEntry{ID: id}
	return id, true
}

// AssignPermlink assigns a fresh id to text if not already cached, and
// returns (id, created).
func (c *Caches) AssignPermlink(text string) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.permlinks[text]; ok {
		return id, false
	}
	c.nextPermlinkID++
	id := c.nextPermlinkID
	c.permlinks[text] = id
	return id, true
}

// NextOperationID returns the next operation_id and advances the
// counter. Operation ids are globally monotone within process
// lifetime and recovered at startup as prior MAX(id) + 1.
func (c *Caches) NextOperationID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextOperationID++
	return c.nextOperationID
}

// NextAccountOpSeqNo returns the current operation-sequence counter for
// account name and then advances it. A missing account is a
// ConsistencyError: the caller should have discovered and assigned the
// account before any operation references it.
func (c *Caches) NextAccountOpSeqNo(name string) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.accounts[name]
	if !ok {
		return 0, ingesterr.NewConsistencyError("account " + name + " not in cache")
	}
	seq := e.OpSeqNo
	e.OpSeqNo++
	return seq, nil
}

// recoveryQueries mirror load_initial_db_data: a single read-only pass
// over the persisted tables to restore every monotone counter.
const (
	queryMaxBlockNumber = `SELECT COALESCE(MAX(num), 0) FROM hive_blocks`
	queryMaxOperationID = `SELECT COALESCE(MAX(id), 0) FROM hive_operations`
	queryAllAccounts    = `SELECT id, name, account_op_count FROM hive_accounts_view`
	queryAllPermlinks   = `SELECT id, permlink FROM hive_permlink_data`
)

// RecoveryResult reports the recovered startup state, primarily for
// logging and for index/constraint-cycling decisions (§4.9).
type RecoveryResult struct {
	MaxBlockNumber  uint32
	NextOperationID int64
}

// Recover populates c from the database identified by conn, mirroring
// load_initial_db_data: it reads MAX(block_num), MAX(operation id), the
// full account cache (with per-account operation counts) and the full
// permlink cache. It must run before any ingestion begins.
func (c *Caches) Recover(ctx context.Context, conn *pgx.Conn) (RecoveryResult, error) {
	var result RecoveryResult

	var maxBlock int64
	if err := conn.QueryRow(ctx, queryMaxBlockNumber).Scan(&maxBlock); err != nil {
		return result, ingesterr.NewSqlExecError("recover max block number", err)
	}
	result.MaxBlockNumber = uint32(maxBlock)

	var maxOpID int64
	if err := conn.QueryRow(ctx, queryMaxOperationID).Scan(&maxOpID); err != nil {
		return result, ingesterr.NewSqlExecError("recover max operation id", err)
	}

	c.mu.Lock()
	c.nextOperationID = maxOpID
	c.mu.Unlock()
	result.NextOperationID = maxOpID + 1

	rows, err := conn.Query(ctx, queryAllAccounts)
	if err != nil {
		return result, ingesterr.NewSqlExecError("recover account cache", err)
	}
	c.mu.Lock()
	var maxAccountID int32
	for rows.Next() {
		var id int32
		var name string
		var opCount int32
		if err := rows.Scan(&id, &name, &opCount); err != nil {
			c.mu.Unlock()
			rows.Close()
			return result, ingesterr.NewSqlExecError("recover account cache", err)
		}
		c.accounts[name] = &accountEntry{ID: id, OpSeqNo: opCount}
		if id > maxAccountID {
			maxAccountID = id
		}
	}
	c.nextAccountID = maxAccountID
	c.mu.Unlock()
	rows.Close()
	if err := rows.Err(); err != nil {
		return result, ingesterr.NewSqlExecError("recover account cache", err)
	}

	rows, err = conn.Query(ctx, queryAllPermlinks)
	if err != nil {
		return result, ingesterr.NewSqlExecError("recover permlink cache", err)
	}
	c.mu.Lock()
	var maxPermlinkID int32
	for rows.Next() {
		var id int32
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			c.mu.Unlock()
			rows.Close()
			return result, ingesterr.NewSqlExecError("recover permlink cache", err)
		}
		c.permlinks[text] = id
		if id > maxPermlinkID {
			maxPermlinkID = id
		}
	}
	c.nextPermlinkID = maxPermlinkID
	c.mu.Unlock()
	rows.Close()
	if err := rows.Err(); err != nil {
		return result, ingesterr.NewSqlExecError("recover permlink cache", err)
	}

	return result, nil
}

// BootstrapBuiltinAccounts imports the node's built-in accounts (present
// in chain state before any block is processed) that are not yet known
// to the cache. It runs once, only on a fresh database. Returns the
// newly assigned (id, name) pairs in assignment order, for the caller to
// push directly into the accounts table writer.
func (c *Caches) BootstrapBuiltinAccounts(names []string) []AssignedAccount {
	var assigned []AssignedAccount
	for _, name := range names {
		if id, created := c.AssignAccount(name); created {
			assigned = append(assigned, AssignedAccount{ID: id, Name: name})
		}
	}
	return assigned
}

// AssignedAccount is one freshly assigned account id, returned by
// BootstrapBuiltinAccounts and by the new-id discovery walk.
type AssignedAccount struct {
	ID   int32
	Name string
}
