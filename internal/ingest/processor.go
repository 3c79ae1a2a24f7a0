package ingest

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coreledger/sqlindexer/internal/ingesterr"
	"github.com/coreledger/sqlindexer/pkg/logging"
)

// Chunk is one unit of work handed to a data processor: a single SQL
// statement to run inside one transaction. ID exists purely for log
// correlation.
type Chunk struct {
	ID    string
	Label string
	SQL   string
}

// Processor is a worker tied to exactly one connection. It consumes an
// unbounded FIFO of chunks; for each it opens a transaction, executes
// the chunk's statement, commits, and releases the chunk. A failure
// during execution or commit is logged and the chunk is discarded — the
// worker keeps running (§7, SqlExecError policy).
type Processor struct {
	conn *pgx.Conn
	log  *logging.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Chunk
	closed bool

	wg sync.WaitGroup
}

// NewProcessor builds a worker owning conn. Call Start to begin
// consuming the queue.
func NewProcessor(conn *pgx.Conn, label string) *Processor {
	p := &Processor{
		conn: conn,
		log:  logging.GetDefault().Component(logging.ComponentProcessor + ":" + label),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the worker goroutine.
func (p *Processor) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

// Enqueue appends chunk to the FIFO without blocking and wakes the
// worker. Chunks without an ID are assigned one for log correlation.
func (p *Processor) Enqueue(c Chunk) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	p.mu.Lock()
	p.queue = append(p.queue, c)
	p.mu.Unlock()
	p.cond.Signal()
}

// Join blocks until the queue has fully drained, then stops the worker.
func (p *Processor) Join() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Signal()
	p.wg.Wait()
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		chunk := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.apply(ctx, chunk)
	}
}

func (p *Processor) apply(ctx context.Context, chunk Chunk) {
	tx, err := p.conn.Begin(ctx)
	if err != nil {
		p.log.Error("failed to begin transaction", "chunk", chunk.ID, "table", chunk.Label, "error", err)
		return
	}

	if _, err := tx.Exec(ctx, "SET CONSTRAINTS ALL DEFERRED"); err != nil {
		p.log.Error("failed to defer constraints", "chunk", chunk.ID, "error", err)
		_ = tx.Rollback(ctx)
		return
	}

	if _, err := tx.Exec(ctx, chunk.SQL); err != nil {
		wrapped := ingesterr.NewSqlExecError(chunk.Label, err)
		p.log.Error("chunk execution failed, discarding", "chunk", chunk.ID, "error", wrapped)
		_ = tx.Rollback(ctx)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		p.log.Error("commit failed, discarding chunk", "chunk", chunk.ID, "table", chunk.Label, "error", err)
		return
	}
}

// QueueLen reports the number of chunks currently waiting. Exposed for
// tests and operational metrics, not for control flow.
func (p *Processor) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
