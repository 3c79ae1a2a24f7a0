// Package dbpool implements the fixed-size connection pool that fronts
// every SQL-facing component: the ingestion data processors on the
// writer side, and the query engine on the read side.
package dbpool

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coreledger/sqlindexer/internal/ingesterr"
)

// Pool is a fixed-size pool of interchangeable *pgx.Conn. Acquire blocks
// until a connection is free; Release returns it and wakes one waiter.
// There is no per-connection affinity.
type Pool struct {
	conns chan *pgx.Conn
	size  int
}

// New dials size connections against url and returns a ready Pool. If
// any dial fails, every connection opened so far is closed and a
// ConfigError is returned — construction either fully succeeds or
// leaves no connections open.
func New(ctx context.Context, url string, size int) (*Pool, error) {
	if size <= 0 {
		return nil, ingesterr.NewConfigError("pool-size", "must be positive")
	}

	p := &Pool{conns: make(chan *pgx.Conn, size), size: size}

	for i := 0; i < size; i++ {
		conn, err := pgx.Connect(ctx, url)
		if err != nil {
			p.closeAll(ctx)
			return nil, ingesterr.NewConfigError("psql-url", fmt.Sprintf("dial connection %d/%d: %v", i+1, size, err))
		}
		p.conns <- conn
	}

	return p, nil
}

// Acquire blocks until a connection is available, or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*pgx.Conn, error) {
	select {
	case c := <-p.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns c to the pool, waking one waiter.
func (p *Pool) Release(c *pgx.Conn) {
	p.conns <- c
}

// Size reports the fixed pool size at construction.
func (p *Pool) Size() int {
	return p.size
}

// Close closes every connection currently parked in the pool. Callers
// must ensure all connections have been released before calling Close.
func (p *Pool) Close(ctx context.Context) {
	p.closeAll(ctx)
}

func (p *Pool) closeAll(ctx context.Context) {
	for {
		select {
		case c := <-p.conns:
			_ = c.Close(ctx)
		default:
			return
		}
	}
}

// RecommendedSize queries pg_settings.max_connections and suggests half
// of it, leaving headroom for other clients sharing the database. Used
// by the CLI entrypoint when webserver-thread-pool-size is left at its
// zero value.
func RecommendedSize(ctx context.Context, conn *pgx.Conn) (int, error) {
	var maxConns int
	row := conn.QueryRow(ctx, "SELECT setting::int FROM pg_settings WHERE name = 'max_connections'")
	if err := row.Scan(&maxConns); err != nil {
		return 0, ingesterr.NewSqlExecError("recommended-pool-size", err)
	}

	recommended := maxConns / 2
	if recommended < 1 {
		recommended = 1
	}
	return recommended, nil
}
