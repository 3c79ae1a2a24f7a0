package dbpool

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestNewRejectsNonPositiveSize(t *testing.T) {
	if _, err := New(context.Background(), "postgres://unused", 0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestAcquireReleaseHandoff(t *testing.T) {
	var placeholder *pgx.Conn // nil is fine: the pool only moves tokens through the channel
	p := &Pool{conns: make(chan *pgx.Conn, 1), size: 1}
	p.conns <- placeholder

	got, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got != placeholder {
		t.Error("expected to receive the connection placed in the pool")
	}

	p.Release(got)

	select {
	case c := <-p.conns:
		if c != placeholder {
			t.Error("released connection did not reappear in pool")
		}
	default:
		t.Fatal("expected released connection to be available")
	}
}

func TestAcquireBlocksUntilContextDone(t *testing.T) {
	p := &Pool{conns: make(chan *pgx.Conn), size: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Acquire(ctx)
	if err == nil {
		t.Fatal("expected context deadline error from an empty pool")
	}
}

func TestSizeReportsConstructionSize(t *testing.T) {
	p := &Pool{conns: make(chan *pgx.Conn, 3), size: 3}
	if p.Size() != 3 {
		t.Errorf("Size() = %d, want 3", p.Size())
	}
}
