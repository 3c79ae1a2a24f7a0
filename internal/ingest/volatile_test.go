package ingest

import "testing"

func TestVolatileIndexInsertAndScanBlock(t *testing.T) {
	idx := newVolatileIndex[AssignedAccount]()

	idx.Insert(volatileKey{blockNumber: 2, secondary: 2}, AssignedAccount{ID: 2, Name: "bob"})
	idx.Insert(volatileKey{blockNumber: 1, secondary: 1}, AssignedAccount{ID: 1, Name: "alice"})
	idx.Insert(volatileKey{blockNumber: 2, secondary: 3}, AssignedAccount{ID: 3, Name: "carol"})

	block2 := idx.ScanBlock(2)
	if len(block2) != 2 {
		t.Fatalf("expected 2 rows in block 2, got %d", len(block2))
	}
	if block2[0].Name != "bob" || block2[1].Name != "carol" {
		t.Errorf("expected bob before carol (secondary order), got %v", block2)
	}

	if idx.Len() != 3 {
		t.Errorf("Len() = %d, want 3", idx.Len())
	}
}

func TestVolatileIndexDrainBlockRemovesRows(t *testing.T) {
	idx := newVolatileIndex[AssignedAccount]()
	idx.Insert(volatileKey{blockNumber: 5, secondary: 1}, AssignedAccount{ID: 1, Name: "alice"})
	idx.Insert(volatileKey{blockNumber: 5, secondary: 2}, AssignedAccount{ID: 2, Name: "bob"})
	idx.Insert(volatileKey{blockNumber: 6, secondary: 3}, AssignedAccount{ID: 3, Name: "carol"})

	drained := idx.DrainBlock(5)
	if len(drained) != 2 {
		t.Fatalf("expected to drain 2 rows, got %d", len(drained))
	}

	if idx.HasBlock(5) {
		t.Error("block 5 should be fully drained")
	}
	if !idx.HasBlock(6) {
		t.Error("block 6 should remain")
	}
	if idx.Len() != 1 {
		t.Errorf("Len() after drain = %d, want 1", idx.Len())
	}
}

func TestVolatileIndexDrainEmptyBlockIsNoop(t *testing.T) {
	idx := newVolatileIndex[AssignedAccount]()
	idx.Insert(volatileKey{blockNumber: 1, secondary: 1}, AssignedAccount{ID: 1, Name: "alice"})

	drained := idx.DrainBlock(999)
	if drained != nil {
		t.Errorf("expected nil for an empty block, got %v", drained)
	}
	if idx.Len() != 1 {
		t.Error("draining an absent block must not remove existing rows")
	}
}

func TestVolatileIndexScanRange(t *testing.T) {
	idx := newVolatileIndex[AssignedAccount]()
	for i := uint32(1); i <= 5; i++ {
		idx.Insert(volatileKey{blockNumber: i, secondary: int64(i)}, AssignedAccount{ID: int32(i)})
	}

	rows := idx.ScanRange(2, 4) // [2,4): blocks 2 and 3
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows in [2,4), got %d", len(rows))
	}
	if rows[0].ID != 2 || rows[1].ID != 3 {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestVolatileIndexInsertUnderIdenticalKeyReversesOrder(t *testing.T) {
	// Insert is a lower-bound insert: a later row under an identical key
	// lands *before* an earlier one. Callers that need to preserve
	// production order across several rows (e.g. per-block multisig
	// rows) must give each row a distinct, monotonically increasing
	// secondary key rather than sharing one.
	idx := newVolatileIndex[AssignedAccount]()
	idx.Insert(volatileKey{blockNumber: 1, secondary: 1}, AssignedAccount{ID: 1, Name: "first"})
	idx.Insert(volatileKey{blockNumber: 1, secondary: 1}, AssignedAccount{ID: 2, Name: "second"})

	rows := idx.ScanBlock(1)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "second" || rows[1].Name != "first" {
		t.Errorf("expected insertion order under an identical key to reverse, got %v", rows)
	}
}

func TestVolatileIndexInsertWithDistinctSecondaryPreservesOrder(t *testing.T) {
	idx := newVolatileIndex[AssignedAccount]()
	for i, name := range []string{"first", "second", "third"} {
		idx.Insert(volatileKey{blockNumber: 1, secondary: int64(i)}, AssignedAccount{Name: name})
	}

	rows := idx.ScanBlock(1)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []string{"first", "second", "third"} {
		if rows[i].Name != want {
			t.Errorf("rows[%d] = %q, want %q", i, rows[i].Name, want)
		}
	}
}

func TestTransactionSecondaryOrdersByTrxInBlockThenID(t *testing.T) {
	idx := newVolatileIndex[TransactionRow]()
	idx.Insert(volatileKey{blockNumber: 1, secondary: transactionSecondary(1, 100)}, TransactionRow{TrxInBlock: 1})
	idx.Insert(volatileKey{blockNumber: 1, secondary: transactionSecondary(0, 200)}, TransactionRow{TrxInBlock: 0})

	rows := idx.ScanBlock(1)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].TrxInBlock != 0 || rows[1].TrxInBlock != 1 {
		t.Errorf("expected trx_in_block 0 before 1, got %v", rows)
	}
}
