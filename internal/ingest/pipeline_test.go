package ingest

import (
	"context"
	"testing"

	"github.com/coreledger/sqlindexer/internal/model"
)

func newTestPipeline(mode Mode, blocksPerCommit uint32) (*Pipeline, *Caches, *Store, *Writers) {
	caches := NewCaches()
	store := NewStore()
	proc := NewProcessor(nil, "test")
	writers := NewWriters(proc)
	promoter := NewPromoter(store, writers)
	return NewPipeline(mode, blocksPerCommit, caches, store, writers, promoter), caches, store, writers
}

func TestPreOperationSkipsDuringBlockProduction(t *testing.T) {
	p, _, _, _ := newTestPipeline(ModeLive, 1)

	opID, err := p.PreOperation(context.Background(), OperationInput{IsBlockProduction: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opID != 0 {
		t.Errorf("expected opID 0 when skipped, got %d", opID)
	}
}

func TestPreOperationAssignsNewAccountAndEmitsAccountOperation(t *testing.T) {
	p, caches, store, _ := newTestPipeline(ModeLive, 1)

	in := OperationInput{
		BlockNumber: 1,
		TrxInBlock:  0,
		Discovery: NewIDDiscovery{
			OpTypeID:         9, // account_create_operation
			NewAccountName:   "alice",
			ImpactedAccounts: []string{"alice"},
		},
	}

	opID, err := p.PreOperation(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opID != 1 {
		t.Fatalf("opID = %d, want 1", opID)
	}

	id, ok := caches.AccountID("alice")
	if !ok || id != 1 {
		t.Fatalf("expected alice assigned id 1, got (%d, %v)", id, ok)
	}

	if store.Accounts.Len() != 1 {
		t.Errorf("expected 1 volatile account row, got %d", store.Accounts.Len())
	}
	if store.AccountOperations.Len() != 1 {
		t.Errorf("expected 1 volatile account_operations row, got %d", store.AccountOperations.Len())
	}
}

func TestPreOperationVirtualUsesBlockVopsCounter(t *testing.T) {
	p, _, store, _ := newTestPipeline(ModeLive, 1)

	for i := 0; i < 3; i++ {
		_, err := p.PreOperation(context.Background(), OperationInput{
			BlockNumber: 5,
			TrxInBlock:  -1,
			IsVirtual:   true,
			Discovery:   NewIDDiscovery{OpTypeID: 48},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	rows := store.Operations.ScanBlock(5)
	if len(rows) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(rows))
	}
	for i, r := range rows {
		if int(r.OpInTrx) != i {
			t.Errorf("row %d: OpInTrx = %d, want %d", i, r.OpInTrx, i)
		}
	}
}

func TestPreOperationMissingAccountIsConsistencyError(t *testing.T) {
	p, _, _, _ := newTestPipeline(ModeLive, 1)

	_, err := p.PreOperation(context.Background(), OperationInput{
		BlockNumber: 1,
		Discovery:   NewIDDiscovery{OpTypeID: 2, ImpactedAccounts: []string{"nobody"}},
	})
	if err == nil {
		t.Fatal("expected a ConsistencyError for an unknown impacted account")
	}
}

func TestPostBlockResetsBlockVops(t *testing.T) {
	p, _, _, _ := newTestPipeline(ModeLive, 1)
	p.blockVops = 7

	p.PostBlock(context.Background(), BlockInput{Block: BlockRow{Number: 1}})

	if p.blockVops != 0 {
		t.Errorf("blockVops = %d, want 0 after PostBlock", p.blockVops)
	}
}

func TestPostBlockTracksLastBlockHashAcrossCalls(t *testing.T) {
	p, _, _, _ := newTestPipeline(ModeLive, 1)

	first := model.Digest{1}
	p.PostBlock(context.Background(), BlockInput{Block: BlockRow{Number: 1, Hash: first}})
	if p.lastBlockHash != first {
		t.Fatalf("lastBlockHash = %v, want %v", p.lastBlockHash, first)
	}

	second := model.Digest{2}
	p.PostBlock(context.Background(), BlockInput{Block: BlockRow{Number: 2, Hash: second, PrevHash: first}})
	if p.lastBlockHash != second {
		t.Errorf("lastBlockHash = %v, want %v", p.lastBlockHash, second)
	}
}

func TestSeedLastBlockHashSuppliesContinuityAfterRestart(t *testing.T) {
	p, _, _, _ := newTestPipeline(ModeLive, 1)

	priorRunHash := model.Digest{9}
	p.SeedLastBlockHash(priorRunHash)
	if p.lastBlockHash != priorRunHash {
		t.Fatalf("lastBlockHash = %v, want %v", p.lastBlockHash, priorRunHash)
	}

	// a mismatching PrevHash right after a restart should still be caught
	// now that lastBlockHash was seeded instead of starting at zero.
	p.PostBlock(context.Background(), BlockInput{
		Block: BlockRow{Number: 100, Hash: model.Digest{10}, PrevHash: model.Digest{0xff}},
	})
}

func TestPostBlockPreservesMultiSigOrder(t *testing.T) {
	p, _, store, _ := newTestPipeline(ModeLive, 1)

	sig1 := MultiSigRow{Signature: model.Signature{1}}
	sig2 := MultiSigRow{Signature: model.Signature{2}}

	p.PostBlock(context.Background(), BlockInput{
		Block:     BlockRow{Number: 1},
		MultiSigs: []MultiSigRow{sig1, sig2},
	})

	rows := store.MultiSigs.ScanBlock(1)
	if len(rows) != 2 {
		t.Fatalf("expected 2 multisig rows, got %d", len(rows))
	}
	if rows[0].Signature != sig1.Signature || rows[1].Signature != sig2.Signature {
		t.Errorf("expected multisig rows in production order [sig1, sig2], got %v", rows)
	}
}

func TestReplayModeFlushesOnCommitCadence(t *testing.T) {
	p, _, _, writers := newTestPipeline(ModeReplay, 2)

	p.PostBlock(context.Background(), BlockInput{Block: BlockRow{Number: 1}})
	if writers.Blocks.Stats().FlushCount != 0 {
		t.Fatal("should not flush before reaching the commit cadence")
	}

	p.PostBlock(context.Background(), BlockInput{Block: BlockRow{Number: 2}})
	if writers.Blocks.Stats().FlushCount != 1 {
		t.Errorf("expected a flush at block_number %% blocksPerCommit == 0, got FlushCount=%d", writers.Blocks.Stats().FlushCount)
	}
	if writers.Blocks.Stats().RowsFlushed != 2 {
		t.Errorf("expected 2 rows flushed, got %d", writers.Blocks.Stats().RowsFlushed)
	}
}
