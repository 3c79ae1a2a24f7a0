package ingest

import "github.com/coreledger/sqlindexer/internal/model"

// The row types below are what actually travels through the volatile
// store and the batch buffers. They mirror internal/model's entities
// but are flattened to exactly what a table writer needs to format one
// INSERT tuple, so that both the live (volatile) and replay (direct
// batch) paths can share a single row representation end to end.

// AssignedPermlink is one observed permlink, keyed by its dense id.
type AssignedPermlink struct {
	ID   int32
	Text string
}

// BlockRow is one applied block.
type BlockRow struct {
	Number    uint32
	Hash      model.Digest
	PrevHash  model.Digest
	CreatedAt int64 // unix seconds, second precision per §3
}

// TransactionRow is one transaction.
type TransactionRow struct {
	BlockNumber    uint32
	TrxInBlock     uint16
	Hash           model.Digest
	RefBlockNum    uint16
	RefBlockPrefix uint32
	Expiration     int64
	PrimarySig     *model.Signature
}

// MultiSigRow is one signature beyond a transaction's primary signature.
type MultiSigRow struct {
	TransactionHash model.Digest
	Signature       model.Signature
}

// OperationRow is one operation, carrying its body as a packed binary
// blob while it lives in the volatile store or a replay batch; the
// operations table writer renders Body to JSON only at flush time.
type OperationRow struct {
	OperationID int64
	BlockNumber uint32
	TrxInBlock  int16
	OpInTrx     int16
	OpTypeID    int32
	IsVirtual   bool
	Body        []byte
}

// AccountOperationRow links an operation to one impacted account.
type AccountOperationRow struct {
	OperationID    int64
	AccountID      int32
	AccountOpSeqNo int32
}
