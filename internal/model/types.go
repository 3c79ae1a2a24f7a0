// Package model defines the entities materialized by the indexer into SQL
// tables and read back by the query engine.
package model

import (
	"fmt"
	"time"

	"github.com/coreledger/sqlindexer/pkg/helpers"
)

// Digest is a 20-byte block/transaction hash.
type Digest [20]byte

// Equal reports whether d and other hold the same bytes.
func (d Digest) Equal(other Digest) bool {
	return helpers.BytesEqual(d[:], other[:])
}

// String renders d as a 0x-prefixed hex string, for logging.
func (d Digest) String() string {
	return helpers.BytesToHex(d[:])
}

// ParseDigest parses a hex string (with or without 0x prefix) into a
// Digest, rejecting anything that doesn't decode to exactly 20 bytes.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := helpers.HexToBytes(s)
	if err != nil {
		return d, err
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("digest must be %d bytes, got %d", len(d), len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Signature is a 65-byte compact signature (the chain's primary signature
// format). MultiSig entries carry additional full signatures of the same
// width.
type Signature [65]byte

// Block is a single applied block.
type Block struct {
	Number    uint32
	Hash      Digest
	PrevHash  Digest
	CreatedAt time.Time
}

// Transaction is one transaction included in a block.
type Transaction struct {
	BlockNumber     uint32
	TrxInBlock      uint16
	Hash            Digest
	RefBlockNum     uint16
	RefBlockPrefix  uint32
	Expiration      time.Time
	PrimarySig      *Signature
}

// MultiSig is one signature beyond the transaction's primary signature.
type MultiSig struct {
	TransactionHash Digest
	Signature       Signature
}

// Operation is a single chain operation, virtual or not.
//
// Body holds the packed binary representation while the row lives in the
// volatile store or a replay batch; the table writer renders it to JSON
// text only at flush time (see internal/ingest/writer.go).
type Operation struct {
	OperationID int64
	BlockNumber uint32
	TrxInBlock  int16 // negative for virtual operations
	OpInTrx     int16
	OpTypeID    int32
	IsVirtual   bool
	Body        []byte
}

// Account is a chain account, assigned a dense id on first observation.
type Account struct {
	ID   int32
	Name string // short ASCII name, <=16 chars
}

// Permlink is a comment URL slug, assigned a dense id on first observation.
type Permlink struct {
	ID   int32
	Text string
}

// AccountOperation links an operation to one account it impacted, carrying
// that account's dense per-account sequence number at the time.
type AccountOperation struct {
	OperationID    int64
	AccountID      int32
	OperationSeqNo int32
}
