// Package nodesource declares the contract the consensus node is
// expected to satisfy. The node itself — block production, consensus,
// p2p gossip — is out of scope; this package only states the shape of
// the notifications the ingestion pipeline reacts to.
package nodesource

import (
	"context"

	"github.com/coreledger/sqlindexer/internal/ingest"
)

// Source is a live or replaying consensus node emitting pre/post-block,
// pre-operation, and irreversibility notifications. A concrete adapter
// wraps whatever transport the node actually speaks (in-process
// callback, RPC stream, log replay) and translates it into calls
// against the ingestion pipeline below.
type Source interface {
	// Subscribe registers sink to receive notifications until ctx is
	// done or the node shuts down.
	Subscribe(ctx context.Context, sink Sink) error
}

// Sink receives the four notification kinds the pipeline and promoter
// need. An adapter calls these directly against an *ingest.Pipeline and
// *ingest.Promoter; they are expressed as an interface here so the node
// side can be faked in tests without constructing a pipeline.
type Sink interface {
	PreOperation(ctx context.Context, in ingest.OperationInput) (int64, error)
	PostBlock(ctx context.Context, in ingest.BlockInput)
	OnIrreversible(ctx context.Context, blockNumber uint32)
}

// PipelineSink adapts a *ingest.Pipeline plus *ingest.Promoter to Sink.
type PipelineSink struct {
	Pipeline *ingest.Pipeline
	Promoter *ingest.Promoter
}

func (s *PipelineSink) PreOperation(ctx context.Context, in ingest.OperationInput) (int64, error) {
	return s.Pipeline.PreOperation(ctx, in)
}

func (s *PipelineSink) PostBlock(ctx context.Context, in ingest.BlockInput) {
	s.Pipeline.PostBlock(ctx, in)
}

func (s *PipelineSink) OnIrreversible(ctx context.Context, blockNumber uint32) {
	s.Promoter.OnIrreversible(ctx, blockNumber)
}
