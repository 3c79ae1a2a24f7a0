// Package main provides sqlindexerd, the daemon that runs the ingestion
// pipeline and history query engine against a live node-source.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coreledger/sqlindexer/internal/config"
	"github.com/coreledger/sqlindexer/internal/dbpool"
	"github.com/coreledger/sqlindexer/internal/ingest"
	"github.com/coreledger/sqlindexer/internal/ingesterr"
	"github.com/coreledger/sqlindexer/internal/model"
	"github.com/coreledger/sqlindexer/internal/nodesource"
	"github.com/coreledger/sqlindexer/internal/query"
	"github.com/coreledger/sqlindexer/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.sqlindexer", "Data directory")
		psqlURL     = flag.String("psql-url", "", "Indexer writer connection string, overrides config")
		ahsqlURL    = flag.String("ahsql-url", "", "Query engine connection string, overrides config")
		replay      = flag.Bool("replay", false, "Run in bulk-replay mode (blocks_per_commit=1000, direct batching)")
		headBlock   = flag.Uint64("head-block-number", 0, "Chain head height as reported by the node source, used to decide DDL index/FK cycling (§4.9); 0 means unknown, so only a fresh database (block 0) triggers a cycle")
		headHash    = flag.String("head-block-hash", "", "Hex hash (0x-prefixed or not) of the last block this process saw before restarting, seeding the prev_hash continuity check; empty skips the check until the second block of this run")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("sqlindexerd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*dataDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	if *psqlURL != "" {
		cfg.PsqlURL = *psqlURL
	}
	if *ahsqlURL != "" {
		cfg.AhsqlURL = *ahsqlURL
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var seedHash model.Digest
	if *headHash != "" {
		seedHash, err = model.ParseDigest(*headHash)
		if err != nil {
			log.Fatal("invalid -head-block-hash", "error", err)
		}
	}

	if err := run(ctx, cfg, *replay, uint32(*headBlock), seedHash); err != nil {
		log.Fatal("sqlindexerd exited with error", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, replayMode bool, headBlockNumber uint32, seedHash model.Digest) error {
	log := logging.GetDefault()

	writePool, err := dbpool.New(ctx, cfg.PsqlURL, 1)
	if err != nil {
		return err
	}
	defer writePool.Close(ctx)

	readPoolSize := cfg.WebserverThreadPoolSize
	if readPoolSize == 0 {
		bootstrapConn, err := pgx.Connect(ctx, cfg.AhsqlURL)
		if err != nil {
			return ingesterr.NewConfigError("ahsql-url", "failed to connect to determine recommended pool size: "+err.Error())
		}
		readPoolSize, err = dbpool.RecommendedSize(ctx, bootstrapConn)
		bootstrapConn.Close(ctx)
		if err != nil {
			return err
		}
		log.Info("webserver-thread-pool-size unset, using recommended size", "size", readPoolSize)
	}

	readPool, err := dbpool.New(ctx, cfg.AhsqlURL, readPoolSize)
	if err != nil {
		return err
	}
	defer readPool.Close(ctx)

	writeConn, err := writePool.Acquire(ctx)
	if err != nil {
		return ingesterr.NewConfigError("psql-url", "failed to acquire recovery connection: "+err.Error())
	}

	caches := ingest.NewCaches()
	recovery, err := caches.Recover(ctx, writeConn)
	if err != nil {
		writePool.Release(writeConn)
		return err
	}
	log.Info("recovered startup state", "max_block", recovery.MaxBlockNumber, "next_operation_id", recovery.NextOperationID)

	freshDB := recovery.MaxBlockNumber == 0
	if freshDB && cfg.PsqlPathToSchema != "" {
		data, err := os.ReadFile(cfg.PsqlPathToSchema)
		if err != nil {
			writePool.Release(writeConn)
			return ingesterr.NewConfigError("psql-path-to-schema", err.Error())
		}
		if err := ingest.LoadSchema(ctx, writeConn, splitLines(string(data))); err != nil {
			writePool.Release(writeConn)
			return err
		}
	}

	cycler := ingest.NewDDLCycler(writeConn)
	cycle := ingest.ShouldCycle(recovery.MaxBlockNumber, cfg.PsqlIndexThreshold, headBlockNumber)
	if cycle {
		if err := cycler.DropAll(ctx); err != nil {
			log.Error("failed to drop indexes before bulk load", "error", err)
		}
	}

	var bootstrapAccounts []ingest.AssignedAccount
	if freshDB {
		bootstrapAccounts = caches.BootstrapBuiltinAccounts(builtinAccountNames)
	}

	writePool.Release(writeConn)

	store := ingest.NewStore()

	mode := ingest.ModeLive
	blocksPerCommit := uint32(1)
	if replayMode {
		mode = ingest.ModeReplay
		blocksPerCommit = 1000
	}

	writerConn, err := writePool.Acquire(ctx)
	if err != nil {
		return ingesterr.NewConfigError("psql-url", "failed to acquire writer connection: "+err.Error())
	}
	proc := ingest.NewProcessor(writerConn, "main")
	proc.Start(ctx)
	defer proc.Join()

	writers := ingest.NewWriters(proc)

	if freshDB {
		ingest.InsertOperationTypes(ctx, proc)
		if len(bootstrapAccounts) > 0 {
			writers.Accounts.Flush(ctx, bootstrapAccounts)
			log.Info("bootstrapped builtin accounts", "count", len(bootstrapAccounts))
		}
	}

	promoter := ingest.NewPromoter(store, writers)
	pipeline := ingest.NewPipeline(mode, blocksPerCommit, caches, store, writers, promoter)
	var zeroHash model.Digest
	if seedHash != zeroHash {
		pipeline.SeedLastBlockHash(seedHash)
	}

	// sink is the attachment point a node-source adapter subscribes
	// through; the node itself is an external collaborator (§1) and is
	// not constructed here.
	sink := &nodesource.PipelineSink{Pipeline: pipeline, Promoter: promoter}

	engine := query.New(readPool, store, promoter)

	log.Info("sqlindexerd ready",
		"mode", modeLabel(mode),
		"blocks_per_commit", blocksPerCommit,
		"read_pool_size", readPool.Size(),
		"sink_attached", sink != nil,
		"query_engine_attached", engine != nil,
	)

	<-ctx.Done()
	log.Info("shutting down")

	if cycle {
		recreateConn, err := writePool.Acquire(context.Background())
		if err != nil {
			log.Error("failed to acquire connection to recreate indexes on shutdown", "error", err)
			return nil
		}
		defer writePool.Release(recreateConn)
		if err := ingest.NewDDLCycler(recreateConn).RecreateAll(context.Background()); err != nil {
			log.Error("failed to recreate indexes and foreign keys after bulk load", "error", err)
		}
	}

	return nil
}

// builtinAccountNames are the protocol accounts that exist before any
// block is processed; import_all_builtin_accounts in the node source
// reads these from live chain state, which this module has no access
// to, so they're named directly here instead.
var builtinAccountNames = []string{"miners", "null", "temp"}

func modeLabel(m ingest.Mode) string {
	if m == ingest.ModeReplay {
		return "replay"
	}
	return "live"
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
