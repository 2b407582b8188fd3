package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/docugraph/docugraph-backend/internal/catalog"
	"github.com/docugraph/docugraph-backend/internal/data/graph"
	"github.com/docugraph/docugraph-backend/internal/extract"
	"github.com/docugraph/docugraph-backend/internal/ingestion"
	"github.com/docugraph/docugraph-backend/internal/platform/envutil"
	"github.com/docugraph/docugraph-backend/internal/platform/logger"
	"github.com/docugraph/docugraph-backend/internal/platform/neo4jdb"
	"github.com/docugraph/docugraph-backend/internal/platform/openai"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Entity type catalog
	catalogPath := envutil.Str("ENTITY_TYPES_PATH", "configs/entity-types.yaml")
	cat, err := catalog.Load(catalogPath, log)
	if err != nil {
		log.Error("Could not load entity type catalog", "path", catalogPath, "error", err)
		os.Exit(1)
	}
	log.Info("Entity type catalog loaded", "path", catalogPath, "types", cat.Len())

	// Neo4j
	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init Neo4j", "error", err)
		os.Exit(1)
	}
	if neo == nil {
		log.Error("NEO4J_URI is required for the ingestion worker")
		os.Exit(1)
	}
	defer neo.Close(context.Background())

	store := graph.NewStore(neo, log)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Error("Could not ensure graph schema", "error", err)
		os.Exit(1)
	}

	// OpenAI
	ai, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	// Queue: Redis when configured, in-process otherwise.
	var queue ingestion.Queue
	if os.Getenv("REDIS_ADDR") != "" {
		redisQueue, err := ingestion.NewRedisQueue(log)
		if err != nil {
			log.Error("Could not init Redis queue", "error", err)
			os.Exit(1)
		}
		defer redisQueue.Close()
		queue = redisQueue
	} else {
		log.Warn("REDIS_ADDR not set, using in-process queue")
		queue = ingestion.NewMemoryQueue(0)
	}

	entityExtractor := extract.NewEntityExtractor(cat, ai, log)
	relationshipExtractor := extract.NewRelationshipExtractor(ai, log)
	worker := ingestion.NewWorker(queue, store, ai, entityExtractor, relationshipExtractor, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}
