// Package orchestrator wires the pipeline stages together into the
// indexing run described by spec §4.8: load state, detect changes, parse,
// dedup/embed/upsert in batches, propagate deletions, clean up orphaned
// relations, then persist a fresh state snapshot. Grounded on the teacher's
// internal/indexer.Index, generalized from one flat pass over every file
// into the incremental, bounded-concurrency pipeline the expanded spec
// requires.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kdevlin/semindex/internal/cache"
	"github.com/kdevlin/semindex/internal/change"
	"github.com/kdevlin/semindex/internal/cleanup"
	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/core"
	"github.com/kdevlin/semindex/internal/embedding"
	"github.com/kdevlin/semindex/internal/entity"
	"github.com/kdevlin/semindex/internal/parser"
	"github.com/kdevlin/semindex/internal/process"
	"github.com/kdevlin/semindex/internal/state"
	"github.com/kdevlin/semindex/internal/store"
	"github.com/kdevlin/semindex/internal/walk"
)

// parseConcurrency bounds how many files parse at once within a batch
// (spec §5: stages may fan out internally but must not let a later stage
// observe a partially-finished earlier one).
const parseConcurrency = 8

// embedderAdapter bridges *embedding.VoyageClient's EmbedResult to
// process.EmbedResult so internal/process stays decoupled from the
// concrete embedding provider (the two types are structurally identical,
// nominally distinct).
type embedderAdapter struct {
	client *embedding.VoyageClient
}

func (a embedderAdapter) EmbedWithUsage(ctx context.Context, texts []string) (process.EmbedResult, error) {
	res, err := a.client.EmbedWithUsage(ctx, texts)
	if err != nil {
		return process.EmbedResult{}, err
	}
	return process.EmbedResult{Vectors: res.Vectors, Tokens: res.Tokens}, nil
}

func (a embedderAdapter) MaxTokens() int { return a.client.MaxTokens() }

func (a embedderAdapter) EstimateCost(tokens int) float64 { return a.client.EstimateCost(tokens) }

// Orchestrator runs the indexing pipeline (C9) against one repository.
type Orchestrator struct {
	cfg       *config.Config
	embedder  *embedding.VoyageClient
	store     *store.QdrantStore
	processor *process.Processor
	registry  *parser.Registry
	logger    *slog.Logger
}

// New builds an Orchestrator from global configuration. voyageKey is the
// embedding provider's API key; redisCache may be nil, in which case the
// content processor dedups against the vector store alone.
func New(cfg *config.Config, voyageKey string, redisCache *cache.RedisCache) (*Orchestrator, error) {
	embedder := embedding.NewVoyageClient(voyageKey, cfg.Embedding.Model)

	qdrantStore, err := store.NewQdrantStore(cfg.Storage.QdrantURL)
	if err != nil {
		return nil, &core.StoreError{Op: "connect", Err: err}
	}

	var existence process.ExistenceCache
	if redisCache != nil {
		existence = redisCache
	}

	proc := process.New(embedderAdapter{client: embedder}, qdrantStore, existence)

	return &Orchestrator{
		cfg:       cfg,
		embedder:  embedder,
		store:     qdrantStore,
		processor: proc,
		registry:  parser.NewRegistry(),
		logger:    slog.Default(),
	}, nil
}

// Result is the spec §4.8 step 10 IndexingResult.
type Result struct {
	FilesProcessed   int
	FilesSkipped     int
	FilesDeleted     int
	EntitiesCreated  int
	RelationsCreated int
	ChunksCreated    int
	PointsUpserted   int
	OrphansDeleted   int
	TokensUsed       int
	CostUSD          float64
	Duration         time.Duration
	FailedFiles      []string
	Warnings         []string
}

type parsedFile struct {
	relPath string
	out     parser.ParseOutput
}

// Run executes one indexing pass over repoPath using repoCfg (typically
// loaded from .claude-indexer.yaml).
func (o *Orchestrator) Run(ctx context.Context, repoPath string, repoCfg *config.RepoConfig) (Result, error) {
	start := time.Now()
	var res Result

	collection := repoCfg.Collection
	if collection == "" {
		collection = repoCfg.Name
	}

	if err := o.store.EnsureCollection(ctx, collection, o.embedder.Dimension()); err != nil {
		return res, &core.StoreError{Op: "ensure_collection", Err: err}
	}

	stateStore, err := state.New(repoPath, collection)
	if err != nil {
		return res, &core.StateError{Path: filepath.Join(repoPath, ".claude-indexer"), Err: err}
	}

	snap, err := stateStore.Load()
	if err != nil {
		o.logger.Warn("state load failed, starting from an empty snapshot", "collection", collection, "error", err)
	}

	walker := walk.New(repoCfg.Include, repoCfg.Exclude, o.cfg.Indexing.MaxFileSizeBytes)

	current := make(map[string]state.Record)
	skipped, err := walker.Walk(repoPath, func(path string, info os.FileInfo) error {
		relPath, rerr := filepath.Rel(repoPath, path)
		if rerr != nil {
			return rerr
		}
		relPath = filepath.ToSlash(relPath)

		source, rerr := os.ReadFile(path)
		if rerr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("read %s: %v", relPath, rerr))
			return nil
		}

		current[relPath] = state.Record{
			Hash:  contentHash(source),
			Size:  info.Size(),
			Mtime: state.NowMtime(info.ModTime()),
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("walk %s: %w", repoPath, err)
	}
	res.FilesSkipped = len(skipped)

	diff := change.Detect(current, snap)

	// Step 3: an unchanged tree is a no-op — still write the statistics
	// entry so a caller inspecting state sees a fresh timestamp.
	if diff.IsEmpty() {
		res.Duration = time.Since(start)
		o.writeStatistics(stateStore, snap, res)
		return res, nil
	}

	internalPackages := internalPackageNames(repoCfg, current)
	touched := append(append([]string{}, diff.Added...), diff.Modified...)
	sort.Strings(touched)

	iterCap := o.cfg.Indexing.ScrollIterCap
	batchSize := o.cfg.Indexing.BatchSize
	if batchSize <= 0 {
		batchSize = len(touched)
	}

	failedSet := make(map[string]bool)

	for batchStart := 0; batchStart < len(touched); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(touched) {
			batchEnd = len(touched)
		}
		batchPaths := touched[batchStart:batchEnd]

		parsedBatch, perr := o.parseBatch(ctx, repoPath, collection, batchPaths, internalPackages, iterCap, &res, failedSet)
		if perr != nil {
			return res, perr
		}
		if len(parsedBatch) == 0 {
			continue
		}

		var entities []entity.Entity
		var relations []entity.Relation
		var metaChunks, implChunks []entity.Chunk
		changedEntities := make(map[string]bool)
		entitiesWithImpl := make(map[string]bool)

		for _, pf := range parsedBatch {
			entities = append(entities, pf.out.Entities...)
			relations = append(relations, pf.out.Relations...)
			metaChunks = append(metaChunks, pf.out.MetaChunks...)
			implChunks = append(implChunks, pf.out.ImplChunks...)
			for _, e := range pf.out.Entities {
				changedEntities[e.Name] = true
			}
			for _, c := range pf.out.ImplChunks {
				entitiesWithImpl[c.EntityName] = true
			}
			res.FilesProcessed++
		}

		bctx := process.BatchContext{
			Collection:       collection,
			ChangedEntities:  changedEntities,
			EntitiesWithImpl: entitiesWithImpl,
		}

		result, perr := o.processor.Process(ctx, entities, relations, metaChunks, implChunks, bctx)
		if perr != nil {
			// A backend dedup-check failure is fatal to the whole run: no
			// partial state update (spec §4.8's upsert-failure policy).
			return res, perr
		}

		res.EntitiesCreated += len(entities)
		res.RelationsCreated += len(relations)
		res.ChunksCreated += len(result.Points)
		res.TokensUsed += result.Tokens
		res.CostUSD += result.Cost

		for _, f := range result.Failed {
			res.Warnings = append(res.Warnings, fmt.Sprintf("embed failed for chunk %s: %v", f.ChunkID, f.Err))
		}

		if len(result.Points) > 0 {
			if uerr := o.store.UpsertChunks(ctx, collection, result.Points); uerr != nil {
				// Step 6's single-writer contract: an upsert failure fails
				// the whole run with no partial state update.
				return res, &core.StoreError{Op: "upsert_batch", Err: uerr}
			}
			res.PointsUpserted += len(result.Points)
		}
	}

	// Step 7: deletion propagation for vanished files.
	for _, relPath := range diff.Deleted {
		absPath := filepath.Join(repoPath, relPath)
		if _, derr := cleanup.DeleteFile(ctx, o.store, snap, collection, absPath, iterCap); derr != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("delete %s: %v", relPath, derr))
			continue
		}
		res.FilesDeleted++
	}

	// Step 8: orphan-relation cleanup, once per run.
	orphans, operr := cleanup.RunOrphanCleanup(ctx, o.store, collection, iterCap)
	if operr != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("orphan cleanup: %v", operr))
	} else {
		res.OrphansDeleted = orphans
	}

	// Step 9: persist a fresh snapshot — old records ∪ newly parsed records
	// − deleted records, restoring the prior record (or dropping it
	// entirely) for any file that failed to parse so it's retried next run.
	finalSnap := &state.Snapshot{Files: current}
	for relPath := range failedSet {
		if prior, ok := snap.GetFileRecord(relPath); ok {
			finalSnap.PutFileRecord(relPath, prior)
		} else {
			finalSnap.DeleteFileRecord(relPath)
		}
	}

	res.Duration = time.Since(start)
	o.writeStatistics(stateStore, finalSnap, res)

	return res, nil
}

func (o *Orchestrator) writeStatistics(stateStore *state.Store, snap *state.Snapshot, res Result) {
	snap.PutStatistics(state.Statistics{
		FilesProcessed:              res.FilesProcessed,
		EntitiesCreated:             res.EntitiesCreated,
		RelationsCreated:            res.RelationsCreated,
		ImplementationChunksCreated: res.ChunksCreated,
		ProcessingTime:              res.Duration.Seconds(),
		Timestamp:                   state.NowMtime(time.Now()),
	})
	if err := stateStore.Save(snap); err != nil {
		o.logger.Error("failed to persist state snapshot", "error", err)
	}
}

// parseBatch pre-deletes any existing points for each touched file (so a
// re-parse never leaves stale duplicates behind), then parses the files
// concurrently. Parsing runs bounded by parseConcurrency; every file's
// result is collected before the caller moves on to processing so no later
// stage observes a partially-parsed batch.
func (o *Orchestrator) parseBatch(ctx context.Context, repoPath, collection string, relPaths []string, internalPackages map[string]bool, iterCap int, res *Result, failedSet map[string]bool) ([]parsedFile, error) {
	var mu sync.Mutex
	var out []parsedFile

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)

	for _, relPath := range relPaths {
		relPath := relPath
		g.Go(func() error {
			absPath := filepath.Join(repoPath, relPath)

			if existingIDs, ferr := o.store.FindEntitiesForFile(gctx, collection, absPath, iterCap); ferr != nil {
				o.logger.Warn("pre-parse existing-point lookup failed", "path", relPath, "error", ferr)
			} else if len(existingIDs) > 0 {
				if derr := o.store.DeletePoints(gctx, collection, existingIDs); derr != nil {
					o.logger.Warn("pre-parse delete failed", "path", relPath, "error", derr)
				}
			}

			source, rerr := os.ReadFile(absPath)
			if rerr != nil {
				mu.Lock()
				res.FailedFiles = append(res.FailedFiles, relPath)
				failedSet[relPath] = true
				mu.Unlock()
				return nil
			}

			parseFn := o.registry.ParserFor(absPath)
			if parseFn == nil {
				mu.Lock()
				res.Warnings = append(res.Warnings, fmt.Sprintf("no parser for %s", relPath))
				mu.Unlock()
				return nil
			}

			parseOut, perr := parseFn(absPath, source, internalPackages)
			if perr != nil {
				mu.Lock()
				res.FailedFiles = append(res.FailedFiles, relPath)
				res.Warnings = append(res.Warnings, fmt.Sprintf("parse %s: %v", relPath, perr))
				failedSet[relPath] = true
				mu.Unlock()
				return nil
			}
			if len(parseOut.Errors) > 0 {
				mu.Lock()
				res.Warnings = append(res.Warnings, parseOut.Errors...)
				mu.Unlock()
			}

			mu.Lock()
			out = append(out, parsedFile{relPath: relPath, out: parseOut})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].relPath < out[j].relPath })
	return out, nil
}

func contentHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// internalPackageNames derives the project's top-level package names from
// its repo config (explicit module declarations) and the directory layout
// directly beneath repoPath, matching the first-segment heuristic
// internal/parser.ExtractCode uses to decide whether an absolute dotted
// import is internal.
func internalPackageNames(repoCfg *config.RepoConfig, current map[string]state.Record) map[string]bool {
	names := make(map[string]bool)
	for name := range repoCfg.Modules {
		names[name] = true
	}
	for relPath := range current {
		first := relPath
		if idx := strings.IndexByte(relPath, '/'); idx >= 0 {
			first = relPath[:idx]
		} else {
			first = strings.TrimSuffix(first, filepath.Ext(first))
		}
		if first != "" {
			names[first] = true
		}
	}
	return names
}
