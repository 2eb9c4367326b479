// Package ingest rebuilds the searchable index from extracted policy
// chunks. Batches arrive over NATS, pass through validation and
// normalization, get embedded in bulk, and the resulting snapshot is
// swapped into the similarity index atomically.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/claimlens/claimlens/engine/corpus"
	"github.com/claimlens/claimlens/engine/domain"
	"github.com/claimlens/claimlens/engine/semantic"
	"github.com/claimlens/claimlens/pkg/fn"
)

const (
	// ChunksSubject carries ChunkBatch messages from extractors.
	ChunksSubject = "claimlens.chunks"
	// RebuiltSubject announces a completed index rebuild.
	RebuiltSubject = "claimlens.index.rebuilt"
	// DLQSubject is the dead letter queue for batches that keep failing.
	DLQSubject = "claimlens.chunks.dlq"
	// MaxRetries before a batch goes to the DLQ.
	MaxRetries = 3
	// EmbedBatchSize is the max texts per embedding request.
	EmbedBatchSize = 100
)

// Indexer accumulates ingested chunks and rebuilds the similarity index.
// Every batch triggers a full rebuild: the whole corpus is re-embedded so
// chunk IDs and embedding rows stay aligned.
type Indexer struct {
	index    *semantic.Index
	embedder semantic.Embedder
	log      *slog.Logger

	mu  sync.Mutex
	raw []domain.Chunk
}

// NewIndexer returns an Indexer feeding the given index.
func NewIndexer(index *semantic.Index, embedder semantic.Embedder, log *slog.Logger) *Indexer {
	return &Indexer{index: index, embedder: embedder, log: log}
}

// Clean normalizes chunk text and drops chunks too short to index. A batch
// with no survivors is an error so the consumer can report it.
var Clean fn.Stage[ChunkBatch, ChunkBatch] = func(_ context.Context, batch ChunkBatch) fn.Result[ChunkBatch] {
	kept, dropped := cleanBatch(batch.Chunks)
	if len(kept) == 0 {
		return fn.Err[ChunkBatch](fmt.Errorf("ingest: batch %s: %w (dropped %d)", batch.BatchID, domain.ErrInvalidChunk, dropped))
	}
	batch.Chunks = kept
	return fn.Ok(batch)
}

// rebuild appends the batch to the accumulated corpus and swaps a fresh
// snapshot into the index. An embedding failure does not fail the rebuild;
// the snapshot is swapped without vectors and searches run keyword-only
// until the next successful rebuild.
func (ix *Indexer) rebuild(ctx context.Context, batch ChunkBatch) fn.Result[RebuildSummary] {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, rc := range batch.Chunks {
		ix.raw = append(ix.raw, domain.Chunk{SourceID: rc.SourceID, Page: rc.Page, Text: rc.Text})
	}
	snap := corpus.Build(ix.raw)

	vectors, err := ix.embedAll(ctx, snap)
	if err != nil {
		ix.log.WarnContext(ctx, "ingest: embedding failed, index degrades to keyword only",
			"batch_id", batch.BatchID, "error", err)
		vectors = nil
	}
	if err := ix.index.Swap(snap, vectors); err != nil {
		return fn.Err[RebuildSummary](fmt.Errorf("ingest: swap: %w", err))
	}

	return fn.Ok(RebuildSummary{
		BatchID:  batch.BatchID,
		Chunks:   snap.Len(),
		Sources:  snap.SourceCount(),
		Semantic: vectors != nil,
	})
}

// embedAll embeds every chunk in the snapshot in EmbedBatchSize groups.
func (ix *Indexer) embedAll(ctx context.Context, snap *corpus.Snapshot) ([][]float32, error) {
	texts := fn.Map(snap.Chunks(), func(c domain.Chunk) string { return c.Text })
	vectors := make([][]float32, 0, len(texts))
	for i, group := range fn.Chunk(texts, EmbedBatchSize) {
		embs, err := ix.embedder.EmbedBatch(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i, err)
		}
		if len(embs) != len(group) {
			return nil, fmt.Errorf("embed batch %d: got %d vectors for %d texts", i, len(embs), len(group))
		}
		vectors = append(vectors, embs...)
	}
	return vectors, nil
}

// Pipeline returns the full ingestion stage: Clean then rebuild.
func (ix *Indexer) Pipeline() fn.Stage[ChunkBatch, RebuildSummary] {
	return fn.Then(Clean, fn.TracedStage("ingest.rebuild", ix.rebuild))
}

// IndexBatch runs one batch through the pipeline directly, bypassing NATS.
// The HTTP upload path uses it.
func (ix *Indexer) IndexBatch(ctx context.Context, batch ChunkBatch) (RebuildSummary, error) {
	return ix.Pipeline()(ctx, batch).Unwrap()
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Batch   ChunkBatch `json:"batch"`
	Error   string     `json:"error"`
	Retries int        `json:"retries"`
}

// StartConsumer subscribes to ChunksSubject and runs each batch through
// the pipeline with retry and DLQ handling. Successful rebuilds are
// announced on RebuiltSubject.
func StartConsumer(nc *nats.Conn, ix *Indexer) (*nats.Subscription, error) {
	pipeline := ix.Pipeline()
	log := ix.log
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(ChunksSubject, func(msg *nats.Msg) {
		var batch ChunkBatch
		if err := json.Unmarshal(msg.Data, &batch); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, batch)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"batch_id", batch.BatchID,
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := dlqMessage{Batch: batch, Error: pipeErr.Error(), Retries: retries}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "error", err)
				}
			} else {
				retryMsg := nats.NewMsg(ChunksSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
				if err := nc.PublishMsg(retryMsg); err != nil {
					log.Error("ingest: retry publish failed", "error", err)
				}
			}
		} else {
			summary, _ := result.Unwrap()
			log.Info("ingest: index rebuilt",
				"batch_id", summary.BatchID,
				"chunks", summary.Chunks,
				"sources", summary.Sources,
				"semantic", summary.Semantic,
			)
			if data, err := json.Marshal(summary); err == nil {
				if err := nc.Publish(RebuiltSubject, data); err != nil {
					log.Error("ingest: rebuilt publish failed", "error", err)
				}
			}
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}
