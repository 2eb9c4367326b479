// Command ingest watches a directory for extracted chunk JSON files and
// publishes them as chunk batches for the API server to index.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/claimlens/claimlens/engine/ingest"
	"github.com/claimlens/claimlens/pkg/metrics"
	"github.com/claimlens/claimlens/pkg/natsutil"
)

var met = metrics.New()

var (
	mFilesProcessed = met.Counter("claimlens_ingest_files_processed_total", "Files processed")
	mChunksTotal    = met.Counter("claimlens_ingest_chunks_published_total", "Chunks published")
	mBatchesTotal   = met.Counter("claimlens_ingest_batches_total", "Batches published")
	mErrorsTotal    = func(stage string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("claimlens_ingest_errors_total", "stage", stage), "Ingestion errors")
	}
	mQueueDepth     = met.Gauge("claimlens_ingest_queue_depth", "Files waiting to publish")
	mLastScan       = met.Gauge("claimlens_ingest_last_scan_timestamp", "Epoch of last directory scan")
	mIndexedChunks  = met.Gauge("claimlens_ingest_indexed_chunks", "Chunks in the index after the last rebuild")
)

func main() {
	var (
		dataDir     = flag.String("dir", "data/chunks", "directory to watch for chunk JSON files")
		natsURL     = flag.String("nats", nats.DefaultURL, "NATS server URL")
		interval    = flag.Duration("interval", 30*time.Second, "scan interval")
		stateFile   = flag.String("state", "data/chunks/.ingest-state.json", "processed files state")
		metricsPort = flag.Int("metrics-port", 9091, "metrics listen port")
	)
	flag.Parse()

	met.ServeAsync(*metricsPort)

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	nc, err := nats.Connect(*natsURL, nats.Name("claimlens-ingest"))
	if err != nil {
		log.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	log.Info("connected to NATS", "url", *natsURL)

	sub, err := natsutil.Subscribe(nc, ingest.RebuiltSubject, func(_ context.Context, s ingest.RebuildSummary) {
		mIndexedChunks.Set(int64(s.Chunks))
		log.Info("index rebuilt", "batch_id", s.BatchID, "chunks", s.Chunks, "semantic", s.Semantic)
	})
	if err != nil {
		log.Warn("rebuild subscription failed", "error", err)
	} else {
		defer sub.Unsubscribe()
	}

	processed := loadState(*stateFile)
	os.MkdirAll(*dataDir, 0o755)

	log.Info("watching for chunk files", "dir", *dataDir, "interval", *interval)

	scan := func() {
		mLastScan.Set(time.Now().Unix())
		entries, err := os.ReadDir(*dataDir)
		if err != nil {
			mErrorsTotal("scan").Inc()
			log.Error("readdir failed", "error", err)
			return
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name()[0] == '.' {
				continue
			}
			path := filepath.Join(*dataDir, e.Name())
			info, _ := e.Info()
			key := fmt.Sprintf("%s:%d", e.Name(), info.Size())
			if processed[key] {
				continue
			}

			mQueueDepth.Inc()
			n, err := publishFile(ctx, nc, path)
			mQueueDepth.Dec()
			if err != nil {
				mErrorsTotal("publish").Inc()
				log.Warn("file had errors, will retry on next scan", "file", e.Name(), "error", err)
				continue
			}

			mFilesProcessed.Inc()
			mBatchesTotal.Inc()
			mChunksTotal.Add(int64(n))
			log.Info("file published", "file", e.Name(), "chunks", n)
			processed[key] = true
			saveState(*stateFile, processed)
		}
	}

	scan()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			scan()
		}
	}
}

// publishFile reads one chunk file and publishes it as a batch. Files hold
// either a full ChunkBatch object or a bare array of chunks; bare arrays
// get a generated batch ID and the file name as source.
func publishFile(ctx context.Context, nc *nats.Conn, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	batch, err := parseBatch(data, filepath.Base(path))
	if err != nil {
		return 0, err
	}
	if len(batch.Chunks) == 0 {
		return 0, fmt.Errorf("no chunks in %s", path)
	}

	if err := natsutil.Publish(ctx, nc, ingest.ChunksSubject, batch); err != nil {
		return 0, err
	}
	return len(batch.Chunks), nil
}

func parseBatch(data []byte, filename string) (ingest.ChunkBatch, error) {
	var batch ingest.ChunkBatch
	if err := json.Unmarshal(data, &batch); err == nil && len(batch.Chunks) > 0 {
		if batch.BatchID == "" {
			batch.BatchID = uuid.NewString()
		}
		return batch, nil
	}

	var chunks []ingest.RawChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return ingest.ChunkBatch{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	source := strings.TrimSuffix(filename, ".json")
	for i := range chunks {
		if chunks[i].SourceID == "" {
			chunks[i].SourceID = source
		}
	}
	return ingest.ChunkBatch{
		BatchID: uuid.NewString(),
		Source:  source,
		Chunks:  chunks,
	}, nil
}

func loadState(path string) map[string]bool {
	m := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	json.Unmarshal(data, &m)
	return m
}

func saveState(path string, m map[string]bool) {
	data, _ := json.Marshal(m)
	os.WriteFile(path, data, 0o644)
}
