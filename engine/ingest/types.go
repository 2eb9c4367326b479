package ingest

// RawChunk is a passage as it arrives from an extractor, before
// normalization and validation.
type RawChunk struct {
	SourceID string `json:"source_id"`
	Page     int    `json:"page"`
	Text     string `json:"text"`
}

// ChunkBatch is the wire format for a group of chunks extracted from one
// ingestion run, published on ChunksSubject.
type ChunkBatch struct {
	BatchID string     `json:"batch_id"`
	Source  string     `json:"source"`
	Chunks  []RawChunk `json:"chunks"`
}

// RebuildSummary reports the outcome of an index rebuild.
type RebuildSummary struct {
	BatchID  string `json:"batch_id"`
	Chunks   int    `json:"chunks"`
	Sources  int    `json:"sources"`
	Semantic bool   `json:"semantic"`
}
