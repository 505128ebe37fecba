package models

import "time"

// DocumentRef identifies a library item selected for the assistant. The
// attachment key is set when the caller already knows which PDF to use.
type DocumentRef struct {
	ItemKey       string `json:"itemKey"`
	AttachmentKey string `json:"attachmentKey,omitempty"`
	Title         string `json:"title,omitempty"`
}

// FileHandle pairs a library item with the OpenAI file id its PDF was
// uploaded under. Created once per item per process; never mutated.
type FileHandle struct {
	ItemKey string `json:"itemKey,omitempty"`
	FileID  string `json:"fileId"`
}

// ThreadHandle is the cached conversation thread for one assistant. At most
// one handle is kept per assistant id; saving a new thread replaces it.
type ThreadHandle struct {
	AssistantID string    `json:"assistantId"`
	ThreadID    string    `json:"threadId"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUsedAt  time.Time `json:"lastUsedAt"`
}

// FileCounts mirrors the per-status file counters reported by a vector store.
type FileCounts struct {
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

// AssistantRecord is the authoritative view of the current assistant,
// including the knowledge store it is bound to. FileCounts is filled on a
// best-effort basis after create/update and may be nil.
type AssistantRecord struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Instructions  string      `json:"instructions"`
	Model         string      `json:"model"`
	VectorStoreID string      `json:"vectorStoreId,omitempty"`
	FileCounts    *FileCounts `json:"fileCounts,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// AssistantSummary is the read-only directory projection used for listing
// remote assistants. Instructions are truncated for display.
type AssistantSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	Model        string    `json:"model"`
	Instructions string    `json:"instructions"`
}

// IngestStatus is the outcome of submitting a file batch to a knowledge store.
type IngestStatus string

const (
	IngestCompleted IngestStatus = "completed"
	IngestTimedOut  IngestStatus = "timed_out"
	IngestCancelled IngestStatus = "cancelled"
)

// IngestResult reports how a batch submission ended. A timed-out ingestion is
// not an error: indexing continues server-side and the caller may proceed.
type IngestResult struct {
	StoreID    string       `json:"storeId"`
	BatchID    string       `json:"batchId,omitempty"`
	Status     IngestStatus `json:"status"`
	FileCounts FileCounts   `json:"fileCounts"`
}
