package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/models"
	"github.com/nvoss/zotassist/internal/session"
)

const (
	defaultBatchPollInterval = 2 * time.Second
	defaultIngestBudget      = 5 * time.Minute
)

// Vector store and file batch statuses as reported by the API.
const (
	batchStatusInProgress = "in_progress"
	batchStatusCompleted  = "completed"
	batchStatusFailed     = "failed"
	batchStatusCancelled  = "cancelled"
)

// KnowledgeStores manages the single vector store documents are indexed
// into. The store id is cached after first creation and reused without
// re-verification.
type KnowledgeStores struct {
	client Remote
	state  *session.State
	clock  session.Clock
	logger *zap.Logger

	pollInterval time.Duration
	ingestBudget time.Duration
}

func NewKnowledgeStores(client Remote, state *session.State, clock session.Clock, logger *zap.Logger) *KnowledgeStores {
	return &KnowledgeStores{
		client:       client,
		state:        state,
		clock:        clock,
		logger:       logger,
		pollInterval: defaultBatchPollInterval,
		ingestBudget: defaultIngestBudget,
	}
}

// EnsureStore returns the cached vector store id, creating the store on
// first use.
func (k *KnowledgeStores) EnsureStore(ctx context.Context) (string, error) {
	if storeID := k.state.VectorStoreID(); storeID != "" {
		k.logger.Info("using existing vector store", zap.String("store_id", storeID))
		return storeID, nil
	}

	store, err := k.client.CreateVectorStore(ctx, openai.VectorStoreRequest{
		Name: fmt.Sprintf("Zotero Document Store %s", k.clock.Now().UTC().Format(time.RFC3339)),
	})
	if err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}

	k.state.SetVectorStoreID(store.ID)
	k.logger.Info("created vector store", zap.String("store_id", store.ID))
	return store.ID, nil
}

// Ingest submits the file handles as one batch to the store and polls until
// the batch leaves the in-progress state or the wall-clock budget runs out.
// A timeout is a result, not an error: indexing continues server-side.
func (k *KnowledgeStores) Ingest(ctx context.Context, storeID string, files []models.FileHandle) (models.IngestResult, error) {
	if len(files) == 0 {
		return models.IngestResult{StoreID: storeID, Status: models.IngestCompleted}, nil
	}

	fileIDs := make([]string, len(files))
	for i, f := range files {
		fileIDs[i] = f.FileID
	}

	batch, err := k.client.CreateVectorStoreFileBatch(ctx, storeID, openai.VectorStoreFileBatchRequest{
		FileIDs: fileIDs,
	})
	if err != nil {
		return models.IngestResult{}, fmt.Errorf("create file batch for store %s: %w", storeID, err)
	}

	k.logger.Info("created file batch",
		zap.String("store_id", storeID),
		zap.String("batch_id", batch.ID),
		zap.Int("file_count", len(fileIDs)),
		zap.String("status", batch.Status))

	deadline := k.clock.Now().Add(k.ingestBudget)
	for batch.Status == batchStatusInProgress {
		if !k.clock.Now().Before(deadline) {
			k.logger.Warn("file batch processing timed out, continuing without full indexing",
				zap.String("store_id", storeID),
				zap.String("batch_id", batch.ID))
			return models.IngestResult{
				StoreID:    storeID,
				BatchID:    batch.ID,
				Status:     models.IngestTimedOut,
				FileCounts: fileCounts(batch.FileCounts),
			}, nil
		}

		select {
		case <-ctx.Done():
			return models.IngestResult{}, ctx.Err()
		case <-time.After(k.pollInterval):
		}

		batch, err = k.client.RetrieveVectorStoreFileBatch(ctx, storeID, batch.ID)
		if err != nil {
			return models.IngestResult{}, &TransientRemoteError{Op: "retrieve file batch", Err: err}
		}
	}

	k.logger.Info("file batch finished",
		zap.String("store_id", storeID),
		zap.String("batch_id", batch.ID),
		zap.String("status", batch.Status))

	result := models.IngestResult{
		StoreID:    storeID,
		BatchID:    batch.ID,
		FileCounts: fileCounts(batch.FileCounts),
	}
	switch batch.Status {
	case batchStatusFailed:
		return result, &IngestError{
			StoreID: storeID,
			Message: fmt.Sprintf("batch %s ended with status failed (%d of %d files failed)",
				batch.ID, batch.FileCounts.Failed, batch.FileCounts.Total),
		}
	case batchStatusCancelled:
		result.Status = models.IngestCancelled
	default:
		result.Status = models.IngestCompleted
	}
	return result, nil
}

// EnsureStoreAndIngest is the combined operation exposed downstream.
func (k *KnowledgeStores) EnsureStoreAndIngest(ctx context.Context, files []models.FileHandle) (models.IngestResult, error) {
	storeID, err := k.EnsureStore(ctx)
	if err != nil {
		return models.IngestResult{}, err
	}
	return k.Ingest(ctx, storeID, files)
}

func fileCounts(c openai.VectorStoreFileCount) models.FileCounts {
	return models.FileCounts{
		InProgress: c.InProgress,
		Completed:  c.Completed,
		Failed:     c.Failed,
		Cancelled:  c.Cancelled,
		Total:      c.Total,
	}
}
