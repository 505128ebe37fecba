package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/models"
)

func newTestKnowledgeStores(remote *fakeRemote, clock *fakeClock) *KnowledgeStores {
	k := NewKnowledgeStores(remote, newTestState(clock), clock, zap.NewNop())
	k.pollInterval = time.Millisecond
	return k
}

func TestEnsureStore_CreatesOnceThenReuses(t *testing.T) {
	remote := &fakeRemote{
		createStoreFn: func(req openai.VectorStoreRequest) (openai.VectorStore, error) {
			assert.Contains(t, req.Name, "Zotero Document Store")
			return openai.VectorStore{ID: "vs-1"}, nil
		},
	}
	k := newTestKnowledgeStores(remote, newFakeClock())

	first, err := k.EnsureStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vs-1", first)

	second, err := k.EnsureStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vs-1", second)
	assert.Equal(t, 1, remote.createStoreCalls)
}

func TestIngest_CompletesAfterPolling(t *testing.T) {
	polls := 0
	remote := &fakeRemote{
		createBatchFn: func(storeID string, req openai.VectorStoreFileBatchRequest) (openai.VectorStoreFileBatch, error) {
			assert.Equal(t, "vs-1", storeID)
			assert.Equal(t, []string{"f1", "f2"}, req.FileIDs)
			return openai.VectorStoreFileBatch{ID: "batch-1", Status: "in_progress"}, nil
		},
		getBatchFn: func(storeID, batchID string) (openai.VectorStoreFileBatch, error) {
			polls++
			if polls < 2 {
				return openai.VectorStoreFileBatch{ID: batchID, Status: "in_progress"}, nil
			}
			return openai.VectorStoreFileBatch{
				ID:         batchID,
				Status:     "completed",
				FileCounts: openai.VectorStoreFileCount{Completed: 2, Total: 2},
			}, nil
		},
	}
	k := newTestKnowledgeStores(remote, newFakeClock())

	result, err := k.Ingest(context.Background(), "vs-1", []models.FileHandle{
		{ItemKey: "d1", FileID: "f1"},
		{ItemKey: "d2", FileID: "f2"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.IngestCompleted, result.Status)
	assert.Equal(t, "batch-1", result.BatchID)
	assert.Equal(t, 2, result.FileCounts.Completed)
}

func TestIngest_ServerFailure(t *testing.T) {
	remote := &fakeRemote{
		createBatchFn: func(storeID string, req openai.VectorStoreFileBatchRequest) (openai.VectorStoreFileBatch, error) {
			return openai.VectorStoreFileBatch{
				ID:         "batch-1",
				Status:     "failed",
				FileCounts: openai.VectorStoreFileCount{Failed: 1, Total: 1},
			}, nil
		},
	}
	k := newTestKnowledgeStores(remote, newFakeClock())

	_, err := k.Ingest(context.Background(), "vs-1", []models.FileHandle{{FileID: "f1"}})

	var ingestErr *IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, "vs-1", ingestErr.StoreID)
}

func TestIngest_TimeoutIsResultNotError(t *testing.T) {
	clock := newFakeClock()
	remote := &fakeRemote{
		createBatchFn: func(storeID string, req openai.VectorStoreFileBatchRequest) (openai.VectorStoreFileBatch, error) {
			return openai.VectorStoreFileBatch{ID: "batch-1", Status: "in_progress"}, nil
		},
		getBatchFn: func(storeID, batchID string) (openai.VectorStoreFileBatch, error) {
			// Batch never leaves in_progress; each poll burns fake time.
			clock.Advance(time.Minute)
			return openai.VectorStoreFileBatch{ID: batchID, Status: "in_progress"}, nil
		},
	}
	k := newTestKnowledgeStores(remote, clock)

	result, err := k.Ingest(context.Background(), "vs-1", []models.FileHandle{{FileID: "f1"}})
	require.NoError(t, err, "timeout must not be an error")
	assert.Equal(t, models.IngestTimedOut, result.Status)
}

func TestIngest_EmptySetIsNoop(t *testing.T) {
	k := newTestKnowledgeStores(&fakeRemote{}, newFakeClock())

	result, err := k.Ingest(context.Background(), "vs-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.IngestCompleted, result.Status)
}

func TestEnsureStoreAndIngest(t *testing.T) {
	remote := &fakeRemote{
		createStoreFn: func(req openai.VectorStoreRequest) (openai.VectorStore, error) {
			return openai.VectorStore{ID: "vs-9"}, nil
		},
		createBatchFn: func(storeID string, req openai.VectorStoreFileBatchRequest) (openai.VectorStoreFileBatch, error) {
			assert.Equal(t, "vs-9", storeID)
			return openai.VectorStoreFileBatch{
				ID:         "batch-9",
				Status:     "completed",
				FileCounts: openai.VectorStoreFileCount{Completed: 1, Total: 1},
			}, nil
		},
	}
	k := newTestKnowledgeStores(remote, newFakeClock())

	result, err := k.EnsureStoreAndIngest(context.Background(), []models.FileHandle{{FileID: "f1"}})
	require.NoError(t, err)
	assert.Equal(t, "vs-9", result.StoreID)
	assert.Equal(t, models.IngestCompleted, result.Status)
}
