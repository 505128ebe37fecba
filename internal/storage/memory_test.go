package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvoss/zotassist/internal/models"
)

func TestMemoryStorageFileIDs(t *testing.T) {
	s := NewMemoryStorage()

	fileID, err := s.GetFileID("ITEM1")
	require.NoError(t, err)
	assert.Empty(t, fileID, "missing entry reads as empty, not an error")

	require.NoError(t, s.SaveFileID("ITEM1", "file-1"))
	fileID, err = s.GetFileID("ITEM1")
	require.NoError(t, err)
	assert.Equal(t, "file-1", fileID)
}

func TestMemoryStorageHandles(t *testing.T) {
	s := NewMemoryStorage()

	require.NoError(t, s.SaveHandle(HandleAssistantID, "asst-1"))
	value, err := s.GetHandle(HandleAssistantID)
	require.NoError(t, err)
	assert.Equal(t, "asst-1", value)

	require.NoError(t, s.DeleteHandle(HandleAssistantID))
	value, err = s.GetHandle(HandleAssistantID)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestMemoryStorageThreads(t *testing.T) {
	s := NewMemoryStorage()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	thread, err := s.GetThread("asst-1")
	require.NoError(t, err)
	assert.Nil(t, thread)

	require.NoError(t, s.SaveThread(models.ThreadHandle{
		AssistantID: "asst-1",
		ThreadID:    "thread-1",
		CreatedAt:   now,
		LastUsedAt:  now,
	}))

	thread, err = s.GetThread("asst-1")
	require.NoError(t, err)
	require.NotNil(t, thread)
	assert.Equal(t, "thread-1", thread.ThreadID)

	// Saving again replaces the handle for that assistant.
	require.NoError(t, s.SaveThread(models.ThreadHandle{
		AssistantID: "asst-1",
		ThreadID:    "thread-2",
		CreatedAt:   now,
		LastUsedAt:  now,
	}))
	thread, err = s.GetThread("asst-1")
	require.NoError(t, err)
	assert.Equal(t, "thread-2", thread.ThreadID)

	later := now.Add(time.Hour)
	require.NoError(t, s.UpdateThreadLastUsed("asst-1", later))
	thread, err = s.GetThread("asst-1")
	require.NoError(t, err)
	assert.Equal(t, later, thread.LastUsedAt)

	require.NoError(t, s.DeleteThread("asst-1"))
	thread, err = s.GetThread("asst-1")
	require.NoError(t, err)
	assert.Nil(t, thread)
}

func TestMemoryStorageUpdateMissingThreadIsNoop(t *testing.T) {
	s := NewMemoryStorage()

	require.NoError(t, s.UpdateThreadLastUsed("asst-unknown", time.Now()))
	thread, err := s.GetThread("asst-unknown")
	require.NoError(t, err)
	assert.Nil(t, thread)
}
