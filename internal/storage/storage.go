package storage

import (
	"time"

	"github.com/nvoss/zotassist/internal/models"
)

// Named slots for singleton remote handles.
const (
	HandleAssistantID   = "assistant_id"
	HandleVectorStoreID = "vector_store_id"
)

type Storage interface {
	// GetFileID returns the cached OpenAI file id for a library item, or ""
	// if the item has not been uploaded yet.
	GetFileID(itemKey string) (string, error)
	SaveFileID(itemKey, fileID string) error

	// GetHandle returns the value stored under a handle slot, or "" if unset.
	GetHandle(name string) (string, error)
	SaveHandle(name, value string) error
	DeleteHandle(name string) error

	Close() error

	// Embed ThreadStorage interface
	ThreadStorage
}

type ThreadStorage interface {
	// GetThread returns the cached thread handle for an assistant, or nil if
	// none is cached.
	GetThread(assistantID string) (*models.ThreadHandle, error)
	SaveThread(handle models.ThreadHandle) error
	UpdateThreadLastUsed(assistantID string, at time.Time) error
	DeleteThread(assistantID string) error
}
