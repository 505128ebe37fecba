package storage

import (
	"sync"
	"time"

	"github.com/nvoss/zotassist/internal/models"
)

type MemoryStorage struct {
	mu      sync.RWMutex
	fileIDs map[string]string
	handles map[string]string
	threads map[string]models.ThreadHandle
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		fileIDs: make(map[string]string),
		handles: make(map[string]string),
		threads: make(map[string]models.ThreadHandle),
	}
}

func (s *MemoryStorage) GetFileID(itemKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fileIDs[itemKey], nil
}

func (s *MemoryStorage) SaveFileID(itemKey, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fileIDs[itemKey] = fileID
	return nil
}

func (s *MemoryStorage) GetHandle(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.handles[name], nil
}

func (s *MemoryStorage) SaveHandle(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handles[name] = value
	return nil
}

func (s *MemoryStorage) DeleteHandle(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.handles, name)
	return nil
}

func (s *MemoryStorage) GetThread(assistantID string) (*models.ThreadHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if thread, exists := s.threads[assistantID]; exists {
		return &thread, nil
	}
	return nil, nil
}

func (s *MemoryStorage) SaveThread(handle models.ThreadHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// One thread per assistant; saving replaces any prior handle.
	s.threads[handle.AssistantID] = handle
	return nil
}

func (s *MemoryStorage) UpdateThreadLastUsed(assistantID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if thread, exists := s.threads[assistantID]; exists {
		thread.LastUsedAt = at
		s.threads[assistantID] = thread
	}
	return nil
}

func (s *MemoryStorage) DeleteThread(assistantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, assistantID)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
