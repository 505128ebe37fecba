package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/models"
	"github.com/nvoss/zotassist/internal/storage"
)

// DefaultThreadTTL is how long a cached thread handle stays usable without
// being touched. Older entries are discarded unread.
const DefaultThreadTTL = 7 * 24 * time.Hour

// State is the session cache shared by the assistant components: uploaded
// file ids, the single knowledge store id, the current assistant id, and one
// thread handle per assistant. It reads through a Storage backend so the
// cache can optionally survive restarts.
//
// State has cache semantics: backend failures are logged and treated as a
// miss, so callers fall back to the remote create path instead of failing.
type State struct {
	store     storage.Storage
	clock     Clock
	threadTTL time.Duration
	logger    *zap.Logger
}

func NewState(store storage.Storage, clock Clock, logger *zap.Logger) *State {
	return &State{
		store:     store,
		clock:     clock,
		threadTTL: DefaultThreadTTL,
		logger:    logger,
	}
}

// WithThreadTTL overrides the thread expiry horizon. Non-positive values keep
// the default.
func (s *State) WithThreadTTL(ttl time.Duration) *State {
	if ttl > 0 {
		s.threadTTL = ttl
	}
	return s
}

func (s *State) FileID(itemKey string) (string, bool) {
	fileID, err := s.store.GetFileID(itemKey)
	if err != nil {
		s.logger.Warn("failed to read cached file id",
			zap.Error(err),
			zap.String("item_key", itemKey))
		return "", false
	}
	return fileID, fileID != ""
}

func (s *State) RememberFileID(itemKey, fileID string) {
	if err := s.store.SaveFileID(itemKey, fileID); err != nil {
		s.logger.Warn("failed to cache file id",
			zap.Error(err),
			zap.String("item_key", itemKey),
			zap.String("file_id", fileID))
	}
}

func (s *State) AssistantID() string {
	return s.handle(storage.HandleAssistantID)
}

func (s *State) SetAssistantID(id string) {
	s.setHandle(storage.HandleAssistantID, id)
}

func (s *State) ClearAssistantID() {
	if err := s.store.DeleteHandle(storage.HandleAssistantID); err != nil {
		s.logger.Warn("failed to clear cached assistant id", zap.Error(err))
	}
}

func (s *State) VectorStoreID() string {
	return s.handle(storage.HandleVectorStoreID)
}

func (s *State) SetVectorStoreID(id string) {
	s.setHandle(storage.HandleVectorStoreID, id)
}

// Thread returns the cached thread handle for an assistant. Handles past the
// TTL horizon are deleted and reported as a miss without ever being returned.
func (s *State) Thread(assistantID string) (models.ThreadHandle, bool) {
	thread, err := s.store.GetThread(assistantID)
	if err != nil {
		s.logger.Warn("failed to read cached thread",
			zap.Error(err),
			zap.String("assistant_id", assistantID))
		return models.ThreadHandle{}, false
	}
	if thread == nil {
		return models.ThreadHandle{}, false
	}
	if s.clock.Now().Sub(thread.LastUsedAt) > s.threadTTL {
		s.logger.Info("discarding expired thread handle",
			zap.String("assistant_id", assistantID),
			zap.String("thread_id", thread.ThreadID),
			zap.Time("last_used_at", thread.LastUsedAt))
		s.ForgetThread(assistantID)
		return models.ThreadHandle{}, false
	}
	return *thread, true
}

// SaveThread records threadID as the one thread for assistantID, replacing
// any prior handle.
func (s *State) SaveThread(assistantID, threadID string) models.ThreadHandle {
	now := s.clock.Now()
	handle := models.ThreadHandle{
		AssistantID: assistantID,
		ThreadID:    threadID,
		CreatedAt:   now,
		LastUsedAt:  now,
	}
	if err := s.store.SaveThread(handle); err != nil {
		s.logger.Warn("failed to cache thread",
			zap.Error(err),
			zap.String("assistant_id", assistantID),
			zap.String("thread_id", threadID))
	}
	return handle
}

func (s *State) TouchThread(assistantID string) {
	if err := s.store.UpdateThreadLastUsed(assistantID, s.clock.Now()); err != nil {
		s.logger.Warn("failed to update thread last used",
			zap.Error(err),
			zap.String("assistant_id", assistantID))
	}
}

func (s *State) ForgetThread(assistantID string) {
	if err := s.store.DeleteThread(assistantID); err != nil {
		s.logger.Warn("failed to delete cached thread",
			zap.Error(err),
			zap.String("assistant_id", assistantID))
	}
}

func (s *State) handle(name string) string {
	value, err := s.store.GetHandle(name)
	if err != nil {
		s.logger.Warn("failed to read session handle",
			zap.Error(err),
			zap.String("name", name))
		return ""
	}
	return value
}

func (s *State) setHandle(name, value string) {
	if err := s.store.SaveHandle(name, value); err != nil {
		s.logger.Warn("failed to save session handle",
			zap.Error(err),
			zap.String("name", name),
			zap.String("value", value))
	}
}
