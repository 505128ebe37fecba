package assistant

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/models"
	"github.com/nvoss/zotassist/internal/session"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4o

const listPageSize = 100

// instructions longer than this are truncated in directory listings
const summaryInstructionLimit = 100

// Manager owns the cached "current assistant" and reconciles it against the
// remote service: reuse optimistically, confirm on fetch, recreate on
// confirmed-gone.
type Manager struct {
	client Remote
	state  *session.State
	stores *KnowledgeStores
	model  string
	logger *zap.Logger
}

func NewManager(client Remote, state *session.State, stores *KnowledgeStores, model string, logger *zap.Logger) *Manager {
	if model == "" {
		model = DefaultModel
	}
	return &Manager{
		client: client,
		state:  state,
		stores: stores,
		model:  model,
		logger: logger,
	}
}

// CreateOrUpdate ensures a knowledge store exists, ingests the given files
// into it, and binds it to the current assistant, creating one if none is
// cached or the cached one is gone remotely. Ingestion failures degrade the
// result (the assistant still gets whatever was indexed) instead of aborting.
func (m *Manager) CreateOrUpdate(ctx context.Context, name, instructions string, files []models.FileHandle) (*models.AssistantRecord, error) {
	storeID, err := m.stores.EnsureStore(ctx)
	if err != nil {
		return nil, &AssistantCreateError{Err: err}
	}

	if _, err := m.stores.Ingest(ctx, storeID, files); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		m.logger.Error("file ingestion failed, continuing with assistant setup",
			zap.Error(err),
			zap.String("store_id", storeID))
	}

	assistantID := m.state.AssistantID()
	var asst openai.Assistant

	if assistantID != "" {
		if _, err := m.client.RetrieveAssistant(ctx, assistantID); err != nil {
			m.logger.Warn("cached assistant no longer retrievable, will create a new one",
				zap.Error(err),
				zap.String("assistant_id", assistantID))
			m.state.ClearAssistantID()
			assistantID = ""
		} else {
			asst, err = m.client.ModifyAssistant(ctx, assistantID, m.assistantRequest(name, instructions, storeID))
			if err != nil {
				return nil, &AssistantUpdateError{AssistantID: assistantID, Err: err}
			}
			m.logger.Info("updated assistant",
				zap.String("assistant_id", assistantID),
				zap.String("store_id", storeID))
		}
	}

	if assistantID == "" {
		asst, err = m.client.CreateAssistant(ctx, m.assistantRequest(name, instructions, storeID))
		if err != nil {
			return nil, &AssistantCreateError{Err: err}
		}
		assistantID = asst.ID
		m.state.SetAssistantID(assistantID)
		m.logger.Info("created assistant",
			zap.String("assistant_id", assistantID),
			zap.String("store_id", storeID))
	}

	record := recordFromAssistant(asst, storeID)
	m.verifyConfiguration(ctx, record)
	return record, nil
}

// verifyConfiguration re-fetches the store and assistant to attach indexed
// file counts for observability. Failures here are logged, never propagated.
func (m *Manager) verifyConfiguration(ctx context.Context, record *models.AssistantRecord) {
	store, err := m.client.RetrieveVectorStore(ctx, record.VectorStoreID)
	if err != nil {
		m.logger.Error("could not verify vector store",
			zap.Error(err),
			zap.String("store_id", record.VectorStoreID))
	} else {
		counts := fileCounts(store.FileCounts)
		record.FileCounts = &counts
		m.logger.Info("vector store verified",
			zap.String("store_id", store.ID),
			zap.String("status", store.Status),
			zap.Int("total_files", counts.Total),
			zap.Int("completed_files", counts.Completed),
			zap.Int("in_progress_files", counts.InProgress),
			zap.Int("failed_files", counts.Failed))
	}

	if _, err := m.client.RetrieveAssistant(ctx, record.ID); err != nil {
		m.logger.Error("could not verify assistant",
			zap.Error(err),
			zap.String("assistant_id", record.ID))
	}
}

// Load adopts an existing remote assistant as the current one and caches its
// knowledge store binding.
func (m *Manager) Load(ctx context.Context, assistantID string) (*models.AssistantRecord, error) {
	asst, err := m.client.RetrieveAssistant(ctx, assistantID)
	if err != nil {
		return nil, &AssistantNotFoundError{AssistantID: assistantID, Err: err}
	}

	m.state.SetAssistantID(assistantID)

	storeID := boundStoreID(asst)
	if storeID != "" {
		m.state.SetVectorStoreID(storeID)
		m.logger.Info("loaded assistant with vector store",
			zap.String("assistant_id", assistantID),
			zap.String("store_id", storeID))
	} else {
		m.logger.Info("loaded assistant without vector store binding",
			zap.String("assistant_id", assistantID))
	}

	record := recordFromAssistant(asst, storeID)
	if storeID != "" {
		if store, err := m.client.RetrieveVectorStore(ctx, storeID); err != nil {
			m.logger.Error("could not retrieve vector store details",
				zap.Error(err),
				zap.String("store_id", storeID))
		} else {
			counts := fileCounts(store.FileCounts)
			record.FileCounts = &counts
		}
	}
	return record, nil
}

// List returns every remote assistant with the file_search tool, newest
// first, paginating with the after cursor.
func (m *Manager) List(ctx context.Context) ([]models.AssistantSummary, error) {
	var all []openai.Assistant
	var after *string

	for {
		limit := listPageSize
		page, err := m.client.ListAssistants(ctx, &limit, nil, after, nil)
		if err != nil {
			return nil, &TransientRemoteError{Op: "list assistants", Err: err}
		}
		all = append(all, page.Assistants...)
		if len(page.Assistants) < listPageSize {
			break
		}
		lastID := page.Assistants[len(page.Assistants)-1].ID
		after = &lastID
	}

	summaries := make([]models.AssistantSummary, 0, len(all))
	for _, asst := range all {
		if !hasFileSearch(asst) {
			continue
		}
		summaries = append(summaries, models.AssistantSummary{
			ID:           asst.ID,
			Name:         deref(asst.Name),
			CreatedAt:    time.Unix(asst.CreatedAt, 0).UTC(),
			Model:        asst.Model,
			Instructions: truncate(deref(asst.Instructions), summaryInstructionLimit),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	m.logger.Info("listed assistants",
		zap.Int("total", len(all)),
		zap.Int("with_file_search", len(summaries)))
	return summaries, nil
}

// Delete removes the assistant remotely and drops it (and its thread) from
// the cache. A remote 404 is treated as success: the end state is the same.
func (m *Manager) Delete(ctx context.Context, assistantID string) error {
	resp, err := m.client.DeleteAssistant(ctx, assistantID)
	if err != nil {
		if isNotFound(err) {
			m.logger.Warn("assistant already gone remotely, clearing cache",
				zap.String("assistant_id", assistantID))
			m.forget(assistantID)
			return nil
		}
		return fmt.Errorf("delete assistant %s: %w", assistantID, err)
	}
	if !resp.Deleted {
		return fmt.Errorf("assistant %s deletion not confirmed by the API", assistantID)
	}

	m.logger.Info("deleted assistant", zap.String("assistant_id", assistantID))
	m.forget(assistantID)
	return nil
}

func (m *Manager) forget(assistantID string) {
	if m.state.AssistantID() == assistantID {
		m.state.ClearAssistantID()
	}
	m.state.ForgetThread(assistantID)
}

func (m *Manager) assistantRequest(name, instructions, storeID string) openai.AssistantRequest {
	return openai.AssistantRequest{
		Model:        m.model,
		Name:         &name,
		Instructions: &instructions,
		Tools: []openai.AssistantTool{
			{Type: openai.AssistantToolTypeFileSearch},
		},
		ToolResources: &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{
				VectorStoreIDs: []string{storeID},
			},
		},
	}
}

func recordFromAssistant(asst openai.Assistant, storeID string) *models.AssistantRecord {
	return &models.AssistantRecord{
		ID:            asst.ID,
		Name:          deref(asst.Name),
		Instructions:  deref(asst.Instructions),
		Model:         asst.Model,
		VectorStoreID: storeID,
		CreatedAt:     time.Unix(asst.CreatedAt, 0).UTC(),
	}
}

func boundStoreID(asst openai.Assistant) string {
	if asst.ToolResources == nil || asst.ToolResources.FileSearch == nil {
		return ""
	}
	if ids := asst.ToolResources.FileSearch.VectorStoreIDs; len(ids) > 0 {
		return ids[0]
	}
	return ""
}

func hasFileSearch(asst openai.Assistant) bool {
	for _, tool := range asst.Tools {
		if tool.Type == openai.AssistantToolTypeFileSearch {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
