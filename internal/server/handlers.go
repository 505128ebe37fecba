package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nvoss/zotassist/internal/models"
	"github.com/nvoss/zotassist/internal/zotero"
)

const maxRequestBodySize = 1 << 20 // 1MB

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func handleCollections(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collections, err := deps.Zotero.Collections(r.Context())
		if err != nil {
			writeClassifiedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, collections)
	}
}

func handleCollectionItems(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collectionID := chi.URLParam(r, "collectionID")
		items, err := deps.Zotero.CollectionItems(r.Context(), collectionID)
		if err != nil {
			writeClassifiedError(w, err)
			return
		}
		if items == nil {
			items = []zotero.Item{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleItemPDF(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemKey := chi.URLParam(r, "itemKey")
		attachmentKey := r.URL.Query().Get("attachmentKey")

		path, err := deps.Zotero.DownloadPDF(r.Context(), itemKey, attachmentKey)
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"filePath": path})
	}
}

type uploadRequest struct {
	FilePath string `json:"filePath"`
	ItemKey  string `json:"itemKey"`
	Title    string `json:"title,omitempty"`
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.FilePath == "" || req.ItemKey == "" {
			writeBadRequest(w, "filePath and itemKey are required")
			return
		}

		handle, err := deps.Uploader.EnsureUploaded(r.Context(), models.DocumentRef{
			ItemKey: req.ItemKey,
			Title:   req.Title,
		}, req.FilePath)
		if err != nil {
			writeClassifiedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"fileId": handle.FileID})
	}
}

type createAssistantRequest struct {
	Name         string   `json:"name"`
	Instructions string   `json:"instructions"`
	FileIDs      []string `json:"fileIds"`
}

func handleCreateAssistant(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAssistantRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Name == "" || req.Instructions == "" || len(req.FileIDs) == 0 {
			writeBadRequest(w, "name, instructions, and fileIds are required")
			return
		}

		files := make([]models.FileHandle, len(req.FileIDs))
		for i, id := range req.FileIDs {
			files[i] = models.FileHandle{FileID: id}
		}

		record, err := deps.Assistants.CreateOrUpdate(r.Context(), req.Name, req.Instructions, files)
		if err != nil {
			writeClassifiedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func handleLoadAssistant(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := deps.Assistants.Load(r.Context(), chi.URLParam(r, "assistantID"))
		if err != nil {
			writeClassifiedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func handleListAssistants(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := deps.Assistants.List(r.Context())
		if err != nil {
			writeClassifiedError(w, err)
			return
		}
		if summaries == nil {
			summaries = []models.AssistantSummary{}
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func handleDeleteAssistant(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Assistants.Delete(r.Context(), chi.URLParam(r, "assistantID")); err != nil {
			writeClassifiedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Assistant deleted successfully",
		})
	}
}

type queryRequest struct {
	Prompt      string `json:"prompt"`
	AssistantID string `json:"assistantId"`
	ThreadID    string `json:"threadId,omitempty"`
}

type queryResponse struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId"`
}

// handleQuery starts (or transparently resumes) a conversation with the
// assistant's cached thread.
func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Prompt == "" || req.AssistantID == "" {
			writeBadRequest(w, "prompt and assistantId are required")
			return
		}

		threadID, err := deps.Threads.ResolveForTurn(r.Context(), req.AssistantID, "")
		if err != nil {
			writeClassifiedError(w, err)
			return
		}

		reply, err := deps.Threads.Converse(r.Context(), req.AssistantID, threadID, req.Prompt)
		if err != nil {
			writeClassifiedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, queryResponse{Message: reply, ThreadID: threadID})
	}
}

// handleContinue continues a UI-selected conversation. A dead thread with a
// valid cached alternative is surfaced as 409, never silently substituted.
func handleContinue(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Prompt == "" || req.AssistantID == "" || req.ThreadID == "" {
			writeBadRequest(w, "prompt, threadId, and assistantId are required")
			return
		}

		threadID, err := deps.Threads.ResolveForTurn(r.Context(), req.AssistantID, req.ThreadID)
		if err != nil {
			writeClassifiedError(w, err)
			return
		}

		reply, err := deps.Threads.Converse(r.Context(), req.AssistantID, threadID, req.Prompt)
		if err != nil {
			writeClassifiedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, queryResponse{Message: reply, ThreadID: threadID})
	}
}

type validateThreadRequest struct {
	ThreadID    string `json:"threadId"`
	AssistantID string `json:"assistantId,omitempty"`
}

func handleValidateThread(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req validateThreadRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ThreadID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"valid": false,
				"error": "threadId is required",
			})
			return
		}

		if err := deps.Threads.Validate(r.Context(), req.AssistantID, req.ThreadID); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"valid": false,
				"error": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"valid":    true,
			"threadId": req.ThreadID,
		})
	}
}
