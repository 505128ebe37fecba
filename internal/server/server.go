package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/assistant"
	"github.com/nvoss/zotassist/internal/zotero"
)

type Deps struct {
	Zotero     *zotero.Client
	Uploader   *assistant.Uploader
	Stores     *assistant.KnowledgeStores
	Assistants *assistant.Manager
	Threads    *assistant.Threads
	Logger     *zap.Logger
}

func New(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(deps.Logger))

	r.Get("/api/collections", handleCollections(deps))
	r.Get("/api/collection/{collectionID}/items", handleCollectionItems(deps))
	r.Get("/api/item/{itemKey}/pdf", handleItemPDF(deps))

	r.Post("/api/openai/upload", handleUpload(deps))
	r.Get("/api/openai/assistants", handleListAssistants(deps))
	r.Post("/api/openai/assistant", handleCreateAssistant(deps))
	r.Get("/api/openai/assistant/{assistantID}", handleLoadAssistant(deps))
	r.Delete("/api/openai/assistant/{assistantID}", handleDeleteAssistant(deps))
	r.Post("/api/openai/query", handleQuery(deps))
	r.Post("/api/openai/continue", handleContinue(deps))
	r.Post("/api/openai/validate-thread", handleValidateThread(deps))

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.New().String()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code,omitempty"`
	AlternateThreadID string `json:"alternateThreadId,omitempty"`
}

// writeClassifiedError maps the assistant error taxonomy onto HTTP statuses
// and the JSON envelope the frontend reacts to.
func writeClassifiedError(w http.ResponseWriter, err error) {
	var (
		uploadErr    *assistant.UploadError
		ingestErr    *assistant.IngestError
		createErr    *assistant.AssistantCreateError
		updateErr    *assistant.AssistantUpdateError
		asstNotFound *assistant.AssistantNotFoundError
		threadErr    *assistant.ThreadNotFoundError
		runFailed    *assistant.RunFailedError
		runTimedOut  *assistant.RunTimedOutError
		runCancelled *assistant.RunCancelledError
		malformed    *assistant.MalformedResponseError
	)

	switch {
	case errors.As(err, &threadErr):
		if threadErr.Alternate != "" {
			writeJSON(w, http.StatusConflict, errorResponse{
				Error:             threadErr.Error(),
				Code:              assistant.CodeThreadAlternative,
				AlternateThreadID: threadErr.Alternate,
			})
			return
		}
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: threadErr.Error(),
			Code:  assistant.CodeThreadNotFound,
		})
	case errors.As(err, &asstNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: asstNotFound.Error(),
			Code:  assistant.CodeAssistantNotFound,
		})
	case errors.As(err, &runTimedOut):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{
			Error: runTimedOut.Error(),
			Code:  assistant.CodeRunTimedOut,
		})
	case errors.As(err, &runFailed):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: runFailed.Error(),
			Code:  assistant.CodeRunFailed,
		})
	case errors.As(err, &runCancelled):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: runCancelled.Error(),
			Code:  assistant.CodeRunCancelled,
		})
	case errors.As(err, &malformed):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: malformed.Error(),
			Code:  assistant.CodeMalformedResponse,
		})
	case errors.As(err, &uploadErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: uploadErr.Error(),
			Code:  assistant.CodeUploadFailed,
		})
	case errors.As(err, &ingestErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: ingestErr.Error(),
			Code:  assistant.CodeIngestFailed,
		})
	case errors.As(err, &createErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: createErr.Error(),
			Code:  assistant.CodeAssistantCreateError,
		})
	case errors.As(err, &updateErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: updateErr.Error(),
			Code:  assistant.CodeAssistantUpdateError,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: err.Error(),
			Code:  assistant.CodeTransientRemote,
		})
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
