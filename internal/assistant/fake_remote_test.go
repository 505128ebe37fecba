package assistant

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// fakeRemote stands in for the OpenAI API. Each method delegates to the
// matching func field; unstubbed methods fail, so tests declare exactly the
// remote traffic they expect (best-effort verification calls excepted, where
// the error is only logged).
type fakeRemote struct {
	mu sync.Mutex

	createFileFn   func(req openai.FileRequest) (openai.File, error)
	createStoreFn  func(req openai.VectorStoreRequest) (openai.VectorStore, error)
	getStoreFn     func(storeID string) (openai.VectorStore, error)
	createBatchFn  func(storeID string, req openai.VectorStoreFileBatchRequest) (openai.VectorStoreFileBatch, error)
	getBatchFn     func(storeID, batchID string) (openai.VectorStoreFileBatch, error)
	createAsstFn   func(req openai.AssistantRequest) (openai.Assistant, error)
	getAsstFn      func(id string) (openai.Assistant, error)
	modifyAsstFn   func(id string, req openai.AssistantRequest) (openai.Assistant, error)
	deleteAsstFn   func(id string) (openai.AssistantDeleteResponse, error)
	listAsstFn     func(limit *int, after *string) (openai.AssistantsList, error)
	createThreadFn func(req openai.ThreadRequest) (openai.Thread, error)
	getThreadFn    func(id string) (openai.Thread, error)
	createMsgFn    func(threadID string, req openai.MessageRequest) (openai.Message, error)
	listMsgFn      func(threadID string) (openai.MessagesList, error)
	createRunFn    func(threadID string, req openai.RunRequest) (openai.Run, error)
	getRunFn       func(threadID, runID string) (openai.Run, error)
	cancelRunFn    func(threadID, runID string) (openai.Run, error)

	createFileCalls   int
	createStoreCalls  int
	createThreadCalls int
	createAsstCalls   int
	modifyAsstCalls   int
	getRunCalls       int
	cancelledRuns     []string
}

var errUnstubbed = errors.New("unexpected remote call")

func notFoundErr() error {
	return &openai.APIError{HTTPStatusCode: http.StatusNotFound, Message: "not found"}
}

func (f *fakeRemote) CreateFile(_ context.Context, req openai.FileRequest) (openai.File, error) {
	f.mu.Lock()
	f.createFileCalls++
	f.mu.Unlock()
	if f.createFileFn == nil {
		return openai.File{}, errUnstubbed
	}
	return f.createFileFn(req)
}

func (f *fakeRemote) CreateVectorStore(_ context.Context, req openai.VectorStoreRequest) (openai.VectorStore, error) {
	f.mu.Lock()
	f.createStoreCalls++
	f.mu.Unlock()
	if f.createStoreFn == nil {
		return openai.VectorStore{}, errUnstubbed
	}
	return f.createStoreFn(req)
}

func (f *fakeRemote) RetrieveVectorStore(_ context.Context, storeID string) (openai.VectorStore, error) {
	if f.getStoreFn == nil {
		return openai.VectorStore{}, errUnstubbed
	}
	return f.getStoreFn(storeID)
}

func (f *fakeRemote) CreateVectorStoreFileBatch(_ context.Context, storeID string, req openai.VectorStoreFileBatchRequest) (openai.VectorStoreFileBatch, error) {
	if f.createBatchFn == nil {
		return openai.VectorStoreFileBatch{}, errUnstubbed
	}
	return f.createBatchFn(storeID, req)
}

func (f *fakeRemote) RetrieveVectorStoreFileBatch(_ context.Context, storeID, batchID string) (openai.VectorStoreFileBatch, error) {
	if f.getBatchFn == nil {
		return openai.VectorStoreFileBatch{}, errUnstubbed
	}
	return f.getBatchFn(storeID, batchID)
}

func (f *fakeRemote) CreateAssistant(_ context.Context, req openai.AssistantRequest) (openai.Assistant, error) {
	f.mu.Lock()
	f.createAsstCalls++
	f.mu.Unlock()
	if f.createAsstFn == nil {
		return openai.Assistant{}, errUnstubbed
	}
	return f.createAsstFn(req)
}

func (f *fakeRemote) RetrieveAssistant(_ context.Context, id string) (openai.Assistant, error) {
	if f.getAsstFn == nil {
		return openai.Assistant{}, errUnstubbed
	}
	return f.getAsstFn(id)
}

func (f *fakeRemote) ModifyAssistant(_ context.Context, id string, req openai.AssistantRequest) (openai.Assistant, error) {
	f.mu.Lock()
	f.modifyAsstCalls++
	f.mu.Unlock()
	if f.modifyAsstFn == nil {
		return openai.Assistant{}, errUnstubbed
	}
	return f.modifyAsstFn(id, req)
}

func (f *fakeRemote) DeleteAssistant(_ context.Context, id string) (openai.AssistantDeleteResponse, error) {
	if f.deleteAsstFn == nil {
		return openai.AssistantDeleteResponse{}, errUnstubbed
	}
	return f.deleteAsstFn(id)
}

func (f *fakeRemote) ListAssistants(_ context.Context, limit *int, _ *string, after *string, _ *string) (openai.AssistantsList, error) {
	if f.listAsstFn == nil {
		return openai.AssistantsList{}, errUnstubbed
	}
	return f.listAsstFn(limit, after)
}

func (f *fakeRemote) CreateThread(_ context.Context, req openai.ThreadRequest) (openai.Thread, error) {
	f.mu.Lock()
	f.createThreadCalls++
	f.mu.Unlock()
	if f.createThreadFn == nil {
		return openai.Thread{}, errUnstubbed
	}
	return f.createThreadFn(req)
}

func (f *fakeRemote) RetrieveThread(_ context.Context, id string) (openai.Thread, error) {
	if f.getThreadFn == nil {
		return openai.Thread{}, errUnstubbed
	}
	return f.getThreadFn(id)
}

func (f *fakeRemote) CreateMessage(_ context.Context, threadID string, req openai.MessageRequest) (openai.Message, error) {
	if f.createMsgFn == nil {
		return openai.Message{}, errUnstubbed
	}
	return f.createMsgFn(threadID, req)
}

func (f *fakeRemote) ListMessage(_ context.Context, threadID string, _ *int, _ *string, _ *string, _ *string, _ *string) (openai.MessagesList, error) {
	if f.listMsgFn == nil {
		return openai.MessagesList{}, errUnstubbed
	}
	return f.listMsgFn(threadID)
}

func (f *fakeRemote) CreateRun(_ context.Context, threadID string, req openai.RunRequest) (openai.Run, error) {
	if f.createRunFn == nil {
		return openai.Run{}, errUnstubbed
	}
	return f.createRunFn(threadID, req)
}

func (f *fakeRemote) RetrieveRun(_ context.Context, threadID, runID string) (openai.Run, error) {
	f.mu.Lock()
	f.getRunCalls++
	f.mu.Unlock()
	if f.getRunFn == nil {
		return openai.Run{}, errUnstubbed
	}
	return f.getRunFn(threadID, runID)
}

func (f *fakeRemote) CancelRun(_ context.Context, threadID, runID string) (openai.Run, error) {
	f.mu.Lock()
	f.cancelledRuns = append(f.cancelledRuns, runID)
	f.mu.Unlock()
	if f.cancelRunFn == nil {
		return openai.Run{ID: runID, Status: openai.RunStatusCancelled}, nil
	}
	return f.cancelRunFn(threadID, runID)
}
