package assistant

import (
	"fmt"
	"time"
)

// Classification codes surfaced with errors so the HTTP layer can map them
// without string matching.
const (
	CodeThreadNotFound       = "thread_not_found"
	CodeThreadAlternative    = "thread_alternative_available"
	CodeAssistantNotFound    = "assistant_not_found"
	CodeRunFailed            = "run_failed"
	CodeRunTimedOut          = "run_timed_out"
	CodeRunCancelled         = "run_cancelled"
	CodeMalformedResponse    = "malformed_response"
	CodeUploadFailed         = "upload_failed"
	CodeIngestFailed         = "ingest_failed"
	CodeAssistantCreateError = "assistant_create_error"
	CodeAssistantUpdateError = "assistant_update_error"
	CodeTransientRemote      = "transient_remote_error"
)

// UploadError reports a failed document upload. The dedup cache is not
// written on failure, so a retry uploads again.
type UploadError struct {
	ItemKey string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload document %s: %v", e.ItemKey, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// IngestError reports a server-side file batch failure.
type IngestError struct {
	StoreID string
	Message string
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("file batch processing failed for store %s: %s", e.StoreID, e.Message)
}

type AssistantCreateError struct {
	Err error
}

func (e *AssistantCreateError) Error() string {
	return fmt.Sprintf("the assistant service could not create the assistant: %v", e.Err)
}

func (e *AssistantCreateError) Unwrap() error { return e.Err }

type AssistantUpdateError struct {
	AssistantID string
	Err         error
}

func (e *AssistantUpdateError) Error() string {
	return fmt.Sprintf("the assistant service could not update assistant %s: %v", e.AssistantID, e.Err)
}

func (e *AssistantUpdateError) Unwrap() error { return e.Err }

type AssistantNotFoundError struct {
	AssistantID string
	Err         error
}

func (e *AssistantNotFoundError) Error() string {
	return fmt.Sprintf("assistant %s not found or inaccessible: %v", e.AssistantID, e.Err)
}

func (e *AssistantNotFoundError) Unwrap() error { return e.Err }

// ThreadNotFoundError means the requested thread no longer exists remotely.
// When a different cached thread for the same assistant is still valid, its
// id is carried in Alternate so the caller can offer to resume it; it is
// never substituted silently.
type ThreadNotFoundError struct {
	ThreadID  string
	Alternate string
}

func (e *ThreadNotFoundError) Error() string {
	if e.Alternate != "" {
		return fmt.Sprintf("thread %s not found, but another valid thread %s exists for this assistant", e.ThreadID, e.Alternate)
	}
	return fmt.Sprintf("thread %s not found or expired; start a new conversation", e.ThreadID)
}

// RunFailedError carries the failure reason reported by the assistant service.
type RunFailedError struct {
	RunID  string
	Reason string
}

func (e *RunFailedError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown error"
	}
	return fmt.Sprintf("the assistant service reported a run failure: %s", reason)
}

type RunTimedOutError struct {
	RunID  string
	Budget time.Duration
}

func (e *RunTimedOutError) Error() string {
	return fmt.Sprintf("assistant run timed out after %s", e.Budget)
}

type RunCancelledError struct {
	RunID string
}

func (e *RunCancelledError) Error() string {
	return fmt.Sprintf("assistant run %s was cancelled", e.RunID)
}

// MalformedResponseError means a completed run produced no usable reply.
type MalformedResponseError struct {
	ThreadID string
	Reason   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("invalid response from assistant on thread %s: %s", e.ThreadID, e.Reason)
}

// TransientRemoteError wraps a remote call failure that is not otherwise
// classified.
type TransientRemoteError struct {
	Op  string
	Err error
}

func (e *TransientRemoteError) Error() string {
	return fmt.Sprintf("remote call %q failed: %v", e.Op, e.Err)
}

func (e *TransientRemoteError) Unwrap() error { return e.Err }
