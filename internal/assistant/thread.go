package assistant

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/session"
)

// Threads owns the assistant-id to conversation-thread mapping and drives a
// single conversational turn. A cached thread is never used without being
// validated against the remote service first.
type Threads struct {
	client Remote
	state  *session.State
	poller *RunPoller
	logger *zap.Logger
}

func NewThreads(client Remote, state *session.State, poller *RunPoller, logger *zap.Logger) *Threads {
	return &Threads{
		client: client,
		state:  state,
		poller: poller,
		logger: logger,
	}
}

// ResolveForTurn returns the thread id to use for the next turn.
//
// With an explicit thread id (the UI continuing a selected conversation) the
// thread must validate remotely; if it does not, a still-valid cached thread
// for the same assistant is surfaced via ThreadNotFoundError.Alternate, never
// silently substituted. Without an explicit id, the cached thread is
// validated and reused, or a fresh thread is created and cached in its place.
func (t *Threads) ResolveForTurn(ctx context.Context, assistantID, explicitThreadID string) (string, error) {
	if explicitThreadID != "" {
		return t.resolveExplicit(ctx, assistantID, explicitThreadID)
	}

	if cached, ok := t.state.Thread(assistantID); ok {
		if _, err := t.client.RetrieveThread(ctx, cached.ThreadID); err == nil {
			t.logger.Info("using cached thread",
				zap.String("assistant_id", assistantID),
				zap.String("thread_id", cached.ThreadID))
			t.state.TouchThread(assistantID)
			return cached.ThreadID, nil
		}
		t.logger.Warn("cached thread no longer valid, creating replacement",
			zap.String("assistant_id", assistantID),
			zap.String("thread_id", cached.ThreadID))
	}

	thread, err := t.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", &TransientRemoteError{Op: "create thread", Err: err}
	}
	t.state.SaveThread(assistantID, thread.ID)
	t.logger.Info("created thread",
		zap.String("assistant_id", assistantID),
		zap.String("thread_id", thread.ID))
	return thread.ID, nil
}

func (t *Threads) resolveExplicit(ctx context.Context, assistantID, threadID string) (string, error) {
	if _, err := t.client.RetrieveThread(ctx, threadID); err == nil {
		cached, ok := t.state.Thread(assistantID)
		if !ok || cached.ThreadID != threadID {
			t.state.SaveThread(assistantID, threadID)
		} else {
			t.state.TouchThread(assistantID)
		}
		return threadID, nil
	} else {
		t.logger.Warn("requested thread failed validation",
			zap.Error(err),
			zap.String("thread_id", threadID))
	}

	if cached, ok := t.state.Thread(assistantID); ok {
		if cached.ThreadID != threadID {
			if _, err := t.client.RetrieveThread(ctx, cached.ThreadID); err == nil {
				t.logger.Info("alternate valid thread available",
					zap.String("assistant_id", assistantID),
					zap.String("requested_thread_id", threadID),
					zap.String("alternate_thread_id", cached.ThreadID))
				return "", &ThreadNotFoundError{ThreadID: threadID, Alternate: cached.ThreadID}
			}
			t.logger.Warn("alternate cached thread is also invalid, evicting",
				zap.String("assistant_id", assistantID),
				zap.String("thread_id", cached.ThreadID))
		}
		t.state.ForgetThread(assistantID)
	}

	return "", &ThreadNotFoundError{ThreadID: threadID}
}

// Validate checks that a thread still exists remotely and refreshes its
// last-accessed time when it is the cached one.
func (t *Threads) Validate(ctx context.Context, assistantID, threadID string) error {
	if _, err := t.client.RetrieveThread(ctx, threadID); err != nil {
		return &ThreadNotFoundError{ThreadID: threadID}
	}
	if cached, ok := t.state.Thread(assistantID); ok && cached.ThreadID == threadID {
		t.state.TouchThread(assistantID)
	}
	return nil
}

// Converse posts prompt as a user message on the thread, runs the assistant
// and returns the reply text. Every exit is either a text reply or a
// classified error; a reply is never invented.
func (t *Threads) Converse(ctx context.Context, assistantID, threadID, prompt string) (string, error) {
	msg, err := t.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	if err != nil {
		return "", &TransientRemoteError{Op: "create message", Err: err}
	}
	t.logger.Info("added message to thread",
		zap.String("thread_id", threadID),
		zap.String("message_id", msg.ID))

	run, err := t.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: assistantID,
	})
	if err != nil {
		return "", &TransientRemoteError{Op: "create run", Err: err}
	}
	t.logger.Info("started run",
		zap.String("thread_id", threadID),
		zap.String("run_id", run.ID))

	result, err := t.poller.AwaitCompletion(ctx, threadID, run.ID)
	if err != nil {
		return "", err
	}

	switch result.Status {
	case RunFailed:
		return "", &RunFailedError{RunID: run.ID, Reason: result.FailureReason}
	case RunTimedOut:
		return "", &RunTimedOutError{RunID: run.ID, Budget: t.poller.Budget()}
	case RunCancelled:
		return "", &RunCancelledError{RunID: run.ID}
	}

	return t.latestAssistantReply(ctx, threadID)
}

// latestAssistantReply extracts the primary text payload of the most recent
// assistant-authored message. Messages are listed newest first.
func (t *Threads) latestAssistantReply(ctx context.Context, threadID string) (string, error) {
	msgs, err := t.client.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		return "", &TransientRemoteError{Op: "list messages", Err: err}
	}

	for _, m := range msgs.Messages {
		if m.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		if len(m.Content) == 0 || m.Content[0].Text == nil || m.Content[0].Text.Value == "" {
			return "", &MalformedResponseError{
				ThreadID: threadID,
				Reason:   fmt.Sprintf("message %s has no text content", m.ID),
			}
		}
		return m.Content[0].Text.Value, nil
	}

	return "", &MalformedResponseError{
		ThreadID: threadID,
		Reason:   "no assistant message found after run completed",
	}
}
