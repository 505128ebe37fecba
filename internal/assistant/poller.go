package assistant

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nvoss/zotassist/internal/session"
)

const (
	defaultRunPollInterval = time.Second
	defaultRunBudget       = 2 * time.Minute
)

// TerminalStatus classifies how a run ended.
type TerminalStatus string

const (
	RunCompleted TerminalStatus = "completed"
	RunFailed    TerminalStatus = "failed"
	RunCancelled TerminalStatus = "cancelled"
	RunTimedOut  TerminalStatus = "timed_out"
)

// RunResult is the terminal state of a polled run. FailureReason carries the
// server-reported error when Status is RunFailed.
type RunResult struct {
	Status        TerminalStatus
	FailureReason string
}

// RunPoller drives a submitted run to a terminal state within a wall-clock
// budget. On timeout it requests a best-effort cancel and reports RunTimedOut
// rather than blocking further.
type RunPoller struct {
	client Remote
	clock  session.Clock
	logger *zap.Logger

	pollInterval time.Duration
	budget       time.Duration
}

func NewRunPoller(client Remote, clock session.Clock, logger *zap.Logger) *RunPoller {
	return &RunPoller{
		client:       client,
		clock:        clock,
		logger:       logger,
		pollInterval: defaultRunPollInterval,
		budget:       defaultRunBudget,
	}
}

// Budget is the wall-clock ceiling applied to each polled run.
func (p *RunPoller) Budget() time.Duration { return p.budget }

// AwaitCompletion polls the run until it reaches completed, failed or
// cancelled. The budget is measured from entry (i.e. from submission, since
// callers poll immediately after creating the run), not from each poll. A
// failure to fetch run status ends the poll and surfaces as an error.
func (p *RunPoller) AwaitCompletion(ctx context.Context, threadID, runID string) (RunResult, error) {
	start := p.clock.Now()

	run, err := p.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return RunResult{}, &TransientRemoteError{Op: "retrieve run", Err: err}
	}

	for !isTerminalRunStatus(run.Status) {
		if p.clock.Now().Sub(start) > p.budget {
			p.logger.Error("run timed out",
				zap.String("run_id", runID),
				zap.String("thread_id", threadID),
				zap.String("status", string(run.Status)),
				zap.Duration("budget", p.budget))
			p.cancelRun(ctx, threadID, runID)
			return RunResult{Status: RunTimedOut}, nil
		}

		select {
		case <-ctx.Done():
			return RunResult{}, ctx.Err()
		case <-time.After(p.pollInterval):
		}

		run, err = p.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return RunResult{}, &TransientRemoteError{Op: "retrieve run", Err: err}
		}
		p.logger.Debug("run status",
			zap.String("run_id", runID),
			zap.String("status", string(run.Status)))
	}

	switch run.Status {
	case openai.RunStatusFailed:
		reason := ""
		if run.LastError != nil {
			reason = run.LastError.Message
		}
		return RunResult{Status: RunFailed, FailureReason: reason}, nil
	case openai.RunStatusCancelled:
		return RunResult{Status: RunCancelled}, nil
	default:
		return RunResult{Status: RunCompleted}, nil
	}
}

func (p *RunPoller) cancelRun(ctx context.Context, threadID, runID string) {
	if _, err := p.client.CancelRun(ctx, threadID, runID); err != nil {
		p.logger.Error("failed to cancel run",
			zap.Error(err),
			zap.String("run_id", runID),
			zap.String("thread_id", threadID))
		return
	}
	p.logger.Info("cancelled run after timeout", zap.String("run_id", runID))
}

func isTerminalRunStatus(status openai.RunStatus) bool {
	switch status {
	case openai.RunStatusCompleted, openai.RunStatusFailed, openai.RunStatusCancelled:
		return true
	}
	return false
}
