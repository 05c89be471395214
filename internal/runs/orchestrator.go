// Package runs – Orchestrator.
//
// Respond is the single entry point: it submits the user message to the bound
// thread, starts a run, polls it to a terminal state within a wall-clock
// budget, and resolves the reply. Transport failures are retried with small
// fixed budgets owned here, not in the HTTP client. A definitive thread-not-
// found on send triggers the registry's verify/rebind correction path at most
// once per request.
package runs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rsh-ai/assistant-backend/internal/assistant"
)

// DefaultFallbackReply is returned when a run fails or times out and the
// thread holds no prior assistant message to fall back on.
const DefaultFallbackReply = "Maaf, kami sedang mengalami kendala teknis. Silakan coba beberapa saat lagi."

// API is the slice of the assistant client the orchestrator needs.
type API interface {
	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID, role, text string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	LatestAssistantText(ctx context.Context, threadID string) (string, bool, error)
}

// Binder is the slice of the thread registry used by the correction path.
type Binder interface {
	Verify(ctx context.Context, threadID string) bool
	Rebind(identity, newThreadID string) error
}

// runOutcomes counts resolved requests by outcome ("completed", "remote_failed",
// "timeout", "send_failed", "start_failed", "poll_failed", "empty_reply").
var runOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "assistant_run_outcomes_total",
		Help: "Resolved assistant requests by outcome.",
	},
	[]string{"outcome"},
)

func init() { prometheus.MustRegister(runOutcomes) }

// Result is the orchestrator's resolution of one request. Reply is always
// usable text. ThreadID reflects any rebind performed by the correction path.
type Result struct {
	Reply     string
	ThreadID  string
	Completed bool
}

// Orchestrator runs the send/start/poll protocol. Safe for concurrent use.
type Orchestrator struct {
	api    API
	binder Binder
	log    zerolog.Logger

	AssistantID   string
	SendRetries   int
	PollRetries   int
	RetryDelay    time.Duration
	Schedule      PollSchedule
	WallBudget    time.Duration
	FallbackReply string

	// activeRuns remembers the last run started per thread so a stale
	// non-terminal run can be cancelled before starting a new one.
	mu         sync.Mutex
	activeRuns map[string]string
}

// NewOrchestrator constructs an Orchestrator with production defaults.
func NewOrchestrator(api API, binder Binder, assistantID string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		api:           api,
		binder:        binder,
		log:           log.With().Str("component", "runs").Logger(),
		AssistantID:   assistantID,
		SendRetries:   3,
		PollRetries:   3,
		RetryDelay:    time.Second,
		Schedule:      DefaultPollSchedule,
		WallBudget:    2 * time.Minute,
		FallbackReply: DefaultFallbackReply,
	}
}

// Respond submits text to threadID on behalf of identity and resolves the
// assistant's reply. It never returns a raw remote error; failures resolve to
// the best available fallback text.
func (o *Orchestrator) Respond(ctx context.Context, identity, threadID, text string) Result {
	tr := otel.Tracer("runs/Orchestrator")
	ctx, span := tr.Start(ctx, "Respond",
		trace.WithAttributes(attribute.String("thread_id", threadID)),
	)
	defer span.End()

	threadID, ok := o.sendMessage(ctx, identity, threadID, text)
	if !ok {
		return o.fallback(ctx, threadID, "send_failed", nil)
	}
	run, ok := o.startRun(ctx, threadID)
	if !ok {
		return o.fallback(ctx, threadID, "start_failed", nil)
	}
	span.SetAttributes(attribute.String("run_id", run.ID))
	return o.await(ctx, run)
}

// sendMessage posts the user message with a bounded retry budget. A 404 on the
// thread triggers the verify/rebind correction at most once; the (possibly
// replaced) thread id is returned so callers observe the rebind.
func (o *Orchestrator) sendMessage(ctx context.Context, identity, threadID, text string) (string, bool) {
	corrected := false
	var lastErr error
	for attempt := 1; attempt <= o.SendRetries; attempt++ {
		if attempt > 1 && !o.pause(ctx, o.RetryDelay) {
			break
		}
		err := o.api.CreateMessage(ctx, threadID, assistant.RoleUser, text)
		if err == nil {
			return threadID, true
		}
		lastErr = err
		if assistant.IsNotFound(err) && !corrected {
			corrected = true
			if replacement, ok := o.replaceThread(ctx, identity, threadID); ok {
				threadID = replacement
			}
		}
	}
	o.log.Error().Err(lastErr).Str("thread_id", threadID).Msg("message submission exhausted retries")
	return threadID, false
}

// replaceThread confirms the thread is gone and binds the identity to a fresh
// one. A reachable thread means the 404 was anomalous and no rebind happens.
func (o *Orchestrator) replaceThread(ctx context.Context, identity, threadID string) (string, bool) {
	if o.binder.Verify(ctx, threadID) {
		return "", false
	}
	newID, err := o.api.CreateThread(ctx)
	if err != nil {
		o.log.Error().Err(err).Str("identity", identity).Msg("replacement thread creation failed")
		return "", false
	}
	if err := o.binder.Rebind(identity, newID); err != nil {
		o.log.Error().Err(err).Str("identity", identity).Msg("rebind failed")
		return "", false
	}
	return newID, true
}

// startRun cancels any stale active run on the thread, then starts a new run
// with a bounded retry budget.
func (o *Orchestrator) startRun(ctx context.Context, threadID string) (*assistant.Run, bool) {
	o.cancelStale(ctx, threadID)

	var lastErr error
	for attempt := 1; attempt <= o.SendRetries; attempt++ {
		if attempt > 1 && !o.pause(ctx, o.RetryDelay) {
			break
		}
		run, err := o.api.CreateRun(ctx, threadID, o.AssistantID)
		if err == nil {
			o.mu.Lock()
			if o.activeRuns == nil {
				o.activeRuns = make(map[string]string)
			}
			o.activeRuns[threadID] = run.ID
			o.mu.Unlock()
			return run, true
		}
		lastErr = err
	}
	o.log.Error().Err(lastErr).Str("thread_id", threadID).Msg("run creation exhausted retries")
	return nil, false
}

// cancelStale best-effort cancels a previously started run that never reached
// a terminal state, so the remote service will accept a new run on the thread.
func (o *Orchestrator) cancelStale(ctx context.Context, threadID string) {
	o.mu.Lock()
	runID, ok := o.activeRuns[threadID]
	o.mu.Unlock()
	if !ok {
		return
	}

	run, err := o.api.GetRun(ctx, threadID, runID)
	if err == nil && run.Status.Active() {
		if cerr := o.api.CancelRun(ctx, threadID, runID); cerr != nil {
			o.log.Warn().Err(cerr).Str("run_id", runID).Msg("stale run cancel failed")
		} else {
			o.log.Warn().Str("run_id", runID).Str("thread_id", threadID).
				Msg("cancelled stale active run")
		}
	}
	o.clearActive(threadID)
}

// await polls the run to a terminal state. The wait is bounded by the wall
// budget alone; caller disconnects do not abandon an in-flight run.
func (o *Orchestrator) await(ctx context.Context, run *assistant.Run) Result {
	pollCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.WallBudget)
	defer cancel()

	for attempt := 0; ; attempt++ {
		select {
		case <-pollCtx.Done():
			return o.fallback(ctx, run.ThreadID, "timeout",
				fmt.Errorf("run %s did not settle within %s", run.ID, o.WallBudget))
		case <-time.After(o.Schedule.Interval(attempt)):
		}

		cur, err := o.pollOnce(pollCtx, run)
		if err != nil {
			return o.fallback(ctx, run.ThreadID, "poll_failed", err)
		}
		if !cur.Status.Terminal() {
			continue
		}

		o.clearActive(run.ThreadID)
		if cur.Status == assistant.StatusCompleted {
			return o.completed(ctx, cur)
		}
		return o.fallback(ctx, run.ThreadID, "remote_failed",
			fmt.Errorf("run %s ended %s: %s", cur.ID, cur.Status, cur.LastError))
	}
}

// pollOnce fetches the run status, retrying transport failures a small fixed
// number of times before giving up on the wait.
func (o *Orchestrator) pollOnce(ctx context.Context, run *assistant.Run) (*assistant.Run, error) {
	var lastErr error
	for try := 1; try <= o.PollRetries; try++ {
		if try > 1 && !o.pause(ctx, o.RetryDelay) {
			return nil, ctx.Err()
		}
		cur, err := o.api.GetRun(ctx, run.ThreadID, run.ID)
		if err == nil {
			return cur, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// completed extracts the newest assistant message and strips citation markers.
func (o *Orchestrator) completed(ctx context.Context, run *assistant.Run) Result {
	text, ok, err := o.api.LatestAssistantText(ctx, run.ThreadID)
	if err != nil || !ok {
		return o.fallback(ctx, run.ThreadID, "empty_reply", err)
	}
	runOutcomes.WithLabelValues("completed").Inc()
	o.log.Info().Str("run_id", run.ID).Str("thread_id", run.ThreadID).Msg("run completed")
	return Result{Reply: assistant.StripCitations(text), ThreadID: run.ThreadID, Completed: true}
}

// fallback resolves the request without a completed run: prefer whatever
// assistant text already exists on the thread (it may belong to a prior turn),
// otherwise the fixed apologetic reply. The underlying cause is logged, never
// propagated.
func (o *Orchestrator) fallback(ctx context.Context, threadID, outcome string, cause error) Result {
	runOutcomes.WithLabelValues(outcome).Inc()
	o.log.Warn().Err(cause).Str("thread_id", threadID).Str("outcome", outcome).
		Msg("resolving reply via fallback")

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if text, ok, err := o.api.LatestAssistantText(fctx, threadID); err == nil && ok {
		return Result{Reply: assistant.StripCitations(text), ThreadID: threadID}
	}
	return Result{Reply: o.FallbackReply, ThreadID: threadID}
}

// pause sleeps for d or until ctx is done; reports false on cancellation.
func (o *Orchestrator) pause(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) clearActive(threadID string) {
	o.mu.Lock()
	delete(o.activeRuns, threadID)
	o.mu.Unlock()
}
