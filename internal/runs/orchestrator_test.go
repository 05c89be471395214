package runs

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rsh-ai/assistant-backend/internal/assistant"
)

// ----- Fake remote API -----

type fakeRunAPI struct {
	mu sync.Mutex

	createThreadIDs   []string
	createThreadCalls int

	// msgErrs is a per-thread queue of CreateMessage results; exhausted
	// queues succeed.
	msgErrs  map[string][]error
	msgCalls map[string]int

	runIDs        []string
	createRunErrs []error
	runCalls      int

	// statuses is a per-run status script; the last entry repeats.
	statuses    map[string][]assistant.RunStatus
	getRunErrs  map[string][]error
	getRunCalls map[string]int

	cancelCalls map[string]int

	latestText map[string]string
	latestErr  error
}

func newFakeRunAPI() *fakeRunAPI {
	return &fakeRunAPI{
		msgErrs:     map[string][]error{},
		msgCalls:    map[string]int{},
		statuses:    map[string][]assistant.RunStatus{},
		getRunErrs:  map[string][]error{},
		getRunCalls: map[string]int{},
		cancelCalls: map[string]int{},
		latestText:  map[string]string{},
	}
}

func (f *fakeRunAPI) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createThreadCalls++
	if len(f.createThreadIDs) > 0 {
		id := f.createThreadIDs[0]
		f.createThreadIDs = f.createThreadIDs[1:]
		return id, nil
	}
	return "thread_fresh", nil
}

func (f *fakeRunAPI) CreateMessage(ctx context.Context, threadID, role, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgCalls[threadID]++
	if q := f.msgErrs[threadID]; len(q) > 0 {
		err := q[0]
		f.msgErrs[threadID] = q[1:]
		return err
	}
	return nil
}

func (f *fakeRunAPI) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	if len(f.createRunErrs) > 0 {
		err := f.createRunErrs[0]
		f.createRunErrs = f.createRunErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	id := "run_1"
	if len(f.runIDs) > 0 {
		id = f.runIDs[0]
		f.runIDs = f.runIDs[1:]
	}
	return &assistant.Run{ID: id, ThreadID: threadID, Status: assistant.StatusQueued}, nil
}

func (f *fakeRunAPI) GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getRunCalls[runID]++
	if q := f.getRunErrs[runID]; len(q) > 0 {
		err := q[0]
		f.getRunErrs[runID] = q[1:]
		if err != nil {
			return nil, err
		}
	}
	script := f.statuses[runID]
	if len(script) == 0 {
		return &assistant.Run{ID: runID, ThreadID: threadID, Status: assistant.StatusQueued}, nil
	}
	status := script[0]
	if len(script) > 1 {
		f.statuses[runID] = script[1:]
	}
	return &assistant.Run{ID: runID, ThreadID: threadID, Status: status}, nil
}

func (f *fakeRunAPI) CancelRun(ctx context.Context, threadID, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls[runID]++
	return nil
}

func (f *fakeRunAPI) LatestAssistantText(ctx context.Context, threadID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return "", false, f.latestErr
	}
	text, ok := f.latestText[threadID]
	return text, ok, nil
}

// ----- Fake registry -----

type fakeBinder struct {
	mu          sync.Mutex
	reachable   bool
	verifyCalls int
	rebinds     map[string]string
}

func (b *fakeBinder) Verify(ctx context.Context, threadID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verifyCalls++
	return b.reachable
}

func (b *fakeBinder) Rebind(identity, newThreadID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rebinds == nil {
		b.rebinds = map[string]string{}
	}
	b.rebinds[identity] = newThreadID
	return nil
}

func notFound() error {
	return &assistant.APIError{Status: http.StatusNotFound, Code: "not_found", Message: "no thread"}
}

func newTestOrchestrator(api API, binder Binder) *Orchestrator {
	o := NewOrchestrator(api, binder, "asst_test", zerolog.Nop())
	o.RetryDelay = time.Millisecond
	o.Schedule = PollSchedule{Initial: time.Millisecond, Growth: 1, Max: time.Millisecond}
	o.WallBudget = 250 * time.Millisecond
	return o
}

// ----- Tests -----

func TestRespondCompletedStripsCitations(t *testing.T) {
	api := newFakeRunAPI()
	api.statuses["run_1"] = []assistant.RunStatus{
		assistant.StatusQueued, assistant.StatusInProgress, assistant.StatusCompleted,
	}
	api.latestText["thread_a"] = "Answer 【12:34†source】 more text"
	o := newTestOrchestrator(api, &fakeBinder{reachable: true})

	res := o.Respond(context.Background(), "628123", "thread_a", "hello")
	if !res.Completed {
		t.Fatal("expected completed resolution")
	}
	if res.Reply != "Answer  more text" {
		t.Fatalf("reply = %q", res.Reply)
	}
	if res.ThreadID != "thread_a" {
		t.Fatalf("thread = %q", res.ThreadID)
	}
	if api.msgCalls["thread_a"] != 1 || api.runCalls != 1 {
		t.Fatalf("msg calls = %d, run calls = %d; want 1 each",
			api.msgCalls["thread_a"], api.runCalls)
	}
}

func TestRespondFailedRunFallsBackToPriorReply(t *testing.T) {
	api := newFakeRunAPI()
	api.statuses["run_1"] = []assistant.RunStatus{assistant.StatusFailed}
	api.latestText["thread_a"] = "earlier answer"
	o := newTestOrchestrator(api, &fakeBinder{reachable: true})

	res := o.Respond(context.Background(), "628123", "thread_a", "hello")
	if res.Completed {
		t.Fatal("failed run must not report completed")
	}
	if res.Reply != "earlier answer" {
		t.Fatalf("reply = %q, want the prior assistant text", res.Reply)
	}
}

func TestRespondFailedRunWithEmptyThreadUsesFixedFallback(t *testing.T) {
	api := newFakeRunAPI()
	api.statuses["run_1"] = []assistant.RunStatus{assistant.StatusExpired}
	o := newTestOrchestrator(api, &fakeBinder{reachable: true})

	res := o.Respond(context.Background(), "628123", "thread_a", "hello")
	if res.Reply != DefaultFallbackReply {
		t.Fatalf("reply = %q, want the fixed fallback", res.Reply)
	}
}

func TestRespondTimeoutDoesNotPollForever(t *testing.T) {
	api := newFakeRunAPI()
	// No script: the run stays queued forever.
	o := newTestOrchestrator(api, &fakeBinder{reachable: true})
	o.WallBudget = 30 * time.Millisecond

	done := make(chan Result, 1)
	go func() { done <- o.Respond(context.Background(), "628123", "thread_a", "hello") }()

	select {
	case res := <-done:
		if res.Completed {
			t.Fatal("timed-out run must not report completed")
		}
		if res.Reply != DefaultFallbackReply {
			t.Fatalf("reply = %q, want the fixed fallback", res.Reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Respond did not terminate within the wall budget")
	}
	if api.getRunCalls["run_1"] == 0 {
		t.Fatal("expected at least one status poll")
	}
}

func TestRespondRetriesTransientSendFailures(t *testing.T) {
	api := newFakeRunAPI()
	transient := errors.New("connection reset")
	api.msgErrs["thread_a"] = []error{transient, transient}
	api.statuses["run_1"] = []assistant.RunStatus{assistant.StatusCompleted}
	api.latestText["thread_a"] = "ok"
	o := newTestOrchestrator(api, &fakeBinder{reachable: true})

	res := o.Respond(context.Background(), "628123", "thread_a", "hello")
	if !res.Completed || res.Reply != "ok" {
		t.Fatalf("result = %+v", res)
	}
	if api.msgCalls["thread_a"] != 3 {
		t.Fatalf("send attempts = %d, want 3", api.msgCalls["thread_a"])
	}
}

func TestRespondCorrectsLostThreadOnce(t *testing.T) {
	api := newFakeRunAPI()
	api.msgErrs["thread_old"] = []error{notFound(), notFound(), notFound()}
	api.createThreadIDs = []string{"thread_new"}
	api.statuses["run_1"] = []assistant.RunStatus{assistant.StatusCompleted}
	api.latestText["thread_new"] = "fresh answer"
	binder := &fakeBinder{reachable: false}
	o := newTestOrchestrator(api, binder)

	res := o.Respond(context.Background(), "628123", "thread_old", "hello")
	if !res.Completed || res.Reply != "fresh answer" {
		t.Fatalf("result = %+v", res)
	}
	if res.ThreadID != "thread_new" {
		t.Fatalf("thread = %q, want the replacement thread", res.ThreadID)
	}
	if api.createThreadCalls != 1 {
		t.Fatalf("replacement threads created = %d, want 1", api.createThreadCalls)
	}
	if binder.rebinds["628123"] != "thread_new" {
		t.Fatalf("rebinds = %v", binder.rebinds)
	}
}

func TestRespondNeverCorrectsTwice(t *testing.T) {
	api := newFakeRunAPI()
	// Every send 404s, including against the replacement thread.
	api.msgErrs["thread_old"] = []error{notFound(), notFound(), notFound()}
	api.msgErrs["thread_fresh"] = []error{notFound(), notFound(), notFound()}
	binder := &fakeBinder{reachable: false}
	o := newTestOrchestrator(api, binder)

	res := o.Respond(context.Background(), "628123", "thread_old", "hello")
	if res.Completed {
		t.Fatal("unsendable request must resolve via fallback")
	}
	if res.Reply != DefaultFallbackReply {
		t.Fatalf("reply = %q, want the fixed fallback", res.Reply)
	}
	if api.createThreadCalls != 1 {
		t.Fatalf("replacement threads created = %d, want exactly 1", api.createThreadCalls)
	}
	if api.runCalls != 0 {
		t.Fatalf("run started despite failed send: %d", api.runCalls)
	}
}

func TestRespondReachableThreadIsNotRebound(t *testing.T) {
	api := newFakeRunAPI()
	// A single anomalous 404, then sends succeed against the same thread.
	api.msgErrs["thread_a"] = []error{notFound()}
	api.statuses["run_1"] = []assistant.RunStatus{assistant.StatusCompleted}
	api.latestText["thread_a"] = "ok"
	binder := &fakeBinder{reachable: true}
	o := newTestOrchestrator(api, binder)

	res := o.Respond(context.Background(), "628123", "thread_a", "hello")
	if !res.Completed || res.ThreadID != "thread_a" {
		t.Fatalf("result = %+v", res)
	}
	if binder.verifyCalls != 1 {
		t.Fatalf("verify calls = %d, want 1", binder.verifyCalls)
	}
	if len(binder.rebinds) != 0 {
		t.Fatalf("unexpected rebinds: %v", binder.rebinds)
	}
	if api.createThreadCalls != 0 {
		t.Fatalf("replacement threads created = %d, want 0", api.createThreadCalls)
	}
}

func TestRespondRetriesPollTransportFailures(t *testing.T) {
	api := newFakeRunAPI()
	api.getRunErrs["run_1"] = []error{errors.New("timeout"), errors.New("timeout")}
	api.statuses["run_1"] = []assistant.RunStatus{assistant.StatusCompleted}
	api.latestText["thread_a"] = "ok"
	o := newTestOrchestrator(api, &fakeBinder{reachable: true})

	res := o.Respond(context.Background(), "628123", "thread_a", "hello")
	if !res.Completed || res.Reply != "ok" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRespondCancelsStaleRunBeforeStartingNew(t *testing.T) {
	api := newFakeRunAPI()
	api.runIDs = []string{"run_1", "run_2"}
	// run_1 never settles; run_2 completes.
	api.statuses["run_2"] = []assistant.RunStatus{assistant.StatusCompleted}
	api.latestText["thread_a"] = "second answer"
	o := newTestOrchestrator(api, &fakeBinder{reachable: true})
	o.WallBudget = 30 * time.Millisecond

	first := o.Respond(context.Background(), "628123", "thread_a", "hello")
	if first.Completed {
		t.Fatal("first request should time out")
	}

	o.WallBudget = 250 * time.Millisecond
	second := o.Respond(context.Background(), "628123", "thread_a", "again")
	if !second.Completed || second.Reply != "second answer" {
		t.Fatalf("second result = %+v", second)
	}
	if api.cancelCalls["run_1"] != 1 {
		t.Fatalf("stale run cancels = %d, want 1", api.cancelCalls["run_1"])
	}
}
