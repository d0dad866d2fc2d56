package executions

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/events"
	"github.com/runforge-labs/actiond/internal/params"
	"github.com/runforge-labs/actiond/internal/registry"
	"github.com/runforge-labs/actiond/internal/repo"
	"github.com/runforge-labs/actiond/internal/runner"
)

type fakeActionRepo struct {
	actions map[string]domain.Action
}

func (r *fakeActionRepo) Upsert(ctx context.Context, action domain.Action) error {
	r.actions[action.Ref().String()] = action
	return nil
}

func (r *fakeActionRepo) Get(ctx context.Context, ref domain.ActionReference) (domain.Action, error) {
	action, ok := r.actions[ref.String()]
	if !ok {
		return domain.Action{}, repo.ErrNotFound
	}
	return action, nil
}

func (r *fakeActionRepo) List(ctx context.Context, filter repo.ActionFilter) ([]domain.Action, error) {
	out := make([]domain.Action, 0, len(r.actions))
	for _, action := range r.actions {
		out = append(out, action)
	}
	return out, nil
}

type fakeRunnerTypeRepo struct {
	runnerTypes map[string]domain.RunnerType
}

func (r *fakeRunnerTypeRepo) Upsert(ctx context.Context, rt domain.RunnerType) error {
	r.runnerTypes[rt.Name] = rt
	return nil
}

func (r *fakeRunnerTypeRepo) Get(ctx context.Context, name string) (domain.RunnerType, error) {
	rt, ok := r.runnerTypes[name]
	if !ok {
		return domain.RunnerType{}, repo.ErrNotFound
	}
	return rt, nil
}

func (r *fakeRunnerTypeRepo) List(ctx context.Context, filter repo.RunnerTypeFilter) ([]domain.RunnerType, error) {
	out := make([]domain.RunnerType, 0, len(r.runnerTypes))
	for _, rt := range r.runnerTypes {
		out = append(out, rt)
	}
	return out, nil
}

// fakeLiveActionRepo applies the same conditional-write contract as the
// postgres store: UpdateStatus moves the record from exactly `from` or
// fails with ErrStatusConflict.
type fakeLiveActionRepo struct {
	records map[string]domain.LiveAction
}

func newFakeLiveActionRepo() *fakeLiveActionRepo {
	return &fakeLiveActionRepo{records: make(map[string]domain.LiveAction)}
}

func (r *fakeLiveActionRepo) Create(ctx context.Context, la domain.LiveAction) error {
	if _, exists := r.records[la.ID]; exists {
		return errors.New("duplicate id")
	}
	r.records[la.ID] = la
	return nil
}

func (r *fakeLiveActionRepo) Get(ctx context.Context, id string) (domain.LiveAction, error) {
	la, ok := r.records[id]
	if !ok {
		return domain.LiveAction{}, repo.ErrNotFound
	}
	return la, nil
}

func (r *fakeLiveActionRepo) UpdateStatus(ctx context.Context, id string, from, to domain.Status, result domain.Metadata, endedAt *time.Time) error {
	la, ok := r.records[id]
	if !ok {
		return repo.ErrNotFound
	}
	if la.Status != from {
		return repo.ErrStatusConflict
	}
	la.Status = to
	if result != nil {
		la.Result = result
	}
	if endedAt != nil {
		la.EndTimestamp = endedAt
	}
	r.records[id] = la
	return nil
}

type capturingPublisher struct {
	events []events.TransitionEvent
	err    error
}

func (p *capturingPublisher) Publish(ctx context.Context, event events.TransitionEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type stubRunner struct {
	result domain.Metadata
	err    error
}

func (r *stubRunner) Dispatch(ctx context.Context, la domain.LiveAction) (domain.Metadata, error) {
	return r.result, r.err
}

type fixture struct {
	svc         *Service
	actions     *fakeActionRepo
	liveActions *fakeLiveActionRepo
	publisher   *capturingPublisher
	container   *runner.Container
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	actions := &fakeActionRepo{actions: make(map[string]domain.Action)}
	runnerTypes := &fakeRunnerTypeRepo{runnerTypes: make(map[string]domain.RunnerType)}
	ctx := context.Background()

	if err := runnerTypes.Upsert(ctx, domain.RunnerType{
		Name:         "local-shell-script",
		Enabled:      true,
		RunnerModule: "test.runners.shell",
		RunnerParameters: domain.ParameterSchema{
			"hosts": {"type": "string"},
			"cmd":   {"type": "string"},
		},
	}); err != nil {
		t.Fatalf("seed runner type: %v", err)
	}
	if err := actions.Upsert(ctx, domain.Action{
		Pack:       "default",
		Name:       "my.action",
		Enabled:    true,
		RunnerType: "local-shell-script",
		Parameters: domain.ParameterSchema{
			"a": {"type": "string", "default": "abc"},
		},
		Notify: domain.NotificationSpec{
			"on_complete": {Message: "done", Channels: []string{"exec"}},
		},
	}); err != nil {
		t.Fatalf("seed action: %v", err)
	}

	liveActions := newFakeLiveActionRepo()
	publisher := &capturingPublisher{}
	svc := New(registry.New(actions, runnerTypes), liveActions, publisher, nil, slog.Default())
	if svc == nil {
		t.Fatal("New returned nil for valid arguments")
	}
	svc.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	svc.newID = func() string { return "la-fixed" }

	return &fixture{
		svc:         svc,
		actions:     actions,
		liveActions: liveActions,
		publisher:   publisher,
		container:   runner.NewContainer(),
	}
}

func (f *fixture) registerRunner(t *testing.T, r runner.Runner) {
	t.Helper()
	if err := f.container.Register("test.runners.shell", func() (runner.Runner, error) {
		return r, nil
	}); err != nil {
		t.Fatalf("register runner: %v", err)
	}
}

func (f *fixture) assertTransitions(t *testing.T, want ...[2]domain.Status) {
	t.Helper()
	if len(f.publisher.events) != len(want) {
		t.Fatalf("published %d events, want %d: %v", len(f.publisher.events), len(want), f.publisher.events)
	}
	for i, pair := range want {
		got := f.publisher.events[i]
		if got.OldStatus != pair[0] || got.NewStatus != pair[1] {
			t.Fatalf("event %d is %s -> %s, want %s -> %s", i, got.OldStatus, got.NewStatus, pair[0], pair[1])
		}
	}
}

func TestScheduleSuccess(t *testing.T) {
	f := newFixture(t)

	la, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		Action:     "default.my.action",
		Context:    domain.Metadata{"user": "stanley"},
		Parameters: domain.Metadata{"hosts": "127.0.0.1", "cmd": "uptime"},
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	if la.ID != "la-fixed" {
		t.Fatalf("id=%q, want generated id", la.ID)
	}
	if la.Status != domain.StatusScheduled {
		t.Fatalf("status=%q, want scheduled", la.Status)
	}
	if la.StartTimestamp.IsZero() {
		t.Fatal("start timestamp not set")
	}
	if la.EndTimestamp != nil {
		t.Fatal("end timestamp set on a scheduled record")
	}
	if got := la.Parameters["a"]; got != "abc" {
		t.Fatalf("parameter a=%v, want default abc", got)
	}
	if got := la.Context["user"]; got != "stanley" {
		t.Fatalf("context user=%v, want stanley", got)
	}
	if _, ok := la.Notify["on_complete"]; !ok {
		t.Fatal("notify spec not copied onto the record")
	}

	stored, err := f.liveActions.Get(context.Background(), la.ID)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if stored.Status != domain.StatusScheduled {
		t.Fatalf("persisted status=%q, want scheduled", stored.Status)
	}

	f.assertTransitions(t, [2]domain.Status{"", domain.StatusScheduled})
}

func TestScheduleInvalidParameters(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		Action:     "default.my.action",
		Parameters: domain.Metadata{"a": 123},
	})

	var verr *params.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err=%v, want *params.ValidationError", err)
	}
	if len(f.liveActions.records) != 0 {
		t.Fatal("admission failure persisted a record")
	}
	f.assertTransitions(t)
}

func TestScheduleUnknownAction(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Schedule(context.Background(), ScheduleRequest{Action: "default.missing"})

	var notFound *ActionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%v, want *ActionNotFoundError", err)
	}
	if len(f.liveActions.records) != 0 {
		t.Fatal("admission failure persisted a record")
	}
}

func TestScheduleDisabledAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	action := f.actions.actions["default.my.action"]
	action.Enabled = false
	if err := f.actions.Upsert(ctx, action); err != nil {
		t.Fatalf("disable action: %v", err)
	}

	_, err := f.svc.Schedule(ctx, ScheduleRequest{Action: "default.my.action"})

	var disabled *ActionDisabledError
	if !errors.As(err, &disabled) {
		t.Fatalf("err=%v, want *ActionDisabledError", err)
	}
	if len(f.liveActions.records) != 0 {
		t.Fatal("admission failure persisted a record")
	}
}

func TestScheduleUnknownRunnerType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	action := f.actions.actions["default.my.action"]
	action.RunnerType = "retired-runner"
	if err := f.actions.Upsert(ctx, action); err != nil {
		t.Fatalf("repoint action: %v", err)
	}

	_, err := f.svc.Schedule(ctx, ScheduleRequest{Action: "default.my.action"})

	var missing *RunnerTypeNotFoundError
	if !errors.As(err, &missing) {
		t.Fatalf("err=%v, want *RunnerTypeNotFoundError", err)
	}
	if len(f.liveActions.records) != 0 {
		t.Fatal("admission failure persisted a record")
	}
}

func TestScheduleInvalidReference(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.Schedule(context.Background(), ScheduleRequest{Action: "nodots"}); err == nil {
		t.Fatal("malformed action reference accepted")
	}
	if len(f.liveActions.records) != 0 {
		t.Fatal("admission failure persisted a record")
	}
}

func TestExecuteSuccess(t *testing.T) {
	f := newFixture(t)
	f.registerRunner(t, &stubRunner{result: domain.Metadata{"key": "value"}})

	la, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		Action:     "default.my.action",
		Parameters: domain.Metadata{"cmd": "uptime"},
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	result, err := f.svc.Execute(context.Background(), la, f.container)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result["key"] != "value" {
		t.Fatalf("result=%v, want runner payload", result)
	}

	stored, err := f.liveActions.Get(context.Background(), la.ID)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if stored.Status != domain.StatusSucceeded {
		t.Fatalf("status=%q, want succeeded", stored.Status)
	}
	if stored.EndTimestamp == nil {
		t.Fatal("terminal record has no end timestamp")
	}
	if stored.Result["key"] != "value" {
		t.Fatalf("persisted result=%v, want runner payload", stored.Result)
	}

	f.assertTransitions(t,
		[2]domain.Status{"", domain.StatusScheduled},
		[2]domain.Status{domain.StatusScheduled, domain.StatusRunning},
		[2]domain.Status{domain.StatusRunning, domain.StatusSucceeded},
	)
}

func TestExecuteDispatchFault(t *testing.T) {
	boom := errors.New("runner exploded")
	f := newFixture(t)
	f.registerRunner(t, &stubRunner{err: boom})

	la, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		Action:     "default.my.action",
		Parameters: domain.Metadata{"cmd": "uptime"},
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	// Dual signal: the fault is committed to the record and returned to
	// the caller unchanged.
	_, err = f.svc.Execute(context.Background(), la, f.container)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want the dispatch fault", err)
	}

	stored, err := f.liveActions.Get(context.Background(), la.ID)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if stored.Status != domain.StatusFailed {
		t.Fatalf("status=%q, want failed", stored.Status)
	}
	if stored.EndTimestamp == nil {
		t.Fatal("terminal record has no end timestamp")
	}
	if stored.Result["failure_kind"] != "fault" {
		t.Fatalf("failure_kind=%v, want fault", stored.Result["failure_kind"])
	}
	if msg, _ := stored.Result["error"].(string); msg == "" {
		t.Fatal("error envelope carries no message")
	}

	f.assertTransitions(t,
		[2]domain.Status{"", domain.StatusScheduled},
		[2]domain.Status{domain.StatusScheduled, domain.StatusRunning},
		[2]domain.Status{domain.StatusRunning, domain.StatusFailed},
	)
}

func TestExecuteNilResult(t *testing.T) {
	f := newFixture(t)
	f.registerRunner(t, &stubRunner{})

	la, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		Action:     "default.my.action",
		Parameters: domain.Metadata{"cmd": "uptime"},
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	_, err = f.svc.Execute(context.Background(), la, f.container)
	var noResult *NoResultError
	if !errors.As(err, &noResult) {
		t.Fatalf("err=%v, want *NoResultError", err)
	}

	stored, err := f.liveActions.Get(context.Background(), la.ID)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if stored.Status != domain.StatusFailed {
		t.Fatalf("status=%q, want failed", stored.Status)
	}
	if stored.Result["failure_kind"] != "no_result" {
		t.Fatalf("failure_kind=%v, want no_result", stored.Result["failure_kind"])
	}
}

func TestExecuteRejectsTerminalRecord(t *testing.T) {
	f := newFixture(t)
	f.registerRunner(t, &stubRunner{result: domain.Metadata{"key": "value"}})

	ended := time.Unix(1700000100, 0).UTC()
	la := domain.LiveAction{
		ID:             "la-done",
		Action:         "default.my.action",
		Status:         domain.StatusSucceeded,
		StartTimestamp: time.Unix(1700000000, 0).UTC(),
		EndTimestamp:   &ended,
	}
	if err := f.liveActions.Create(context.Background(), la); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	if _, err := f.svc.Execute(context.Background(), la, f.container); err == nil {
		t.Fatal("terminal record accepted for execution")
	}

	stored, err := f.liveActions.Get(context.Background(), la.ID)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if stored.Status != domain.StatusSucceeded {
		t.Fatalf("status=%q, terminal record must not move", stored.Status)
	}
	f.assertTransitions(t)
}

func TestExecuteStatusConflict(t *testing.T) {
	f := newFixture(t)
	f.registerRunner(t, &stubRunner{result: domain.Metadata{"key": "value"}})

	la, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		Action:     "default.my.action",
		Parameters: domain.Metadata{"cmd": "uptime"},
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	// A racing worker claimed the record first.
	if err := f.liveActions.UpdateStatus(context.Background(), la.ID, domain.StatusScheduled, domain.StatusRunning, nil, nil); err != nil {
		t.Fatalf("simulate racing claim: %v", err)
	}

	_, err = f.svc.Execute(context.Background(), la, f.container)
	if !errors.Is(err, repo.ErrStatusConflict) {
		t.Fatalf("err=%v, want ErrStatusConflict", err)
	}

	stored, err := f.liveActions.Get(context.Background(), la.ID)
	if err != nil {
		t.Fatalf("record lookup failed: %v", err)
	}
	if stored.Status != domain.StatusRunning {
		t.Fatalf("status=%q, the racing worker's claim must stand", stored.Status)
	}
}

func TestExecuteRequiresContainer(t *testing.T) {
	f := newFixture(t)

	la := domain.LiveAction{ID: "la-1", Action: "default.my.action", Status: domain.StatusScheduled}
	if _, err := f.svc.Execute(context.Background(), la, nil); err == nil {
		t.Fatal("nil container accepted")
	}
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)

	la, err := f.svc.Schedule(context.Background(), ScheduleRequest{
		Action:     "default.my.action",
		Parameters: domain.Metadata{"cmd": "uptime"},
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	got, err := f.svc.GetByID(context.Background(), la.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ID != la.ID {
		t.Fatalf("id=%q, want %q", got.ID, la.ID)
	}

	if _, err := f.svc.GetByID(context.Background(), "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing record: err=%v, want ErrNotFound", err)
	}
}
