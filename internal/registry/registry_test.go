package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/repo"
)

type fakeActionRepo struct {
	actions map[string]domain.Action
}

func newFakeActionRepo() *fakeActionRepo {
	return &fakeActionRepo{actions: make(map[string]domain.Action)}
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
		if filter.Pack != "" && action.Pack != filter.Pack {
			continue
		}
		out = append(out, action)
	}
	return out, nil
}

type fakeRunnerTypeRepo struct {
	runnerTypes map[string]domain.RunnerType
}

func newFakeRunnerTypeRepo() *fakeRunnerTypeRepo {
	return &fakeRunnerTypeRepo{runnerTypes: make(map[string]domain.RunnerType)}
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

func TestResolveAction(t *testing.T) {
	actions := newFakeActionRepo()
	runners := newFakeRunnerTypeRepo()
	disabled := domain.Action{Pack: "default", Name: "my.action", Enabled: false, RunnerType: "noop"}
	if err := actions.Upsert(context.Background(), disabled); err != nil {
		t.Fatalf("seed action: %v", err)
	}

	reg := New(actions, runners)
	if reg == nil {
		t.Fatal("New returned nil for valid repos")
	}

	ref, err := domain.ParseActionReference("default.my.action")
	if err != nil {
		t.Fatalf("parse ref: %v", err)
	}
	got, err := reg.ResolveAction(context.Background(), ref)
	if err != nil {
		t.Fatalf("ResolveAction failed: %v", err)
	}
	// Resolution is pure lookup; a disabled action still resolves.
	if got.Enabled {
		t.Fatal("resolved action should be the stored disabled one")
	}

	missing := domain.ActionReference{Pack: "default", Name: "other"}
	if _, err := reg.ResolveAction(context.Background(), missing); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing action: err=%v, want ErrNotFound", err)
	}

	if _, err := reg.ResolveAction(context.Background(), domain.ActionReference{}); err == nil {
		t.Fatal("invalid reference accepted")
	}
}

func TestResolveRunnerType(t *testing.T) {
	runners := newFakeRunnerTypeRepo()
	rt := domain.RunnerType{Name: "noop", Enabled: true, RunnerModule: "actiond.runners.noop"}
	if err := runners.Upsert(context.Background(), rt); err != nil {
		t.Fatalf("seed runner type: %v", err)
	}

	reg := New(newFakeActionRepo(), runners)

	got, err := reg.ResolveRunnerType(context.Background(), "noop")
	if err != nil {
		t.Fatalf("ResolveRunnerType failed: %v", err)
	}
	if got.RunnerModule != "actiond.runners.noop" {
		t.Fatalf("runner module=%q, want actiond.runners.noop", got.RunnerModule)
	}

	if _, err := reg.ResolveRunnerType(context.Background(), "missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing runner type: err=%v, want ErrNotFound", err)
	}
	if _, err := reg.ResolveRunnerType(context.Background(), ""); err == nil {
		t.Fatal("empty runner type name accepted")
	}
}

func TestNewRejectsNilRepos(t *testing.T) {
	if reg := New(nil, newFakeRunnerTypeRepo()); reg != nil {
		t.Fatal("New accepted nil action repo")
	}
	if reg := New(newFakeActionRepo(), nil); reg != nil {
		t.Fatal("New accepted nil runner type repo")
	}
}
