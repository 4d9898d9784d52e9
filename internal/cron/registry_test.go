package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrder(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	if err := registry.Register(jobA); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := registry.Register(jobB); err != nil {
		t.Fatalf("register b: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "trade-auto-complete"}, nil)
	if err := registry.Register(&stubJob{name: "trade-auto-complete"}); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected 1 job, got %d", len(registry.Jobs()))
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected NewRegistry to panic on duplicates")
		}
	}()
	NewRegistry(&stubJob{name: "x"}, &stubJob{name: "x"})
}

func TestRegistryRejectsBlankName(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubJob{name: "  "}); err == nil {
		t.Fatal("expected blank name to be rejected")
	}
	if len(registry.Jobs()) != 0 {
		t.Fatalf("blank job must not be kept")
	}
}
