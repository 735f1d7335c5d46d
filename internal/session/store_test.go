package session

import (
	"fmt"
	"testing"
)

func TestGetCreatesSession(t *testing.T) {
	s := NewStore(0)
	if h := s.Get("s1"); len(h) != 0 {
		t.Fatalf("expected empty history, got %d turns", len(h))
	}
	if s.Count() != 1 {
		t.Fatalf("expected session to be created on read, count=%d", s.Count())
	}
}

func TestAppendRoundTrip(t *testing.T) {
	s := NewStore(0)
	s.Append("s1", RoleUser, "debug", "why does this throw?")
	s.Append("s1", RoleAssistant, "", "because x is nil")
	h := s.Get("s1")
	if len(h) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(h))
	}
	if h[0].Role != RoleUser || h[0].Content != "why does this throw?" || h[0].Task != "debug" {
		t.Fatalf("unexpected first turn: %+v", h[0])
	}
	if h[1].Role != RoleAssistant || h[1].Content != "because x is nil" {
		t.Fatalf("unexpected second turn: %+v", h[1])
	}
	if h[0].Timestamp.IsZero() || h[1].Timestamp.IsZero() {
		t.Fatalf("timestamps not set")
	}
}

func TestEvictionKeepsMostRecent(t *testing.T) {
	s := NewStore(20)
	for i := 0; i < 25; i++ {
		s.Append("s1", RoleUser, "chat", fmt.Sprintf("msg-%d", i))
	}
	h := s.Get("s1")
	if len(h) != 20 {
		t.Fatalf("expected history capped at 20, got %d", len(h))
	}
	if h[0].Content != "msg-5" || h[19].Content != "msg-24" {
		t.Fatalf("expected FIFO eviction preserving order, got first=%q last=%q", h[0].Content, h[19].Content)
	}
}

func TestEvictionAtExactCap(t *testing.T) {
	s := NewStore(20)
	for i := 0; i < 20; i++ {
		s.Append("s1", RoleUser, "chat", fmt.Sprintf("msg-%d", i))
	}
	s.Append("s1", RoleUser, "chat", "msg-20")
	h := s.Get("s1")
	if len(h) != 20 {
		t.Fatalf("expected length to stay 20, got %d", len(h))
	}
	if h[0].Content != "msg-1" {
		t.Fatalf("oldest turn should be evicted, got first=%q", h[0].Content)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore(0)
	s.Append("s1", RoleUser, "chat", "hello")
	h := s.Get("s1")
	h[0].Content = "mutated"
	if got := s.Get("s1")[0].Content; got != "hello" {
		t.Fatalf("store history mutated through returned slice: %q", got)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := NewStore(0)
	s.Delete("nope")
	if s.Count() != 0 {
		t.Fatalf("delete of unknown session changed state")
	}
	s.Append("s1", RoleUser, "chat", "hi")
	s.RecordFeature("s1", "auth")
	s.Delete("s1")
	if s.Count() != 0 || s.ProjectCount() != 0 {
		t.Fatalf("delete did not remove history and project")
	}
	s.Delete("s1")
}

func TestIDsSorted(t *testing.T) {
	s := NewStore(0)
	s.Append("b", RoleUser, "chat", "1")
	s.Append("a", RoleUser, "chat", "2")
	ids := s.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestProjectRecord(t *testing.T) {
	s := NewStore(0)
	if _, ok := s.Project("s1"); ok {
		t.Fatalf("expected no project before first feature")
	}
	s.RecordFeature("s1", "login")
	s.RecordFeature("s1", "signup")
	p, ok := s.Project("s1")
	if !ok {
		t.Fatalf("expected project record")
	}
	if len(p.Features) != 2 || p.Features[0].Name != "login" || p.Features[1].Name != "signup" {
		t.Fatalf("unexpected features: %+v", p.Features)
	}
	if p.Started.IsZero() {
		t.Fatalf("project start not recorded")
	}
	if s.ProjectCount() != 1 {
		t.Fatalf("project count=%d", s.ProjectCount())
	}
}
