package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"virtual-courtroom/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "courtroom.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedCase(t *testing.T, s *SQLiteStore) *domain.Case {
	t.Helper()
	c := &domain.Case{
		Title:       "Smith v. Smith",
		CaseType:    "family",
		Description: "Custody dispute",
		Metadata:    map[string]any{"court": "Family Court"},
	}
	if err := s.CreateCase(context.Background(), c); err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	return c
}

func TestSQLiteStore_Case(t *testing.T) {
	s := newTestStore(t)
	c := seedCase(t, s)

	if c.ID == "" {
		t.Fatal("expected generated ID")
	}
	if c.Status != "active" {
		t.Errorf("Status = %q, want active", c.Status)
	}

	got, err := s.GetCase(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.Title != "Smith v. Smith" || got.CaseType != "family" {
		t.Errorf("unexpected case %+v", got)
	}
	if got.Metadata["court"] != "Family Court" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not restored")
	}
}

func TestSQLiteStore_GetCaseNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCase(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_Participants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCase(t, s)

	roster := []*domain.Participant{
		{CaseID: c.ID, Role: domain.RosterClient, AgentType: "client", Name: "John Smith",
			Params: map[string]any{"background": map[string]any{"occupation": "nurse"}}},
		{CaseID: c.ID, Role: domain.RosterJudge, AgentType: "judicial", Name: "Judge Wilson"},
	}
	for _, p := range roster {
		if err := s.AddParticipant(ctx, p); err != nil {
			t.Fatalf("AddParticipant: %v", err)
		}
	}

	list, err := s.ListParticipants(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Name != "John Smith" || list[1].Name != "Judge Wilson" {
		t.Errorf("order = %q, %q", list[0].Name, list[1].Name)
	}
	bg, _ := list[0].Params["background"].(map[string]any)
	if bg["occupation"] != "nurse" {
		t.Errorf("Params = %v", list[0].Params)
	}

	got, err := s.GetParticipant(ctx, roster[1].ID)
	if err != nil {
		t.Fatalf("GetParticipant: %v", err)
	}
	if got.Role != domain.RosterJudge || got.Params != nil {
		t.Errorf("unexpected participant %+v", got)
	}
}

func TestSQLiteStore_UpdateParticipant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCase(t, s)

	p := &domain.Participant{CaseID: c.ID, Role: domain.RosterClient, Name: "John"}
	if err := s.AddParticipant(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.Params = map[string]any{"emotional_state": "anxious"}
	if err := s.UpdateParticipant(ctx, p); err != nil {
		t.Fatalf("UpdateParticipant: %v", err)
	}
	got, err := s.GetParticipant(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Params["emotional_state"] != "anxious" {
		t.Errorf("Params = %v", got.Params)
	}

	err = s.UpdateParticipant(ctx, &domain.Participant{ID: "ghost"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_AddParticipantUnknownCase(t *testing.T) {
	s := newTestStore(t)
	err := s.AddParticipant(context.Background(), &domain.Participant{CaseID: "nope", Name: "X"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_SimulationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCase(t, s)

	sim := &domain.Simulation{CaseID: c.ID, Title: "Hearing", ConversationType: "hearing"}
	if err := s.CreateSimulation(ctx, sim); err != nil {
		t.Fatalf("CreateSimulation: %v", err)
	}
	if sim.Status != domain.SimulationActive {
		t.Errorf("Status = %q, want active", sim.Status)
	}

	ended := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sim.Status = domain.SimulationCompleted
	sim.EndedAt = &ended
	sim.Metadata = map[string]any{"last_scenario": map[string]any{"scenario": "opening"}}
	if err := s.UpdateSimulation(ctx, sim); err != nil {
		t.Fatalf("UpdateSimulation: %v", err)
	}

	got, err := s.GetSimulation(ctx, sim.ID)
	if err != nil {
		t.Fatalf("GetSimulation: %v", err)
	}
	if got.Status != domain.SimulationCompleted {
		t.Errorf("Status = %q", got.Status)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}
	if _, ok := got.Metadata["last_scenario"]; !ok {
		t.Errorf("Metadata = %v", got.Metadata)
	}

	list, err := s.ListSimulations(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListSimulations: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}
}

func TestSQLiteStore_UpdateSimulationNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateSimulation(context.Background(), &domain.Simulation{ID: "ghost", Status: "active"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_Messages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCase(t, s)
	sim := &domain.Simulation{CaseID: c.ID, Title: "Hearing", ConversationType: "hearing"}
	if err := s.CreateSimulation(ctx, sim); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second", "third"} {
		m := &domain.SimulationMessage{
			SimulationID:    sim.ID,
			ParticipantName: "John",
			ParticipantRole: "client",
			Role:            "user",
			Content:         content,
			// Sub-second offsets check ordering is chronological, not lexical.
			Timestamp: base.Add(time.Duration(i) * 100 * time.Millisecond),
		}
		if err := s.AppendMessage(ctx, m); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		if m.ID == "" {
			t.Fatal("expected generated message ID")
		}
	}

	all, err := s.ListMessages(ctx, sim.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(all) != 3 || all[0].Content != "first" || all[2].Content != "third" {
		t.Fatalf("unexpected messages: %d", len(all))
	}

	page, err := s.ListMessages(ctx, sim.ID, 1, 1)
	if err != nil {
		t.Fatalf("ListMessages page: %v", err)
	}
	if len(page) != 1 || page[0].Content != "second" {
		t.Errorf("page = %+v", page)
	}
}

func TestSQLiteStore_AppendMessageUnknownSimulation(t *testing.T) {
	s := newTestStore(t)
	err := s.AppendMessage(context.Background(), &domain.SimulationMessage{SimulationID: "ghost", Content: "x", Role: "user"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_DeleteSimulationCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCase(t, s)
	sim := &domain.Simulation{CaseID: c.ID, Title: "Hearing", ConversationType: "hearing"}
	if err := s.CreateSimulation(ctx, sim); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendMessage(ctx, &domain.SimulationMessage{SimulationID: sim.ID, Role: "user", Content: "hi"}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteSimulation(ctx, sim.ID); err != nil {
		t.Fatalf("DeleteSimulation: %v", err)
	}
	if _, err := s.GetSimulation(ctx, sim.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	msgs, err := s.ListMessages(ctx, sim.ID, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages survived delete: %d", len(msgs))
	}

	if err := s.DeleteSimulation(ctx, sim.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "courtroom.db")
	s1, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	c := seedCase(t, s1)
	s1.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.GetCase(context.Background(), c.ID); err != nil {
		t.Errorf("GetCase after reopen: %v", err)
	}
}
