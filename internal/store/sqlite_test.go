package store

import (
	"context"
	"testing"
	"time"

	"github.com/xiaot623/trialogue/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedThread(t *testing.T, s *SQLiteStore, id, title string) {
	t.Helper()
	now := time.Now()
	err := s.CreateThread(context.Background(), &domain.Thread{
		ThreadID:  id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to create thread: %v", err)
	}
}

func TestCreateAndGetThread(t *testing.T) {
	s := newTestStore(t)
	seedThread(t, s, "thr_a", "New discussion")

	detail, err := s.GetThread(context.Background(), "thr_a")
	if err != nil {
		t.Fatalf("GetThread failed: %v", err)
	}
	if detail == nil {
		t.Fatal("expected thread, got nil")
	}
	if detail.Title != "New discussion" {
		t.Errorf("expected title 'New discussion', got %q", detail.Title)
	}
	if len(detail.Turns) != 0 {
		t.Errorf("expected no turns, got %d", len(detail.Turns))
	}
}

func TestGetThreadMissing(t *testing.T) {
	s := newTestStore(t)

	detail, err := s.GetThread(context.Background(), "thr_missing")
	if err != nil {
		t.Fatalf("GetThread failed: %v", err)
	}
	if detail != nil {
		t.Errorf("expected nil for missing thread, got %+v", detail)
	}
}

func TestListThreadsMostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	seedThread(t, s, "thr_old", "older")
	seedThread(t, s, "thr_new", "newer")

	// Appending a turn touches updated_at, pushing the older thread to the top.
	time.Sleep(5 * time.Millisecond)
	err := s.AppendTurn(context.Background(), &domain.Turn{
		TurnID:    "trn_1",
		ThreadID:  "thr_old",
		Role:      domain.RoleUser,
		Content:   "bump",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	threads, err := s.ListThreads(context.Background())
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads))
	}
	if threads[0].ThreadID != "thr_old" {
		t.Errorf("expected thr_old first, got %s", threads[0].ThreadID)
	}
}

func TestAppendAndGetTurns(t *testing.T) {
	s := newTestStore(t)
	seedThread(t, s, "thr_a", "New discussion")

	base := time.Now()
	turns := []domain.Turn{
		{TurnID: "trn_1", ThreadID: "thr_a", Role: domain.RoleUser, Content: "topic", CreatedAt: base},
		{TurnID: "trn_2", ThreadID: "thr_a", Role: domain.RoleAssistant, Content: "opinion", Model: domain.ModelGPT, CreatedAt: base.Add(time.Second)},
		{TurnID: "trn_3", ThreadID: "thr_a", Role: domain.RoleAssistant, Model: domain.ModelGemini, Fault: "upstream timeout", CreatedAt: base.Add(2 * time.Second)},
	}
	for i := range turns {
		if err := s.AppendTurn(context.Background(), &turns[i]); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	got, err := s.GetTurns(context.Background(), "thr_a")
	if err != nil {
		t.Fatalf("GetTurns failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(got))
	}
	if got[0].TurnID != "trn_1" || got[2].TurnID != "trn_3" {
		t.Errorf("turns out of order: %s, %s, %s", got[0].TurnID, got[1].TurnID, got[2].TurnID)
	}
	if got[1].Model != domain.ModelGPT {
		t.Errorf("expected model gpt, got %q", got[1].Model)
	}
	if got[0].Model != "" {
		t.Errorf("expected empty model on user turn, got %q", got[0].Model)
	}
	if !got[2].Faulted() || got[2].Fault != "upstream timeout" {
		t.Errorf("fault did not survive the round trip: %+v", got[2])
	}
}

func TestDeleteThreadCascades(t *testing.T) {
	s := newTestStore(t)
	seedThread(t, s, "thr_a", "New discussion")
	err := s.AppendTurn(context.Background(), &domain.Turn{
		TurnID: "trn_1", ThreadID: "thr_a", Role: domain.RoleUser, Content: "topic", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	deleted, err := s.DeleteThread(context.Background(), "thr_a")
	if err != nil {
		t.Fatalf("DeleteThread failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected deleted=true")
	}

	turns, err := s.GetTurns(context.Background(), "thr_a")
	if err != nil {
		t.Fatalf("GetTurns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected cascade to remove turns, got %d", len(turns))
	}

	deleted, err = s.DeleteThread(context.Background(), "thr_a")
	if err != nil {
		t.Fatalf("DeleteThread failed: %v", err)
	}
	if deleted {
		t.Error("expected deleted=false for missing thread")
	}
}

func TestUpdateThreadTitle(t *testing.T) {
	s := newTestStore(t)
	seedThread(t, s, "thr_a", "New discussion")

	updated, err := s.UpdateThreadTitle(context.Background(), "thr_a", "Consensus on testing strategy")
	if err != nil {
		t.Fatalf("UpdateThreadTitle failed: %v", err)
	}
	if !updated {
		t.Fatal("expected updated=true")
	}

	detail, err := s.GetThread(context.Background(), "thr_a")
	if err != nil {
		t.Fatalf("GetThread failed: %v", err)
	}
	if detail.Title != "Consensus on testing strategy" {
		t.Errorf("title not updated: %q", detail.Title)
	}

	updated, err = s.UpdateThreadTitle(context.Background(), "thr_missing", "x")
	if err != nil {
		t.Fatalf("UpdateThreadTitle failed: %v", err)
	}
	if updated {
		t.Error("expected updated=false for missing thread")
	}
}
