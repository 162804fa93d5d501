package session

import (
	"testing"

	"github.com/TheSmartAz/zaoya-sub000/internal/model"
)

func TestCreateAndCurrentReturnsCopy(t *testing.T) {
	s := NewStore("")
	s.Create("b1", "p1", model.PhasePlanning)

	got := s.Current()
	if got == nil {
		t.Fatal("expected a session")
	}
	if got.BuildID != "b1" || got.ProjectID != "p1" || got.Phase != model.PhasePlanning {
		t.Fatalf("unexpected session: %+v", got)
	}

	got.BuildID = "mutated"
	if s.Current().BuildID != "b1" {
		t.Fatal("Current must return a copy, not the internal record")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	s.Create("b1", "p1", model.PhaseImplementing)

	s2 := NewStore(dir)
	cp, err := s2.LoadCheckpoint()
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if cp == nil {
		t.Fatal("expected a checkpoint")
	}
	if cp.BuildID != "b1" || cp.ProjectID != "p1" || cp.Phase != model.PhaseImplementing {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}
}

func TestResetRemovesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	s.Create("b1", "p1", model.PhasePlanning)
	s.Reset()

	if s.Current() != nil {
		t.Fatal("expected no session after reset")
	}
	cp, err := s.LoadCheckpoint()
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if cp != nil {
		t.Fatalf("expected no checkpoint after reset, got %+v", cp)
	}
}

func TestSetPhaseValidatesTransition(t *testing.T) {
	s := NewStore("")
	s.Create("b1", "p1", model.PhasePlanning)

	if err := s.SetPhase(model.PhaseImplementing); err != nil {
		t.Fatalf("planning -> implementing should be allowed: %v", err)
	}
	if err := s.SetPhase(model.PhaseReady); err == nil {
		t.Fatal("implementing -> ready should be rejected")
	}
	if err := s.SetPhase(model.PhaseAborted); err != nil {
		t.Fatalf("implementing -> aborted should be allowed: %v", err)
	}
}

func TestApplySnapshotWinsButKeepsHistory(t *testing.T) {
	s := NewStore("")
	s.Create("b1", "p1", model.PhasePlanning)
	s.AppendHistory("note", "local detail")
	before := len(s.Current().History)

	snap := &model.BuildSession{
		BuildID:   "b1",
		ProjectID: "p1",
		Phase:     model.PhaseVerifying,
		Graph: model.BuildGraph{
			Tasks: []model.Task{{ID: "t1", Title: "Home page", Status: model.TaskDone}},
		},
	}
	got := s.ApplySnapshot(snap)

	if got.Phase != model.PhaseVerifying {
		t.Fatalf("phase = %s, want verifying", got.Phase)
	}
	if len(got.Graph.Tasks) != 1 {
		t.Fatalf("graph should be replaced wholesale, got %+v", got.Graph)
	}
	// local history survives the snapshot and gains a phase entry
	if len(got.History) < before+1 {
		t.Fatalf("history shrank: before=%d after=%d", before, len(got.History))
	}
}

func TestAttachReportsReplaceWholesale(t *testing.T) {
	s := NewStore("")
	s.Create("b1", "p1", model.PhaseVerifying)

	first := &model.ValidationReport{Passed: false, Errors: []string{"missing title"}}
	if err := s.AttachValidation(first); err != nil {
		t.Fatalf("AttachValidation: %v", err)
	}
	second := &model.ValidationReport{Passed: true}
	if err := s.AttachValidation(second); err != nil {
		t.Fatalf("AttachValidation: %v", err)
	}

	got := s.Current().LastValidation
	if got == nil || !got.Passed || len(got.Errors) != 0 {
		t.Fatalf("report should be replaced, not merged: %+v", got)
	}
}

func TestOpsWithoutSession(t *testing.T) {
	s := NewStore("")
	if err := s.SetPhase(model.PhaseReady); err != ErrNoSession {
		t.Fatalf("SetPhase err = %v, want ErrNoSession", err)
	}
	if err := s.AppendHistory("x", ""); err != ErrNoSession {
		t.Fatalf("AppendHistory err = %v, want ErrNoSession", err)
	}
}
