package repo

import (
	"context"
	"testing"

	"github.com/claimlens/claimlens/engine/domain"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPrecedentRepo_SaveLoad(t *testing.T) {
	repo := NewPrecedentRepo(testDB(t))
	ctx := context.Background()

	p := domain.PrecedentCase{
		CaseID:         "CASE-001",
		ClaimType:      "flood",
		State:          "Florida",
		ClaimAmount:    45000,
		Status:         "approved",
		DecisionReason: "documented water damage with photos",
		KeyFactors:     []string{"photos", "prompt notice"},
		Timestamp:      "2026-08-01T10:00:00Z",
	}
	id, err := repo.Save(ctx, p)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == 0 {
		t.Error("Save returned zero row ID")
	}

	cases, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cases) != 1 {
		t.Fatalf("loaded %d cases, want 1", len(cases))
	}
	got := cases[0]
	if got.ID != id || got.CaseID != p.CaseID || got.ClaimAmount != p.ClaimAmount {
		t.Errorf("loaded %+v, want fields of %+v with id %d", got, p, id)
	}
	if len(got.KeyFactors) != 2 || got.KeyFactors[0] != "photos" {
		t.Errorf("KeyFactors = %v", got.KeyFactors)
	}
}

func TestPrecedentRepo_LoadOrder(t *testing.T) {
	repo := NewPrecedentRepo(testDB(t))
	ctx := context.Background()

	for _, caseID := range []string{"CASE-001", "CASE-002", "CASE-003"} {
		if _, err := repo.Save(ctx, domain.PrecedentCase{
			CaseID:    caseID,
			ClaimType: "fire",
			State:     "Texas",
			Status:    "rejected",
			Timestamp: "2026-08-01T10:00:00Z",
		}); err != nil {
			t.Fatalf("Save %s: %v", caseID, err)
		}
	}

	cases, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cases) != 3 {
		t.Fatalf("loaded %d cases, want 3", len(cases))
	}
	for i, want := range []string{"CASE-001", "CASE-002", "CASE-003"} {
		if cases[i].CaseID != want {
			t.Errorf("cases[%d] = %s, want %s", i, cases[i].CaseID, want)
		}
	}
}

func TestPrecedentRepo_DuplicateCaseID(t *testing.T) {
	repo := NewPrecedentRepo(testDB(t))
	ctx := context.Background()

	p := domain.PrecedentCase{CaseID: "CASE-001", ClaimType: "fire", State: "Texas", Status: "approved", Timestamp: "2026-08-01T10:00:00Z"}
	if _, err := repo.Save(ctx, p); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if _, err := repo.Save(ctx, p); err == nil {
		t.Error("duplicate case_id accepted, want unique constraint error")
	}
}

func TestPrecedentRepo_EmptyLoad(t *testing.T) {
	repo := NewPrecedentRepo(testDB(t))
	cases, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cases) != 0 {
		t.Errorf("loaded %d cases from empty db", len(cases))
	}
}
