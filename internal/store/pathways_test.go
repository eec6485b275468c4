package store

import (
	"bytes"
	"testing"
)

// testID returns a 32-byte id filled with the given byte.
func testID(b byte) []byte {
	id := make([]byte, 32)
	for i := range id {
		id[i] = b
	}
	return id
}

func testPathway(id, source, target byte) *Pathway {
	return &Pathway{
		ID:          testID(id),
		SourceAgent: testID(source),
		TargetAgent: testID(target),
		Strength:    1,
		CreatedAt:   1000,
		LastUsed:    1000,
	}
}

func TestCreateAndGetPathway(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	p := testPathway(0x01, 0x0a, 0x0b)
	if err := db.CreatePathway(p); err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}

	got, err := db.GetPathway(p.ID)
	if err != nil {
		t.Fatalf("GetPathway: %v", err)
	}
	if got == nil {
		t.Fatal("GetPathway returned nil for existing pathway")
	}
	if !bytes.Equal(got.SourceAgent, p.SourceAgent) {
		t.Errorf("SourceAgent = %x, want %x", got.SourceAgent, p.SourceAgent)
	}
	if !bytes.Equal(got.TargetAgent, p.TargetAgent) {
		t.Errorf("TargetAgent = %x, want %x", got.TargetAgent, p.TargetAgent)
	}
	if got.Strength != 1 {
		t.Errorf("Strength = %d, want 1", got.Strength)
	}
	if got.SuccessCount != 0 || got.FailureCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", got.SuccessCount, got.FailureCount)
	}
	if got.CreatedAt != 1000 || got.LastUsed != 1000 {
		t.Errorf("timestamps = %d/%d, want 1000/1000", got.CreatedAt, got.LastUsed)
	}
}

func TestGetPathwayMissing(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	got, err := db.GetPathway(testID(0xff))
	if err != nil {
		t.Fatalf("GetPathway: %v", err)
	}
	if got != nil {
		t.Errorf("GetPathway = %+v, want nil for missing key", got)
	}
}

func TestUpdatePathwayStrength(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	p := testPathway(0x01, 0x0a, 0x0b)
	if err := db.CreatePathway(p); err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}

	if err := db.UpdatePathwayStrength(p.ID, 5, 4, 1, 2000); err != nil {
		t.Fatalf("UpdatePathwayStrength: %v", err)
	}

	got, err := db.GetPathway(p.ID)
	if err != nil {
		t.Fatalf("GetPathway: %v", err)
	}
	if got.Strength != 5 {
		t.Errorf("Strength = %d, want 5", got.Strength)
	}
	if got.SuccessCount != 4 || got.FailureCount != 1 {
		t.Errorf("counts = %d/%d, want 4/1", got.SuccessCount, got.FailureCount)
	}
	if got.LastUsed != 2000 {
		t.Errorf("LastUsed = %d, want 2000", got.LastUsed)
	}
	if got.CreatedAt != 1000 {
		t.Errorf("CreatedAt = %d, want 1000 (must not change)", got.CreatedAt)
	}
}

func TestUpdatePathwayStrengthMissing(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if err := db.UpdatePathwayStrength(testID(0xff), 5, 1, 0, 2000); err == nil {
		t.Error("expected error updating missing pathway, got nil")
	}
}

func TestListPathwaysOrder(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	weak := testPathway(0x01, 0x0a, 0x0b)
	strong := testPathway(0x02, 0x0b, 0x0c)
	strong.Strength = 42
	for _, p := range []*Pathway{weak, strong} {
		if err := db.CreatePathway(p); err != nil {
			t.Fatalf("CreatePathway: %v", err)
		}
	}

	pathways, err := db.ListPathways()
	if err != nil {
		t.Fatalf("ListPathways: %v", err)
	}
	if len(pathways) != 2 {
		t.Fatalf("len = %d, want 2", len(pathways))
	}
	if pathways[0].Strength != 42 {
		t.Errorf("first pathway strength = %d, want 42 (strongest first)", pathways[0].Strength)
	}
}

func TestListPathwaysBySource(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	for _, p := range []*Pathway{
		testPathway(0x01, 0x0a, 0x0b),
		testPathway(0x02, 0x0a, 0x0c),
		testPathway(0x03, 0x0b, 0x0c),
	} {
		if err := db.CreatePathway(p); err != nil {
			t.Fatalf("CreatePathway: %v", err)
		}
	}

	pathways, err := db.ListPathwaysBySource(testID(0x0a))
	if err != nil {
		t.Fatalf("ListPathwaysBySource: %v", err)
	}
	if len(pathways) != 2 {
		t.Errorf("len = %d, want 2", len(pathways))
	}
	for _, p := range pathways {
		if !bytes.Equal(p.SourceAgent, testID(0x0a)) {
			t.Errorf("SourceAgent = %x, want all 0x0a", p.SourceAgent)
		}
	}
}

func TestCountPathways(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	count, err := db.CountPathways()
	if err != nil {
		t.Fatalf("CountPathways: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	if err := db.CreatePathway(testPathway(0x01, 0x0a, 0x0b)); err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}

	count, err = db.CountPathways()
	if err != nil {
		t.Fatalf("CountPathways: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
