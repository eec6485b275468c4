package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/aethermind/synapse/internal/store"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

// fillID returns an ID filled with the given byte.
func fillID(b byte) ID {
	var id ID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestCreatePathway(t *testing.T) {
	eng := testEngine(t)
	eng.now = func() int64 { return 5000 }

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}

	if p.Strength != InitialStrength {
		t.Errorf("Strength = %d, want %d", p.Strength, InitialStrength)
	}
	if p.SuccessCount != 0 || p.FailureCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", p.SuccessCount, p.FailureCount)
	}
	if p.CreatedAt != 5000 || p.LastUsed != 5000 {
		t.Errorf("timestamps = %d/%d, want 5000/5000", p.CreatedAt, p.LastUsed)
	}

	key := PathwayKey(fillID(0x0a), fillID(0x0b))
	got, err := eng.DB.GetPathway(key.Bytes())
	if err != nil {
		t.Fatalf("GetPathway: %v", err)
	}
	if got == nil {
		t.Fatal("pathway not persisted under derived key")
	}
}

func TestCreatePathwayDuplicate(t *testing.T) {
	eng := testEngine(t)

	first, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("first CreatePathway: %v", err)
	}

	_, err = eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if !IsCode(err, CodePathwayAlreadyExists) {
		t.Fatalf("duplicate create: err = %v, want PathwayAlreadyExists", err)
	}

	// Record unchanged from the first call's result.
	got, err := eng.DB.GetPathway(first.ID)
	if err != nil {
		t.Fatalf("GetPathway: %v", err)
	}
	if got.Strength != first.Strength || got.CreatedAt != first.CreatedAt {
		t.Errorf("record changed after failed duplicate create: %+v", got)
	}
}

func TestCreatePathwaySelf(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.CreatePathway(fillID(0x0a), fillID(0x0a), true)
	if !IsCode(err, CodeInvalidAgent) {
		t.Fatalf("self create: err = %v, want InvalidAgent", err)
	}

	count, err := eng.DB.CountPathways()
	if err != nil {
		t.Fatalf("CountPathways: %v", err)
	}
	if count != 0 {
		t.Errorf("pathway count = %d, want 0 after rejected create", count)
	}
}

func TestCreatePathwayZeroAgent(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.CreatePathway(ID{}, fillID(0x0b), true)
	if !IsCode(err, CodeInvalidAgent) {
		t.Errorf("zero source: err = %v, want InvalidAgent", err)
	}
}

func TestCreatePathwayNotEligible(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), false)
	if !IsCode(err, CodeNotRentExempt) {
		t.Fatalf("ineligible create: err = %v, want NotRentExempt", err)
	}

	count, _ := eng.DB.CountPathways()
	if count != 0 {
		t.Errorf("pathway count = %d, want 0", count)
	}
}

func TestReinforceSuccessSaturates(t *testing.T) {
	eng := testEngine(t)

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}
	key, _ := IDFromBytes(p.ID)

	// From strength 1, 300 successes converge to and stay at 255.
	for i := 0; i < 300; i++ {
		p, err = eng.ReinforcePathway(key, OutcomeSuccess)
		if err != nil {
			t.Fatalf("ReinforcePathway #%d: %v", i, err)
		}
	}
	if p.Strength != MaxStrength {
		t.Errorf("Strength = %d, want %d", p.Strength, MaxStrength)
	}
	if p.SuccessCount != 300 {
		t.Errorf("SuccessCount = %d, want 300", p.SuccessCount)
	}
	if p.FailureCount != 0 {
		t.Errorf("FailureCount = %d, want 0", p.FailureCount)
	}
}

func TestReinforceFailureFloorsAtZero(t *testing.T) {
	eng := testEngine(t)

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}
	key, _ := IDFromBytes(p.ID)

	// From strength 1, the first failure reaches 0; further failures stay
	// at 0 and never underflow to 255.
	p, err = eng.ReinforcePathway(key, OutcomeFailure)
	if err != nil {
		t.Fatalf("ReinforcePathway: %v", err)
	}
	if p.Strength != 0 {
		t.Errorf("Strength after first failure = %d, want 0", p.Strength)
	}

	for i := 0; i < 5; i++ {
		p, err = eng.ReinforcePathway(key, OutcomeFailure)
		if err != nil {
			t.Fatalf("ReinforcePathway #%d: %v", i, err)
		}
		if p.Strength != 0 {
			t.Fatalf("Strength = %d after repeated failures, want 0", p.Strength)
		}
	}
	if p.FailureCount != 6 {
		t.Errorf("FailureCount = %d, want 6", p.FailureCount)
	}
}

func TestReinforceUpdatesLastUsedOnly(t *testing.T) {
	eng := testEngine(t)

	now := int64(5000)
	eng.now = func() int64 { return now }

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}
	key, _ := IDFromBytes(p.ID)

	now = 6000
	p, err = eng.ReinforcePathway(key, OutcomeSuccess)
	if err != nil {
		t.Fatalf("ReinforcePathway: %v", err)
	}
	if p.LastUsed != 6000 {
		t.Errorf("LastUsed = %d, want 6000", p.LastUsed)
	}
	if p.CreatedAt != 5000 {
		t.Errorf("CreatedAt = %d, want 5000 (never changes)", p.CreatedAt)
	}

	// Identical-timestamp reinforce keeps last_used equal, never lower.
	p, err = eng.ReinforcePathway(key, OutcomeFailure)
	if err != nil {
		t.Fatalf("ReinforcePathway: %v", err)
	}
	if p.LastUsed != 6000 {
		t.Errorf("LastUsed = %d, want 6000", p.LastUsed)
	}
}

func TestReinforceUnknownPathway(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.ReinforcePathway(fillID(0x77), OutcomeSuccess)
	if !IsCode(err, CodeInvalidAgent) {
		t.Fatalf("unknown pathway: err = %v, want InvalidAgent", err)
	}
}

func TestReinforceConcurrentSameKey(t *testing.T) {
	eng := testEngine(t)

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}
	key, _ := IDFromBytes(p.ID)

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := eng.ReinforcePathway(key, OutcomeSuccess); err != nil {
					t.Errorf("ReinforcePathway: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := eng.DB.GetPathway(key.Bytes())
	if err != nil {
		t.Fatalf("GetPathway: %v", err)
	}
	if got.SuccessCount != workers*perWorker {
		t.Errorf("SuccessCount = %d, want %d (no lost updates)", got.SuccessCount, workers*perWorker)
	}
	if got.Strength != MaxStrength {
		t.Errorf("Strength = %d, want %d", got.Strength, MaxStrength)
	}
}

func TestIssueTokenSnapshotsStrength(t *testing.T) {
	eng := testEngine(t)

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}
	key, _ := IDFromBytes(p.ID)

	// Bring strength to 7.
	for i := 0; i < 6; i++ {
		if _, err := eng.ReinforcePathway(key, OutcomeSuccess); err != nil {
			t.Fatalf("ReinforcePathway: %v", err)
		}
	}

	tok, err := eng.IssueToken(key, fillID(0x10), fillID(0x20), "https://example.com/t.json", true)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if tok.Strength != 7 {
		t.Errorf("token Strength = %d, want 7", tok.Strength)
	}

	// Later reinforcement must not alter the issued record.
	if _, err := eng.ReinforcePathway(key, OutcomeSuccess); err != nil {
		t.Fatalf("ReinforcePathway: %v", err)
	}
	got, err := eng.DB.GetToken(fillID(0x10).Bytes())
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got.Strength != 7 {
		t.Errorf("token Strength after reinforce = %d, want 7 (snapshot, not reference)", got.Strength)
	}
}

func TestIssueTokenUnknownPathway(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.IssueToken(fillID(0x77), fillID(0x10), fillID(0x20), "", true)
	if !IsCode(err, CodeInvalidAgent) {
		t.Fatalf("unknown pathway: err = %v, want InvalidAgent", err)
	}

	count, _ := eng.DB.CountTokens()
	if count != 0 {
		t.Errorf("token count = %d, want 0", count)
	}
}

func TestIssueTokenDuplicateMint(t *testing.T) {
	eng := testEngine(t)

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}
	key, _ := IDFromBytes(p.ID)

	first, err := eng.IssueToken(key, fillID(0x10), fillID(0x20), "first", true)
	if err != nil {
		t.Fatalf("first IssueToken: %v", err)
	}

	_, err = eng.IssueToken(key, fillID(0x10), fillID(0x30), "second", true)
	if !IsCode(err, CodePathwayAlreadyExists) {
		t.Fatalf("duplicate mint: err = %v, want PathwayAlreadyExists class", err)
	}

	// Registry retains only the first record.
	got, err := eng.DB.GetToken(fillID(0x10).Bytes())
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got.URI != first.URI {
		t.Errorf("URI = %q, want %q (first record retained)", got.URI, first.URI)
	}
}

func TestIssueTokenCrossedKeysConcurrent(t *testing.T) {
	eng := testEngine(t)

	a, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway a: %v", err)
	}
	b, err := eng.CreatePathway(fillID(0x0c), fillID(0x0d), true)
	if err != nil {
		t.Fatalf("CreatePathway b: %v", err)
	}
	keyA, _ := IDFromBytes(a.ID)
	keyB, _ := IDFromBytes(b.ID)

	// Each worker names one pathway's key as the other's mint. Without
	// canonical lock ordering the two directions hold their first lock
	// and block forever on the second.
	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		pathway, mint := keyA, keyB
		if w%2 == 1 {
			pathway, mint = keyB, keyA
		}
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := eng.IssueToken(pathway, mint, fillID(0x20), "", true)
				if err != nil && !IsCode(err, CodePathwayAlreadyExists) {
					t.Errorf("IssueToken: %v", err)
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("crossed issues did not finish, lock ordering deadlock")
	}

	count, err := eng.DB.CountTokens()
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if count != 2 {
		t.Errorf("token count = %d, want 2 (one per mint)", count)
	}
}

func TestIssueTokenMintEqualsPathwayKey(t *testing.T) {
	eng := testEngine(t)

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}
	key, _ := IDFromBytes(p.ID)

	// Equal keys must resolve to a single lock, not a self-deadlock.
	tok, err := eng.IssueToken(key, key, fillID(0x20), "", true)
	if err != nil {
		t.Fatalf("IssueToken with mint == pathway key: %v", err)
	}
	if tok.Strength != p.Strength {
		t.Errorf("token Strength = %d, want %d", tok.Strength, p.Strength)
	}
}

func TestIssueTokenNotEligible(t *testing.T) {
	eng := testEngine(t)

	p, err := eng.CreatePathway(fillID(0x0a), fillID(0x0b), true)
	if err != nil {
		t.Fatalf("CreatePathway: %v", err)
	}
	key, _ := IDFromBytes(p.ID)

	_, err = eng.IssueToken(key, fillID(0x10), fillID(0x20), "", false)
	if !IsCode(err, CodeNotRentExempt) {
		t.Fatalf("ineligible issue: err = %v, want NotRentExempt", err)
	}
}

func TestExecuteDispatch(t *testing.T) {
	eng := testEngine(t)

	// Create via raw instruction.
	data := EncodeInstruction(CreatePathway{SourceAgent: fillID(0x0a), TargetAgent: fillID(0x0b)})
	result, err := eng.Execute(data, true)
	if err != nil {
		t.Fatalf("Execute create: %v", err)
	}
	if result.Pathway == nil {
		t.Fatal("Execute create: nil pathway in result")
	}

	key := PathwayKey(fillID(0x0a), fillID(0x0b))

	// Reinforce via raw instruction.
	data = EncodeInstruction(ReinforcePathway{PathwayID: key, Outcome: OutcomeSuccess})
	result, err = eng.Execute(data, true)
	if err != nil {
		t.Fatalf("Execute reinforce: %v", err)
	}
	if result.Pathway.Strength != 2 {
		t.Errorf("Strength = %d, want 2", result.Pathway.Strength)
	}

	// Issue via raw instruction.
	data = EncodeInstruction(IssueToken{PathwayID: key, Mint: fillID(0x10), Owner: fillID(0x20), URI: "u"})
	result, err = eng.Execute(data, true)
	if err != nil {
		t.Fatalf("Execute issue: %v", err)
	}
	if result.Token == nil {
		t.Fatal("Execute issue: nil token in result")
	}
	if result.Token.Strength != 2 {
		t.Errorf("token Strength = %d, want 2", result.Token.Strength)
	}
}

func TestExecuteInvalidPayload(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.Execute([]byte{0xff, 0x01}, true)
	if !IsCode(err, CodeInvalidInstruction) {
		t.Fatalf("unknown opcode: err = %v, want InvalidInstruction", err)
	}

	_, err = eng.Execute(nil, true)
	if !IsCode(err, CodeInvalidInstruction) {
		t.Fatalf("empty payload: err = %v, want InvalidInstruction", err)
	}
}
