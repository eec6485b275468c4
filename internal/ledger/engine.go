package ledger

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/aethermind/synapse/internal/store"
)

// Outcome is the result of a reinforcement attempt against a pathway.
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

// String returns "success" or "failure".
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// ParseOutcome converts "success" or "failure" into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "success":
		return OutcomeSuccess, nil
	case "failure":
		return OutcomeFailure, nil
	default:
		return 0, newError(CodeInvalidInstruction, "unknown outcome %q", s)
	}
}

// Engine applies pathway and token operations against the record store.
// Mutating operations on the same identity key are serialized; operations
// on distinct keys run in parallel. Every operation either fully commits
// or returns a typed error with no state change.
type Engine struct {
	DB *store.DB

	// now is swappable for deterministic tests. Unix seconds.
	now func() int64

	mu    sync.Mutex
	locks map[ID]*sync.Mutex
}

// New creates a new Engine backed by the given store.
func New(db *store.DB) *Engine {
	return &Engine{
		DB:    db,
		now:   func() int64 { return time.Now().Unix() },
		locks: make(map[ID]*sync.Mutex),
	}
}

// keyLock returns the mutex serializing operations on one identity key.
// Locks are never reclaimed, so the map grows with every distinct key a
// caller names, including keys that only ever fail lookups. A mutex is
// small and callers name keys deliberately, so this stays cheap in
// practice; revisit with an eviction pass if a deployment churns through
// unbounded throwaway keys.
func (e *Engine) keyLock(id ID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.locks[id]
	if !ok {
		m = &sync.Mutex{}
		e.locks[id] = m
	}
	return m
}

// lockPair acquires the locks for two identity keys in canonical byte
// order, so two operations over the same pair of keys always contend in
// the same order no matter which key each names first. Equal keys take a
// single lock. The returned func releases whatever was acquired.
func (e *Engine) lockPair(a, b ID) func() {
	if a == b {
		m := e.keyLock(a)
		m.Lock()
		return m.Unlock
	}
	first, second := a, b
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}
	fm := e.keyLock(first)
	sm := e.keyLock(second)
	fm.Lock()
	sm.Lock()
	return func() {
		sm.Unlock()
		fm.Unlock()
	}
}

// CreatePathway allocates a new pathway from source to target with
// strength 1 and zeroed counters. storageEligible is the external ledger's
// attestation that the backing account meets the minimum-balance
// requirement; the caller is already authorized as source upstream.
func (e *Engine) CreatePathway(source, target ID, storageEligible bool) (*store.Pathway, error) {
	if err := validateAgentPair(source, target); err != nil {
		return nil, err
	}

	key := PathwayKey(source, target)
	lock := e.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := e.DB.GetPathway(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("check existing pathway: %w", err)
	}
	if existing != nil {
		return nil, newError(CodePathwayAlreadyExists, "pathway %s", key)
	}

	if err := validateEligibility(storageEligible); err != nil {
		return nil, err
	}

	now := e.now()
	p := &store.Pathway{
		ID:          key.Bytes(),
		SourceAgent: source.Bytes(),
		TargetAgent: target.Bytes(),
		Strength:    InitialStrength,
		CreatedAt:   now,
		LastUsed:    now,
	}
	if err := e.DB.CreatePathway(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReinforcePathway applies an outcome to the pathway with the given
// identity key: success bumps success_count and saturating-increments
// strength, failure bumps failure_count and saturating-decrements it.
// last_used is updated either way.
func (e *Engine) ReinforcePathway(key ID, outcome Outcome) (*store.Pathway, error) {
	lock := e.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.DB.GetPathway(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("get pathway: %w", err)
	}
	if p == nil {
		return nil, newError(CodeInvalidAgent, "unknown pathway %s", key)
	}

	switch outcome {
	case OutcomeSuccess:
		p.SuccessCount++
		p.Strength = satIncrement(p.Strength)
	case OutcomeFailure:
		p.FailureCount++
		p.Strength = satDecrement(p.Strength)
	default:
		return nil, newError(CodeInvalidInstruction, "unknown outcome %d", uint8(outcome))
	}
	p.LastUsed = e.now()

	if err := e.DB.UpdatePathwayStrength(p.ID, p.Strength, p.SuccessCount, p.FailureCount, p.LastUsed); err != nil {
		return nil, err
	}
	return p, nil
}

// IssueToken creates a token record referencing an existing pathway,
// snapshotting the pathway's strength at issuance time. The snapshot is
// never re-synchronized: later reinforcement does not touch issued tokens.
// The pathway read and token write share one critical section so no
// reinforcement can interleave mid-snapshot.
func (e *Engine) IssueToken(pathwayID, mint, owner ID, uri string, storageEligible bool) (*store.TokenMetadata, error) {
	if err := validateMintOwner(mint, owner); err != nil {
		return nil, err
	}
	if err := validateURI(uri); err != nil {
		return nil, err
	}

	// Both keys come from the same lock namespace, so crossed concurrent
	// issues (pathway A / mint B against pathway B / mint A) would
	// deadlock under caller-order acquisition. lockPair imposes a
	// canonical order instead.
	unlock := e.lockPair(pathwayID, mint)
	defer unlock()

	p, err := e.DB.GetPathway(pathwayID.Bytes())
	if err != nil {
		return nil, fmt.Errorf("get pathway: %w", err)
	}
	if p == nil {
		return nil, newError(CodeInvalidAgent, "unknown pathway %s", pathwayID)
	}

	existing, err := e.DB.GetToken(mint.Bytes())
	if err != nil {
		return nil, fmt.Errorf("check existing mint: %w", err)
	}
	if existing != nil {
		return nil, newError(CodePathwayAlreadyExists, "mint %s", mint)
	}

	if err := validateEligibility(storageEligible); err != nil {
		return nil, err
	}

	t := &store.TokenMetadata{
		Mint:      mint.Bytes(),
		PathwayID: pathwayID.Bytes(),
		Owner:     owner.Bytes(),
		Strength:  p.Strength,
		URI:       uri,
		CreatedAt: e.now(),
	}
	if err := e.DB.InsertToken(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Result is the record produced by a dispatched instruction: exactly one
// field is non-nil.
type Result struct {
	Pathway *store.Pathway
	Token   *store.TokenMetadata
}

// Execute decodes a raw instruction payload and applies it.
// storageEligible is threaded through to operations that allocate records.
func (e *Engine) Execute(data []byte, storageEligible bool) (*Result, error) {
	in, err := DecodeInstruction(data)
	if err != nil {
		return nil, err
	}

	switch in := in.(type) {
	case CreatePathway:
		p, err := e.CreatePathway(in.SourceAgent, in.TargetAgent, storageEligible)
		if err != nil {
			return nil, err
		}
		return &Result{Pathway: p}, nil
	case ReinforcePathway:
		p, err := e.ReinforcePathway(in.PathwayID, in.Outcome)
		if err != nil {
			return nil, err
		}
		return &Result{Pathway: p}, nil
	case IssueToken:
		t, err := e.IssueToken(in.PathwayID, in.Mint, in.Owner, in.URI, storageEligible)
		if err != nil {
			return nil, err
		}
		return &Result{Token: t}, nil
	default:
		return nil, newError(CodeInvalidInstruction, "unhandled opcode %d", in.Opcode())
	}
}
