package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aethermind/synapse/internal/ledger"
	"github.com/aethermind/synapse/internal/store"
	"github.com/go-chi/chi/v5"
)

// pathwayJSON is the wire representation of a pathway record.
type pathwayJSON struct {
	ID           string `json:"id"`
	SourceAgent  string `json:"source_agent"`
	TargetAgent  string `json:"target_agent"`
	Strength     uint8  `json:"strength"`
	SuccessCount uint64 `json:"success_count"`
	FailureCount uint64 `json:"failure_count"`
	CreatedAt    int64  `json:"created_at"`
	LastUsed     int64  `json:"last_used"`
}

// tokenJSON is the wire representation of a token record.
type tokenJSON struct {
	Mint      string `json:"mint"`
	PathwayID string `json:"pathway_id"`
	Owner     string `json:"owner"`
	Strength  uint8  `json:"strength"`
	URI       string `json:"uri,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func toPathwayJSON(p *store.Pathway) pathwayJSON {
	return pathwayJSON{
		ID:           hexOf(p.ID),
		SourceAgent:  hexOf(p.SourceAgent),
		TargetAgent:  hexOf(p.TargetAgent),
		Strength:     p.Strength,
		SuccessCount: p.SuccessCount,
		FailureCount: p.FailureCount,
		CreatedAt:    p.CreatedAt,
		LastUsed:     p.LastUsed,
	}
}

func toTokenJSON(t *store.TokenMetadata) tokenJSON {
	return tokenJSON{
		Mint:      hexOf(t.Mint),
		PathwayID: hexOf(t.PathwayID),
		Owner:     hexOf(t.Owner),
		Strength:  t.Strength,
		URI:       t.URI,
		CreatedAt: t.CreatedAt,
	}
}

func hexOf(b []byte) string {
	id, err := ledger.IDFromBytes(b)
	if err != nil {
		return ""
	}
	return id.String()
}

// writeError maps ledger error codes onto HTTP statuses; one code, one
// status, so callers can switch on either.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if code, ok := ledger.ErrCode(err); ok {
		switch code {
		case ledger.CodeInvalidInstruction:
			status = http.StatusBadRequest
		case ledger.CodeNotRentExempt:
			status = http.StatusPaymentRequired
		case ledger.CodeInvalidAgent:
			status = http.StatusUnprocessableEntity
		case ledger.CodePathwayAlreadyExists:
			status = http.StatusConflict
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]any{"error": err.Error()}
	if code, ok := ledger.ErrCode(err); ok {
		resp["code"] = uint32(code)
	}
	json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// eligibility resolves a request's storage attestation: an explicit value
// wins, otherwise the server default applies.
func (s *Server) eligibility(explicit *bool) bool {
	if explicit != nil {
		return *explicit
	}
	return s.assumeEligible
}

func (s *Server) handleCreatePathway(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceAgent     string `json:"source_agent"`
		TargetAgent     string `json:"target_agent"`
		StorageEligible *bool  `json:"storage_eligible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	source, err := ledger.ParseID(req.SourceAgent)
	if err != nil {
		http.Error(w, `{"error":"source_agent must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}
	target, err := ledger.ParseID(req.TargetAgent)
	if err != nil {
		http.Error(w, `{"error":"target_agent must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}

	p, err := s.engine.CreatePathway(source, target, s.eligibility(req.StorageEligible))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPathwayJSON(p))
}

func (s *Server) handleGetPathway(w http.ResponseWriter, r *http.Request) {
	key, err := ledger.ParseID(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, `{"error":"key must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}

	p, err := s.db.GetPathway(key.Bytes())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, `{"error":"pathway not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toPathwayJSON(p))
}

func (s *Server) handleListPathways(w http.ResponseWriter, r *http.Request) {
	var pathways []store.Pathway
	var err error

	if src := r.URL.Query().Get("source"); src != "" {
		source, perr := ledger.ParseID(src)
		if perr != nil {
			http.Error(w, `{"error":"source must be 64 hex chars"}`, http.StatusBadRequest)
			return
		}
		pathways, err = s.db.ListPathwaysBySource(source.Bytes())
	} else {
		pathways, err = s.db.ListPathways()
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]pathwayJSON, len(pathways))
	for i := range pathways {
		out[i] = toPathwayJSON(&pathways[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"pathways": out,
	})
}

func (s *Server) handleReinforce(w http.ResponseWriter, r *http.Request) {
	key, err := ledger.ParseID(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, `{"error":"key must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}

	var req struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	outcome, err := ledger.ParseOutcome(req.Outcome)
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := s.engine.ReinforcePathway(key, outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPathwayJSON(p))
}

func (s *Server) handlePathwayTokens(w http.ResponseWriter, r *http.Request) {
	key, err := ledger.ParseID(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, `{"error":"key must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}

	tokens, err := s.db.ListTokensByPathway(key.Bytes())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]tokenJSON, len(tokens))
	for i := range tokens {
		out[i] = toTokenJSON(&tokens[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(out),
		"tokens": out,
	})
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PathwayID       string `json:"pathway_id"`
		Mint            string `json:"mint"`
		Owner           string `json:"owner"`
		URI             string `json:"uri"`
		StorageEligible *bool  `json:"storage_eligible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	pathwayID, err := ledger.ParseID(req.PathwayID)
	if err != nil {
		http.Error(w, `{"error":"pathway_id must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}
	mint, err := ledger.ParseID(req.Mint)
	if err != nil {
		http.Error(w, `{"error":"mint must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}
	owner, err := ledger.ParseID(req.Owner)
	if err != nil {
		http.Error(w, `{"error":"owner must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}

	t, err := s.engine.IssueToken(pathwayID, mint, owner, req.URI, s.eligibility(req.StorageEligible))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTokenJSON(t))
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	mint, err := ledger.ParseID(chi.URLParam(r, "mint"))
	if err != nil {
		http.Error(w, `{"error":"mint must be 64 hex chars"}`, http.StatusBadRequest)
		return
	}

	t, err := s.db.GetToken(mint.Bytes())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if t == nil {
		http.Error(w, `{"error":"token not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toTokenJSON(t))
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.db.ListTokens()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]tokenJSON, len(tokens))
	for i := range tokens {
		out[i] = toTokenJSON(&tokens[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(out),
		"tokens": out,
	})
}

// handleInstruction accepts a raw opcode+payload request, base64-encoded,
// and dispatches it through the instruction decoder.
func (s *Server) handleInstruction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload         string `json:"payload"`
		StorageEligible *bool  `json:"storage_eligible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		http.Error(w, `{"error":"payload must be base64"}`, http.StatusBadRequest)
		return
	}

	result, err := s.engine.Execute(data, s.eligibility(req.StorageEligible))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{}
	if result.Pathway != nil {
		resp["pathway"] = toPathwayJSON(result.Pathway)
	}
	if result.Token != nil {
		resp["token"] = toTokenJSON(result.Token)
	}
	writeJSON(w, http.StatusOK, resp)
}
