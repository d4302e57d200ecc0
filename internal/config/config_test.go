package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("SEARCH_CANDIDATE_LIMIT", "")
	t.Setenv("SEARCH_RRF_K", "")
	t.Setenv("ORCHESTRATOR_MAX_ITERATIONS", "")

	cfg := Load()
	if cfg.SearchTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.SearchTopK)
	}
	if cfg.SearchCandidateLimit != 30 {
		t.Fatalf("expected default candidate limit 30, got %d", cfg.SearchCandidateLimit)
	}
	if cfg.SearchRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.SearchRRFK)
	}
	if cfg.OrchestratorMaxIterations != 5 {
		t.Fatalf("expected default max iterations 5, got %d", cfg.OrchestratorMaxIterations)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "8")
	t.Setenv("SEARCH_RRF_K", "75")
	t.Setenv("ORCHESTRATOR_MAX_ITERATIONS", "3")
	t.Setenv("NATS_SUBJECT", "workspace.snapshots.test")

	cfg := Load()
	if cfg.SearchTopK != 8 {
		t.Fatalf("expected top k 8, got %d", cfg.SearchTopK)
	}
	if cfg.SearchRRFK != 75 {
		t.Fatalf("expected rrf k 75, got %d", cfg.SearchRRFK)
	}
	if cfg.OrchestratorMaxIterations != 3 {
		t.Fatalf("expected max iterations 3, got %d", cfg.OrchestratorMaxIterations)
	}
	if cfg.NATSSubject != "workspace.snapshots.test" {
		t.Fatalf("expected nats subject override, got %q", cfg.NATSSubject)
	}
}
