package constants

import "testing"

func TestWorkflowTypes(t *testing.T) {
	if WorkflowTypeIssue != "issue" {
		t.Errorf("WorkflowTypeIssue = %q, want %q", WorkflowTypeIssue, "issue")
	}
	if WorkflowTypeLLD != "lld" {
		t.Errorf("WorkflowTypeLLD = %q, want %q", WorkflowTypeLLD, "lld")
	}
}

func TestTerminalStates(t *testing.T) {
	states := []string{TerminalApprovedFiled, TerminalUserAbort, TerminalMaxIterations, TerminalFatal}
	seen := map[string]bool{}
	for _, s := range states {
		if s == "" {
			t.Error("terminal state constant must not be empty")
		}
		if seen[s] {
			t.Errorf("duplicate terminal state value %q", s)
		}
		seen[s] = true
	}
}

func TestDecisions(t *testing.T) {
	if DecisionApproved != "APPROVED" {
		t.Errorf("DecisionApproved = %q, want APPROVED", DecisionApproved)
	}
	if DecisionBlock != "BLOCK" {
		t.Errorf("DecisionBlock = %q, want BLOCK", DecisionBlock)
	}
	if DecisionDiscuss != "DISCUSS" {
		t.Errorf("DecisionDiscuss = %q, want DISCUSS", DecisionDiscuss)
	}
}

func TestLineageKinds(t *testing.T) {
	kinds := []string{KindIssue, KindBrief, KindDraft, KindVerdict, KindMetadata}
	for _, k := range kinds {
		if k == "" {
			t.Error("lineage kind must not be empty")
		}
	}
	if KindMetadata != "metadata" {
		t.Errorf("KindMetadata = %q, want metadata", KindMetadata)
	}
}

func TestAuditEvents(t *testing.T) {
	events := []string{
		EventStart, EventDraft, EventReview, EventHumanEdit,
		EventHumanPause, EventResume, EventFile, EventComplete, EventError,
	}
	if len(events) != 9 {
		t.Fatalf("expected 9 audit events, got %d", len(events))
	}
	for _, e := range events {
		if e == "" {
			t.Error("audit event name must not be empty")
		}
	}
}

func TestDefaultMaxIterations(t *testing.T) {
	if DefaultMaxIterationsLLD != 20 {
		t.Errorf("DefaultMaxIterationsLLD = %d, want 20", DefaultMaxIterationsLLD)
	}
	if DefaultMaxIterationsIssue != 25 {
		t.Errorf("DefaultMaxIterationsIssue = %d, want 25", DefaultMaxIterationsIssue)
	}
}

func TestLineageLayout(t *testing.T) {
	if LineageRootDir != "docs/lineage" {
		t.Errorf("LineageRootDir = %q, want docs/lineage", LineageRootDir)
	}
	if LineageActiveDir != "active" {
		t.Errorf("LineageActiveDir = %q, want active", LineageActiveDir)
	}
	if LineageDoneDir != "done" {
		t.Errorf("LineageDoneDir = %q, want done", LineageDoneDir)
	}
	if AuditLogFileName != "workflow-audit.jsonl" {
		t.Errorf("AuditLogFileName = %q, want workflow-audit.jsonl", AuditLogFileName)
	}
}

func TestEnvironmentVariableNames(t *testing.T) {
	if EnvWorkflowDB != "WORKFLOW_DB" {
		t.Errorf("EnvWorkflowDB = %q, want WORKFLOW_DB", EnvWorkflowDB)
	}
	if EnvAutoMode != "AUTO_MODE" {
		t.Errorf("EnvAutoMode = %q, want AUTO_MODE", EnvAutoMode)
	}
	if EnvTestMode != "TEST_MODE" {
		t.Errorf("EnvTestMode = %q, want TEST_MODE", EnvTestMode)
	}
}
